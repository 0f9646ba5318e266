package glpcoach

type ModelConfig struct {
	CheapModelID   string  `env:"CHEAP_MODEL_ID,default=us.anthropic.claude-3-5-haiku-20241022-v1:0"`
	CapableModelID string  `env:"CAPABLE_MODEL_ID,default=us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	MaxTokens      int32   `env:"MAX_TOKENS,default=1024"`
	Temperature    float32 `env:"TEMPERATURE,default=0.2"`
	TopP           float32 `env:"TOP_P,default=0.9"`
}

type AgentConfig struct {
	FoodsPath       string `env:"FOODS_PATH,default=artifacts/foods.json"`
	RecordsDBPath   string `env:"RECORDS_DB_PATH,default=coach.db"`
	WhisperEndpoint string `env:"WHISPER_ENDPOINT,default=https://api.openai.com/v1/audio/transcriptions"`
	WhisperAPIKey   string `env:"WHISPER_API_KEY,default="`
	MaxIterations   int    `env:"MAX_ITERATIONS,default=6"`
}

// Thresholds are the hand-tuned heuristic knobs of the confidence policy and
// the size normalizer. They are tuning parameters, not invariants, so they are
// environment-tunable; LowConfidenceBelow is the one value other invariants
// (the low_confidence flag) are coupled to.
type Thresholds struct {
	LowConfidenceBelow float64 `env:"CONFIDENCE_LOW_BELOW,default=0.6"`
	AskBelow           float64 `env:"CONFIDENCE_ASK_BELOW,default=0.8"`
	DetailBelow        float64 `env:"CONFIDENCE_DETAIL_BELOW,default=0.2"`
	LargeFactor        float64 `env:"SIZE_LARGE_FACTOR,default=1.4"`
	SmallFactor        float64 `env:"SIZE_SMALL_FACTOR,default=0.7"`
	LargeLabelAbove    float64 `env:"SIZE_LARGE_LABEL_ABOVE,default=1.2"`
	SmallLabelBelow    float64 `env:"SIZE_SMALL_LABEL_BELOW,default=0.8"`
}

// DefaultThresholds mirrors the envdecode defaults for callers that do not go
// through the environment (tests, library use).
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowConfidenceBelow: 0.6,
		AskBelow:           0.8,
		DetailBelow:        0.2,
		LargeFactor:        1.4,
		SmallFactor:        0.7,
		LargeLabelAbove:    1.2,
		SmallLabelBelow:    0.8,
	}
}
