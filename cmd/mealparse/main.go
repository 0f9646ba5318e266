package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"

	"glpcoach"
	"glpcoach/llm"
	"glpcoach/nutrition"
	"glpcoach/tools/storage"
	"glpcoach/transcribe"
)

// mealparse runs the parsing pipeline directly on one text, image, audio, or
// exercise input without the coaching layer. Useful for prompt and threshold
// tuning.
func main() {
	ctx := context.Background()

	var modelConfig glpcoach.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var agentConfig glpcoach.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var thresholds glpcoach.Thresholds
	if err := envdecode.Decode(&thresholds); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	mode := argOr(1, "text")
	input := argOr(2, "2 scrambled eggs and a large coffee with milk")

	table, err := nutrition.LoadFoodTable(ctx, storage.NewFileFoodState(agentConfig.FoodsPath))
	if err != nil {
		slog.Warn("SETUP: Could not load food table, using built-in defaults", "path", agentConfig.FoodsPath, "error", err)
		table = nutrition.DefaultFoodTable()
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		slog.Error("SETUP: Failed to load AWS config", "error", err)
		return
	}

	client := llm.NewClient(bedrockruntime.NewFromConfig(awsCfg), llm.ClientOptions{
		CheapModelID:   modelConfig.CheapModelID,
		CapableModelID: modelConfig.CapableModelID,
		MaxTokens:      modelConfig.MaxTokens,
		Temperature:    modelConfig.Temperature,
		TopP:           modelConfig.TopP,
	})

	parser := nutrition.NewParser(client, table, thresholds, glpcoach.NewStdoutToolRunLogger())

	var result any
	switch mode {
	case "text":
		result = parser.ParseText(ctx, input, "")
	case "image":
		data, rerr := os.ReadFile(input)
		if rerr != nil {
			slog.Error("Failed to read image file", "path", input, "error", rerr)
			return
		}
		result = parser.ParseImage(ctx, base64.StdEncoding.EncodeToString(data), "")
	case "audio":
		audio, rerr := os.ReadFile(input)
		if rerr != nil {
			slog.Error("Failed to read audio file", "path", input, "error", rerr)
			return
		}
		stt, serr := transcribe.NewWhisperClient(transcribe.WhisperOpts{
			Endpoint:   agentConfig.WhisperEndpoint,
			APIKey:     agentConfig.WhisperAPIKey,
			HTTPClient: http.DefaultClient,
		})
		if serr != nil {
			slog.Error("SETUP: Failed to create transcription client", "error", serr)
			return
		}
		text := transcribe.TranscribeMeal(ctx, stt, audio, argOr(3, ""))
		result = parser.ParseText(ctx, text, "")
	case "exercise":
		result = parser.ParseExercise(ctx, input, 70)
	default:
		slog.Error("Unknown mode; want text, image, audio, or exercise", "mode", mode)
		return
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal result", "error", err)
		return
	}
	fmt.Println(string(out))
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}
