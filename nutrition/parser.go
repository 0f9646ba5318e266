package nutrition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"glpcoach"
	"glpcoach/llm"
)

// SentinelUnidentifiedPhoto names the placeholder item returned when a photo
// could not be analyzed at all (undecodable input or upstream failure).
const SentinelUnidentifiedPhoto = "unidentified food from photo"

const (
	// confidenceMalformed marks results degraded by an unparseable or
	// schema-violating model response.
	confidenceMalformed = 0.1
	// confidenceTransport marks results degraded by a transient upstream
	// failure; higher than malformed because nothing was actually parsed and
	// rejected. The two classes must stay distinguishable in the signal.
	confidenceTransport = 0.45
)

type llmClient interface {
	Invoke(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (llm.Response, error)
}

// Parser converts free-form meal and exercise descriptions into validated
// structured results. It never returns an error to callers: upstream failures
// degrade into fallback results with explicit low confidence.
type Parser struct {
	llm        llmClient
	matcher    *Matcher
	policy     *Policy
	normalizer *Normalizer
	estimator  *Estimator
	runLogger  glpcoach.ToolRunLogger
}

func NewParser(client llmClient, table *FoodTable, th glpcoach.Thresholds, runLogger glpcoach.ToolRunLogger) *Parser {
	if runLogger == nil {
		runLogger = glpcoach.NewNoOpToolRunLogger()
	}
	return &Parser{
		llm:        client,
		matcher:    NewMatcher(table, th),
		policy:     NewPolicy(th),
		normalizer: NewNormalizer(th),
		estimator:  NewEstimator(),
		runLogger:  runLogger,
	}
}

// ParseText parses a free-text meal description. The cheap model tier goes
// first; a low-confidence success is re-run once on the capable tier and the
// second result supersedes the first unconditionally.
func (p *Parser) ParseText(ctx context.Context, text, hints string) glpcoach.ParseResult {
	ctx, span := otel.Tracer(glpcoach.TracerNameParser).Start(ctx, "Parser.ParseText")
	defer span.End()

	q := p.normalizer.Normalize(text)
	user := userPromptWithHints(text, q.PromptHint(), hints)
	prompt := llm.NewTextPrompt(mealSystemPrompt, user)

	result, err := p.mealAttempt(ctx, llm.TierCheap, prompt)
	if err != nil {
		return p.textFallback(text, err)
	}

	if p.policy.ShouldEscalate(result.Confidence) {
		slog.Info("PARSER: Escalating to capable tier", "confidence", result.Confidence)
		countEscalation(ctx, "parse_meal_text")
		escalated, eerr := p.mealAttempt(ctx, llm.TierCapable, prompt)
		if eerr == nil {
			// Adopted unconditionally, no blending. At most one escalation.
			return escalated
		}
		slog.Warn("PARSER: Escalation attempt failed, keeping cheap-tier result", "error", eerr)
	}

	return result
}

// ParseImage parses a meal photo supplied as inline base64 data (raw or a
// data: URL). Input that cannot be decoded as image bytes short-circuits to
// the photo fallback without a model call.
func (p *Parser) ParseImage(ctx context.Context, image, hints string) glpcoach.ParseResult {
	ctx, span := otel.Tracer(glpcoach.TracerNameParser).Start(ctx, "Parser.ParseImage")
	defer span.End()

	data, mime, err := decodeInlineImage(image)
	if err != nil {
		slog.Warn("PARSER: Image input not decodable, skipping model call", "error", err)
		return p.photoFallback(confidenceMalformed)
	}

	user := userPromptWithHints("Analyze the attached meal photo.", hints)
	prompt := llm.NewImagePrompt(imageSystemPrompt, user, data, mime)

	result, noFood, err := p.imageAttempt(ctx, llm.TierCheap, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrTransport) {
			return p.photoFallback(confidenceTransport)
		}
		return p.photoFallback(confidenceMalformed)
	}
	if noFood {
		return result
	}

	if p.policy.ShouldEscalate(result.Confidence) {
		slog.Info("PARSER: Escalating image parse to capable tier", "confidence", result.Confidence)
		countEscalation(ctx, "parse_meal_image")
		escalated, _, eerr := p.imageAttempt(ctx, llm.TierCapable, prompt)
		if eerr == nil {
			return escalated
		}
		slog.Warn("PARSER: Image escalation failed, keeping cheap-tier result", "error", eerr)
	}

	return result
}

// ParseExercise parses a free-text exercise description. userWeightKg feeds
// the calorie estimate on both the model and fallback paths.
func (p *Parser) ParseExercise(ctx context.Context, text string, userWeightKg float64) glpcoach.ExerciseParseResult {
	ctx, span := otel.Tracer(glpcoach.TracerNameParser).Start(ctx, "Parser.ParseExercise")
	defer span.End()

	if userWeightKg <= 0 {
		userWeightKg = defaultBodyWeightKg
	}

	user := userPromptWithHints(text, fmt.Sprintf("user body weight: %.1f kg", userWeightKg))
	prompt := llm.NewTextPrompt(exerciseSystemPrompt, user)

	result, err := p.exerciseAttempt(ctx, llm.TierCheap, prompt)
	if err != nil {
		return p.exerciseFallback(text, userWeightKg, err)
	}

	if p.policy.ShouldEscalate(result.Confidence) {
		slog.Info("PARSER: Escalating exercise parse to capable tier", "confidence", result.Confidence)
		countEscalation(ctx, "parse_exercise")
		escalated, eerr := p.exerciseAttempt(ctx, llm.TierCapable, prompt)
		if eerr == nil {
			return escalated
		}
		slog.Warn("PARSER: Exercise escalation failed, keeping cheap-tier result", "error", eerr)
	}

	return result
}

func (p *Parser) mealAttempt(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (glpcoach.ParseResult, error) {
	resp, err := p.invoke(ctx, "parse_meal_text", tier, prompt)
	if err != nil {
		return glpcoach.ParseResult{}, err
	}

	wire, err := decodeMealWire(resp.Content)
	if err != nil {
		slog.Warn("PARSER: Model response failed schema validation", "tier", tier.String(), "error", err)
		return glpcoach.ParseResult{}, err
	}

	return p.finalizeMeal(wire), nil
}

func (p *Parser) imageAttempt(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (glpcoach.ParseResult, bool, error) {
	resp, err := p.invoke(ctx, "parse_meal_image", tier, prompt)
	if err != nil {
		return glpcoach.ParseResult{}, false, err
	}

	wire, err := decodeMealWire(resp.Content)
	if err != nil {
		slog.Warn("PARSER: Image response failed schema validation", "tier", tier.String(), "error", err)
		return glpcoach.ParseResult{}, false, err
	}

	// The model explicitly saw no food: a genuinely empty result at exactly
	// zero confidence, not a sentinel. This is a definitive answer, so it is
	// never escalated.
	if wire.IsFood != nil && !*wire.IsFood {
		return glpcoach.ParseResult{
			Items:         []glpcoach.MealItem{},
			Totals:        glpcoach.MacroTotals{},
			Confidence:    0.0,
			Questions:     []string{"I couldn't find any food in this photo. Could you describe the meal in words instead?"},
			LowConfidence: true,
		}, true, nil
	}

	return p.finalizeMeal(wire), false, nil
}

func (p *Parser) exerciseAttempt(ctx context.Context, tier llm.Tier, prompt llm.Prompt) (glpcoach.ExerciseParseResult, error) {
	resp, err := p.invoke(ctx, "parse_exercise", tier, prompt)
	if err != nil {
		return glpcoach.ExerciseParseResult{}, err
	}

	wire, err := decodeExerciseWire(resp.Content)
	if err != nil {
		slog.Warn("PARSER: Exercise response failed schema validation", "tier", tier.String(), "error", err)
		return glpcoach.ExerciseParseResult{}, err
	}

	return p.finalizeExercise(wire), nil
}

func (p *Parser) invoke(ctx context.Context, op string, tier llm.Tier, prompt llm.Prompt) (llm.Response, error) {
	meter := otel.Meter(glpcoach.TracerNameParser)
	callsCounter, _ := meter.Int64Counter("parser_model_calls_total",
		metric.WithDescription("Total number of model calls made by the parser"))
	callsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("tier", tier.String()),
	))

	start := time.Now()
	resp, err := p.llm.Invoke(ctx, tier, prompt)

	run := glpcoach.ToolRunLog{
		Tool:      op,
		Timestamp: start,
		Model:     tier.String(),
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		run.Error = err.Error()
	} else {
		run.Output = map[string]any{
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		}
	}
	if lerr := p.runLogger.LogRun(run); lerr != nil {
		slog.Error("PARSER: Failed to log model run", "error", lerr)
	}

	return resp, err
}

// finalizeMeal converts a validated wire payload into a ParseResult that
// holds the package invariants: totals recomputed from items, confidence
// clamped, questions per band, and the low-confidence coupling.
func (p *Parser) finalizeMeal(wire mealWire) glpcoach.ParseResult {
	items := make([]glpcoach.MealItem, 0, len(wire.Items))
	for _, wi := range wire.Items {
		item := glpcoach.MealItem{
			Name:     strings.TrimSpace(wi.Name),
			Qty:      wi.Qty,
			Unit:     strings.TrimSpace(wi.Unit),
			Kcal:     int(math.Round(math.Max(wi.Kcal, 0))),
			ProteinG: math.Max(wi.ProteinG, 0),
			CarbsG:   math.Max(wi.CarbsG, 0),
			FatG:     math.Max(wi.FatG, 0),
		}
		if item.Name == "" {
			continue
		}
		if item.Qty <= 0 {
			item.Qty = 1
		}
		if item.Unit == "" {
			item.Unit = "serving"
		}
		items = append(items, item)
	}

	conf := clamp01(wire.Confidence)
	if len(items) == 0 {
		// No food detected is a valid zero-confidence result, not an error.
		conf = 0.0
	}

	first := ""
	if len(items) > 0 {
		first = items[0].Name
	}

	return glpcoach.ParseResult{
		Items:         items,
		Totals:        glpcoach.SumTotals(items),
		Confidence:    conf,
		Questions:     p.policy.Questions(conf, first),
		LowConfidence: p.policy.Low(conf),
	}
}

func (p *Parser) finalizeExercise(wire exerciseWire) glpcoach.ExerciseParseResult {
	items := make([]glpcoach.ExerciseItem, 0, len(wire.Items))
	var totalDur float64
	var totalKcal int
	for _, wi := range wire.Items {
		item := glpcoach.ExerciseItem{
			Name:        strings.TrimSpace(wi.Name),
			Category:    normalizeCategory(wi.Category),
			DurationMin: math.Max(wi.DurationMin, 0),
			Sets:        int(math.Max(wi.Sets, 0)),
			Reps:        int(math.Max(wi.Reps, 0)),
			WeightKg:    math.Max(wi.WeightKg, 0),
			Intensity:   normalizeIntensity(wi.Intensity),
			Equipment:   strings.TrimSpace(wi.Equipment),
			EstKcal:     int(math.Round(math.Max(wi.EstKcal, 0))),
		}
		if item.Name == "" {
			continue
		}
		items = append(items, item)
		totalDur += item.DurationMin
		totalKcal += item.EstKcal
	}

	conf := clamp01(wire.Confidence)
	if len(items) == 0 {
		conf = 0.0
	}

	first := ""
	if len(items) > 0 {
		first = items[0].Name
	}

	return glpcoach.ExerciseParseResult{
		Items:            items,
		TotalDurationMin: totalDur,
		TotalKcal:        totalKcal,
		Confidence:       conf,
		Questions:        p.policy.ExerciseQuestions(conf, first),
		LowConfidence:    p.policy.Low(conf),
	}
}

// textFallback routes a failed text parse to the knowledge-base matcher. The
// confidence encodes the failure class: transient upstream failures rank
// higher than responses that parsed as garbage.
func (p *Parser) textFallback(text string, cause error) glpcoach.ParseResult {
	conf := confidenceMalformed
	if errors.Is(cause, llm.ErrTransport) {
		conf = confidenceTransport
	}

	items := p.matcher.Match(text)
	if IsSentinel(items) {
		conf = confidenceMalformed
	}

	first := ""
	if !IsSentinel(items) {
		first = items[0].Name
	}

	questions := p.policy.Questions(conf, first)

	return glpcoach.ParseResult{
		Items:         items,
		Totals:        glpcoach.SumTotals(items),
		Confidence:    conf,
		Questions:     questions,
		LowConfidence: p.policy.Low(conf),
	}
}

func (p *Parser) photoFallback(conf float64) glpcoach.ParseResult {
	items := []glpcoach.MealItem{{
		Name: SentinelUnidentifiedPhoto,
		Qty:  1,
		Unit: "serving",
	}}
	return glpcoach.ParseResult{
		Items:         items,
		Totals:        glpcoach.SumTotals(items),
		Confidence:    conf,
		Questions:     []string{"I couldn't analyze this photo. Could you describe the meal in words instead?"},
		LowConfidence: p.policy.Low(conf),
	}
}

func (p *Parser) exerciseFallback(text string, weightKg float64, cause error) glpcoach.ExerciseParseResult {
	conf := confidenceMalformed
	if errors.Is(cause, llm.ErrTransport) {
		conf = confidenceTransport
	}

	item, ok := p.estimator.FromText(text, weightKg)
	if !ok {
		return glpcoach.ExerciseParseResult{
			Items:         []glpcoach.ExerciseItem{},
			Confidence:    0.0,
			Questions:     p.policy.ExerciseQuestions(0.0, ""),
			LowConfidence: true,
		}
	}

	return glpcoach.ExerciseParseResult{
		Items:            []glpcoach.ExerciseItem{item},
		TotalDurationMin: item.DurationMin,
		TotalKcal:        item.EstKcal,
		Confidence:       conf,
		Questions:        p.policy.ExerciseQuestions(conf, item.Name),
		LowConfidence:    p.policy.Low(conf),
	}
}

// decodeInlineImage accepts a data: URL or raw base64 and returns the image
// bytes with a sniffed MIME type. External URLs are not fetched here; they
// fail decoding and the caller short-circuits to the photo fallback.
func decodeInlineImage(image string) ([]byte, string, error) {
	image = strings.TrimSpace(image)

	payload := image
	if strings.HasPrefix(image, "data:") {
		idx := strings.Index(image, ";base64,")
		if idx < 0 {
			return nil, "", fmt.Errorf("data URL without base64 payload")
		}
		payload = image[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("not inline base64 image data: %w", err)
	}
	if len(data) < 4 {
		return nil, "", fmt.Errorf("image payload too small")
	}

	return data, sniffImageMIME(data), nil
}

func sniffImageMIME(data []byte) string {
	switch {
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return "image/png"
	case len(data) >= 3 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F':
		return "image/gif"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func countEscalation(ctx context.Context, op string) {
	meter := otel.Meter(glpcoach.TracerNameParser)
	counter, _ := meter.Int64Counter("parser_escalations_total",
		metric.WithDescription("Total number of capable-tier escalations"))
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func normalizeCategory(s string) glpcoach.ExerciseCategory {
	switch glpcoach.ExerciseCategory(strings.ToLower(strings.TrimSpace(s))) {
	case glpcoach.CategoryStrength:
		return glpcoach.CategoryStrength
	case glpcoach.CategoryFlexibility:
		return glpcoach.CategoryFlexibility
	case glpcoach.CategorySport:
		return glpcoach.CategorySport
	default:
		return glpcoach.CategoryCardio
	}
}

func normalizeIntensity(s string) glpcoach.Intensity {
	switch glpcoach.Intensity(strings.ToLower(strings.TrimSpace(s))) {
	case glpcoach.IntensityLow:
		return glpcoach.IntensityLow
	case glpcoach.IntensityHigh:
		return glpcoach.IntensityHigh
	default:
		return glpcoach.IntensityModerate
	}
}
