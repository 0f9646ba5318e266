package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"glpcoach"
	"glpcoach/coach"
	"glpcoach/llm"
	"glpcoach/nutrition"
	"glpcoach/tools"
	"glpcoach/tools/storage"
)

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

	table, err := nutrition.LoadFoodTable(ctx, storage.NewFileFoodState(agentConfig.FoodsPath))
	if err != nil {
		slog.Warn("SETUP: Could not load food table, using built-in defaults", "path", agentConfig.FoodsPath, "error", err)
		table = nutrition.DefaultFoodTable()
	}
	slog.Info("SETUP: Food table ready", "foods", table.Len())

	store, err := storage.NewSQLiteRecordStore(agentConfig.RecordsDBPath)
	if err != nil {
		slog.Error("SETUP: Failed to open record store", "error", err)
		return
	}
	defer store.Close()

	runLogFile, err := os.Create(glpcoach.NewToolRunLogFilePath(modelConfig.CheapModelID))
	if err != nil {
		slog.Error("SETUP: Failed to create run log file", "error", err)
		return
	}
	runLogger := glpcoach.NewFileToolRunLogger(runLogFile)
	defer func() {
		if err := runLogger.Flush(); err != nil {
			slog.Error("Failed to flush tool run log", "error", err)
		}
		runLogFile.Close()
	}()

	brc, err := newBedrockRuntimeClient(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to create Bedrock client", "error", err)
		return
	}

	client := llm.NewClient(brc, llm.ClientOptions{
		CheapModelID:   modelConfig.CheapModelID,
		CapableModelID: modelConfig.CapableModelID,
		MaxTokens:      modelConfig.MaxTokens,
		Temperature:    modelConfig.Temperature,
		TopP:           modelConfig.TopP,
	})

	parser := nutrition.NewParser(client, table, thresholds, runLogger)

	registry, err := tools.NewRegistry(parser, store)
	if err != nil {
		slog.Error("SETUP: Failed to create tool registry", "error", err)
		return
	}

	tracerProvider, meterProvider, otelShutdown, err := glpcoach.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	_ = meterProvider
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	message := argOr(1, "I had two scrambled eggs and a slice of toast for breakfast, then walked 30 minutes.")
	userCtx := glpcoach.UserContext{UserID: envOr("COACH_USER_ID", "local"), WeightKg: 70}

	tracer := tracerProvider.Tracer(glpcoach.TracerNameCoach)
	ctx, span := tracer.Start(ctx, glpcoach.TracerNameCoach, trace.WithAttributes(
		attribute.String("model.cheap_id", modelConfig.CheapModelID),
		attribute.String("model.capable_id", modelConfig.CapableModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
	))
	defer span.End()

	guard := coach.NewSafetyGuard(client)
	reply := coach.NewCoordinator(client, guard, registry, agentConfig.MaxIterations, runLogger).
		Chat(ctx, message, userCtx)

	out, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		slog.Error("RESULT: Failed to marshal reply", "error", err)
		return
	}
	fmt.Println(string(out))
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
