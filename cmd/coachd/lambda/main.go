package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"glpcoach"
	"glpcoach/coach"
	"glpcoach/llm"
	"glpcoach/nutrition"
	"glpcoach/tools"
	"glpcoach/tools/storage"
)

type Params struct {
	Message  string  `json:"message"`
	UserID   string  `json:"user_id"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

type Results struct {
	Reply glpcoach.CoachReply `json:"reply"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
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

		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		foodsKey := os.Getenv("ARTIFACTS_FOODS_S3_KEY")

		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}

		table := nutrition.DefaultFoodTable()
		if s3Bucket != "" && foodsKey != "" {
			s3Client := s3.NewFromConfig(awsCfg)
			loaded, lerr := nutrition.LoadFoodTable(ctx, storage.NewS3FoodState(s3Client, s3Bucket, foodsKey))
			if lerr != nil {
				slog.Warn("SETUP: Could not load food table from S3, using built-in defaults", "error", lerr)
			} else {
				table = loaded
			}
		}
		slog.Info("SETUP: Food table ready", "foods", table.Len())

		store, err := storage.NewSQLiteRecordStore(agentConfig.RecordsDBPath)
		if err != nil {
			slog.Error("SETUP: Failed to open record store", "error", err)
			return Results{}, err
		}
		defer store.Close()

		runLogger := glpcoach.NewStdoutToolRunLogger()

		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to create Bedrock client", "error", err)
			return Results{}, err
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
			return Results{}, err
		}

		_, meterProvider, otelShutdown, err := glpcoach.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return Results{}, err
		}
		_ = meterProvider
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		guard := coach.NewSafetyGuard(client)
		reply := coach.NewCoordinator(client, guard, registry, agentConfig.MaxIterations, runLogger).
			Chat(ctx, params.Message, glpcoach.UserContext{UserID: params.UserID, WeightKg: params.WeightKg})

		return Results{Reply: reply}, nil
	}

	lambda.Start(fn)
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
