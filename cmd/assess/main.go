package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/levyline/levyline/internal/cache"
	"github.com/levyline/levyline/internal/config"
	"github.com/levyline/levyline/internal/domain/assessment"
	"github.com/levyline/levyline/internal/logger"
	"github.com/levyline/levyline/internal/repository/configfile"
	"github.com/levyline/levyline/internal/service"
	"github.com/levyline/levyline/internal/validator"
	"go.uber.org/fx"
)

var (
	inputPath  = flag.String("input", "", "path to a JSON array of assessment requests")
	outputPath = flag.String("output", "", "path to write assessment results to (default stdout)")
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	flag.Parse()

	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Rates configuration store
			configfile.NewStore,

			// Services
			newServiceParams,
			service.NewBatchService,
		),
		fx.Invoke(runBatch),
	)

	app.Run()
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	c cache.Cache,
	store *configfile.Store,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:          log,
		Config:          cfg,
		Cache:           c,
		RateRepo:        store.RateRepository(),
		PenaltyRuleRepo: store.PenaltyRuleRepository(),
	}
}

// outputItem is the serialized shape of one batch slot
type outputItem struct {
	ClientID string                       `json:"client_id"`
	Result   *assessment.AssessmentResult `json:"result,omitempty"`
	Error    string                       `json:"error,omitempty"`
}

func runBatch(lc fx.Lifecycle, shutdowner fx.Shutdowner, _ *validatorv10.Validate, batch service.BatchService, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := run(context.Background(), batch, log); err != nil {
					log.Errorw("batch run failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}

func run(ctx context.Context, batch service.BatchService, log *logger.Logger) error {
	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		return err
	}

	var requests []*assessment.AssessmentRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return err
	}

	results, err := batch.AssessAll(ctx, requests)
	if err != nil {
		return err
	}

	items := make([]outputItem, len(results))
	for i, r := range results {
		items[i] = outputItem{ClientID: r.Request.ClientID, Result: r.Result}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}

	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}

	if *outputPath == "" {
		_, err = os.Stdout.Write(append(encoded, '\n'))
		return err
	}
	return os.WriteFile(*outputPath, append(encoded, '\n'), 0o644)
}
