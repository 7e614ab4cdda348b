package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aloduin/DailyPaper/internal/config"
	"github.com/Aloduin/DailyPaper/internal/infrastructure/huggingface"
	"github.com/Aloduin/DailyPaper/internal/infrastructure/mail"
	"github.com/Aloduin/DailyPaper/internal/logging"
	"github.com/Aloduin/DailyPaper/internal/usecase"
)

// Options carries the per-invocation switches owned by the CLI layer.
type Options struct {
	// Date, when set, bypasses the fallback walk and fetches that day only.
	Date string
	// SelfTest sends a fixed diagnostic message instead of running the pipeline.
	SelfTest bool
}

// Application wires configuration to the pipeline for a single run.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	source := huggingface.NewClient(cfg.Provider.PapersAPIURL, nil, baseLogger.With("component", "source"))
	sender := mail.NewMailer(cfg.Mail, baseLogger.With("component", "mailer"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:        source,
		Sender:        sender,
		Logger:        baseLogger.With("component", "pipeline"),
		MaxDaysBack:   cfg.Run.MaxDaysBack,
		SubjectPrefix: cfg.Run.SubjectPrefix,
	})
	return &Application{cfg: cfg, pipeline: pipeline}
}

// Run performs one execution: either the connectivity self-test or the full
// fetch-render-dispatch pipeline.
func (a *Application) Run(ctx context.Context, opts Options) error {
	now := time.Now().In(a.cfg.Run.Location())

	if opts.SelfTest {
		return a.pipeline.SelfTest(now)
	}
	return a.pipeline.Run(ctx, now, opts.Date)
}
