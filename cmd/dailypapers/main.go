package main

import (
	"context"
	"flag"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Aloduin/DailyPaper/internal/app"
	"github.com/Aloduin/DailyPaper/internal/config"
	"github.com/Aloduin/DailyPaper/internal/logging"
)

func main() {
	var (
		date          = flag.String("date", "", "send the digest for this date (YYYY-MM-DD) instead of walking back from today")
		timezone      = flag.String("timezone", "", "IANA timezone the publishing day is aligned to (overrides config)")
		maxDaysBack   = flag.Int("max-days-back", -1, "days to walk back when today has no papers (overrides config)")
		subjectPrefix = flag.String("subject-prefix", "", "text prepended to the subject line (overrides config)")
		selfTest      = flag.Bool("test", false, "send a connectivity test message instead of the digest")
	)
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()
	cfg.ApplyRunOverrides(*timezone, *subjectPrefix, *maxDaysBack)
	logger := logging.New(cfg.Logging.Level)

	application := app.New(cfg, logger)

	if err := application.Run(ctx, app.Options{Date: *date, SelfTest: *selfTest}); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
