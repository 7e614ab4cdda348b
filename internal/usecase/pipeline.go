package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aloduin/DailyPaper/internal/domain"
	"github.com/Aloduin/DailyPaper/internal/ports"
)

const dateLayout = "2006-01-02"

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source        ports.PaperSource
	Sender        ports.DigestSender
	Logger        *slog.Logger
	MaxDaysBack   int
	SubjectPrefix string
}

// Pipeline implements the fetch-render-dispatch workflow for one run.
type Pipeline struct {
	source        ports.PaperSource
	sender        ports.DigestSender
	logger        *slog.Logger
	maxDaysBack   int
	subjectPrefix string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:        deps.Source,
		sender:        deps.Sender,
		logger:        deps.Logger,
		maxDaysBack:   deps.MaxDaysBack,
		subjectPrefix: deps.SubjectPrefix,
	}
}

// Run fetches the paper list, renders both digest bodies, and dispatches the
// email. An explicit date skips the fallback walk and fetches that day only.
func (p *Pipeline) Run(ctx context.Context, now time.Time, explicitDate string) error {
	var digest domain.Digest

	if explicitDate != "" {
		papers, err := p.source.FetchByDate(ctx, explicitDate)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", explicitDate, err)
		}
		digest = domain.Digest{Date: explicitDate, Papers: papers}
	} else {
		var err error
		digest, err = p.FetchWithFallback(ctx, now)
		if err != nil {
			return err
		}
	}

	p.debug("digest assembled", "date", digest.Date, "papers", len(digest.Papers))

	subject := p.subject("Hugging Face Daily Papers - " + digest.Date)
	if err := p.sender.Send(subject, RenderHTML(digest), RenderText(digest)); err != nil {
		return fmt.Errorf("dispatch digest: %w", err)
	}
	return nil
}

// FetchWithFallback walks backwards from today until a date yields a
// non-empty paper list, up to maxDaysBack days. The walk short-circuits on
// the first success; a transport failure aborts it immediately and is never
// treated as an empty day. When every candidate is empty the result carries
// today's date with no papers.
func (p *Pipeline) FetchWithFallback(ctx context.Context, now time.Time) (domain.Digest, error) {
	for i := 0; i <= p.maxDaysBack; i++ {
		date := now.AddDate(0, 0, -i).Format(dateLayout)

		papers, err := p.source.FetchByDate(ctx, date)
		if err != nil {
			return domain.Digest{}, fmt.Errorf("fetch %s: %w", date, err)
		}
		if len(papers) > 0 {
			return domain.Digest{Date: date, Papers: papers}, nil
		}

		p.debug("no papers, walking back", "date", date)
	}

	return domain.Digest{Date: now.Format(dateLayout)}, nil
}

// SelfTest sends a fixed diagnostic message through the configured sender,
// verifying the mail-submission path without touching the papers endpoint.
func (p *Pipeline) SelfTest(now time.Time) error {
	stamp := now.Format("2006-01-02 15:04:05 MST")
	subject := p.subject("Connectivity test - " + stamp)

	html := fmt.Sprintf(`<html><body><div style="font-family:Arial,Helvetica,sans-serif;max-width:680px;margin:0 auto;">`+
		`<h2 style="color:#0969da">Connectivity test</h2><p>Time: %s</p><p>The mail delivery path is working.</p>`+
		`</div></body></html>`, stamp)
	text := fmt.Sprintf("Connectivity test\nTime: %s\nThe mail delivery path is working.\n", stamp)

	if err := p.sender.Send(subject, html, text); err != nil {
		return fmt.Errorf("dispatch test message: %w", err)
	}
	return nil
}

func (p *Pipeline) subject(core string) string {
	return strings.TrimSpace(p.subjectPrefix + core)
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
