package ports

import (
	"context"

	"github.com/Aloduin/DailyPaper/internal/domain"
)

// PaperSource pulls the paper list for a single calendar date.
type PaperSource interface {
	FetchByDate(ctx context.Context, date string) ([]domain.Paper, error)
}

// DigestSender delivers an assembled digest to the configured recipients.
type DigestSender interface {
	Send(subject, htmlBody, textBody string) error
}
