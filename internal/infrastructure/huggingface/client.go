package huggingface

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Aloduin/DailyPaper/internal/domain"
	"github.com/Aloduin/DailyPaper/internal/ports"
)

const defaultAPIURL = "https://huggingface.co/api/daily_papers"

// Client fetches the daily-papers list for a calendar date.
type Client struct {
	apiURL string
	client *http.Client
	logger *slog.Logger
}

var _ ports.PaperSource = (*Client)(nil)

// NewClient wires an HTTP client; apiURL defaults to the public endpoint.
func NewClient(apiURL string, client *http.Client, log *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{apiURL: apiURL, client: client, logger: log}
}

// FetchByDate requests the paper list published on the given YYYY-MM-DD date.
// Non-200 responses and transport failures propagate as errors; recognized
// payloads of any shape normalize without failing.
func (c *Client) FetchByDate(ctx context.Context, date string) ([]domain.Paper, error) {
	endpoint, err := buildDateURL(c.apiURL, date)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "DailyPaper/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request papers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daily papers returned %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	papers := Normalize(payload)
	c.debug("fetched papers", "date", date, "count", len(papers))
	return papers, nil
}

func buildDateURL(base, date string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid papers api url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("date", date)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
