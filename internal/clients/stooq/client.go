// Package stooq fetches daily closing prices from the Stooq CSV endpoint.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/sectorscope/internal/domain"
)

const defaultBaseURL = "https://stooq.com/q/d/l/"

// Client for the Stooq historical-quotes CSV download endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a Stooq client with a sane request timeout.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "stooq").Logger(),
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint (tests).
func NewClientWithBaseURL(baseURL string, log zerolog.Logger) *Client {
	c := NewClient(log)
	c.baseURL = baseURL
	return c
}

// stooqSymbol maps a US ticker to Stooq's notation: lowercase with a ".us"
// market suffix unless the caller already qualified it.
func stooqSymbol(symbol string) string {
	s := strings.ToLower(symbol)
	if !strings.Contains(s, ".") {
		s += ".us"
	}
	return s
}

// Fetch downloads the daily close series for symbol over [start, end],
// ordered by date ascending. Both bounds are YYYY-MM-DD. An empty result is
// an error: the builder treats it like any other fetch failure.
func (c *Client) Fetch(ctx context.Context, symbol, start, end string) ([]domain.ClosePrice, error) {
	url := fmt.Sprintf("%s?s=%s&d1=%s&d2=%s&i=d",
		c.baseURL,
		stooqSymbol(symbol),
		strings.ReplaceAll(start, "-", ""),
		strings.ReplaceAll(end, "-", ""),
	)
	c.log.Debug().Str("symbol", symbol).Str("url", url).Msg("Fetching daily closes")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq returned status %d", resp.StatusCode)
	}

	prices, err := parseDailyCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("empty series for %s", symbol)
	}

	c.log.Debug().Str("symbol", symbol).Int("count", len(prices)).Msg("Fetched daily closes")
	return prices, nil
}

// parseDailyCSV parses Stooq's "Date,Open,High,Low,Close,Volume" payload.
// Stooq answers "No data" in plain text for unknown symbols; that falls out
// as a missing header below.
func parseDailyCSV(r io.Reader) ([]domain.ClosePrice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	header := records[0]
	dateIdx, closeIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateIdx = i
		case "close":
			closeIdx = i
		}
	}
	if dateIdx < 0 || closeIdx < 0 {
		return nil, fmt.Errorf("unexpected response format (no Date/Close header)")
	}

	prices := make([]domain.ClosePrice, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) <= dateIdx || len(row) <= closeIdx {
			continue
		}
		closeVal, err := strconv.ParseFloat(row[closeIdx], 64)
		if err != nil {
			continue
		}
		prices = append(prices, domain.ClosePrice{Date: row[dateIdx], Close: closeVal})
	}
	return prices, nil
}
