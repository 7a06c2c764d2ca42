package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/errs"
)

// HTTPConfig points the client at a venue gateway.
type HTTPConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// HTTPClient talks to a swap-router style venue gateway over REST.
type HTTPClient struct {
	config HTTPConfig
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPClient creates a venue client with a bounded transport timeout.
func NewHTTPClient(config HTTPConfig, logger zerolog.Logger) *HTTPClient {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &HTTPClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

type swapRequest struct {
	Symbol  string  `json:"symbol"`
	Size    float64 `json:"size"`
	Side    string  `json:"side"`
	Price   float64 `json:"price"`
	FeeHint uint64  `json:"fee_hint,omitempty"`
}

type swapResponse struct {
	TradeID string `json:"trade_id"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// ExecuteTrade submits a swap and returns the venue trade id.
func (c *HTTPClient) ExecuteTrade(ctx context.Context, req TradeRequest) (string, error) {
	side := "sell"
	if req.IsBuy {
		side = "buy"
	}
	body := swapRequest{
		Symbol:  req.Symbol,
		Size:    req.Size,
		Side:    side,
		Price:   req.Price,
		FeeHint: req.FeeHint,
	}

	var resp swapResponse
	if err := c.do(ctx, http.MethodPost, "/v1/swap", body, &resp); err != nil {
		return "", err
	}
	if resp.TradeID == "" {
		return "", errs.InvalidTransaction("venue returned empty trade id")
	}
	return resp.TradeID, nil
}

// ReadBalance returns the venue-confirmed balance.
func (c *HTTPClient) ReadBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.KindValidation, err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return errs.Wrap(errs.KindValidation, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return errs.Wrap(errs.KindTimeout, err, "%s %s", method, path)
		}
		return errs.Wrap(errs.KindNetwork, err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errs.Wrap(errs.KindNetwork, err, "read response")
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("venue request")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errs.FromHTTPStatus(resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errs.Wrap(errs.KindAPI, err, "decode response")
		}
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var _ ExecutionClient = (*HTTPClient)(nil)

// String identifies the client in logs.
func (c *HTTPClient) String() string {
	return fmt.Sprintf("venue-http(%s)", c.config.BaseURL)
}
