package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-trading-bot/internal/circuit"
	"solana-trading-bot/internal/engine"
	"solana-trading-bot/internal/fees"
	"solana-trading-bot/internal/ratelimit"
	"solana-trading-bot/internal/retry"
	"solana-trading-bot/internal/risk"
	"solana-trading-bot/internal/venue"
)

func newTestServer(t *testing.T) (*Server, *venue.MockClient) {
	t.Helper()

	logger := zerolog.Nop()
	riskMgr := risk.NewManager(risk.DefaultConfig(), logger)
	breaker := circuit.New("venue", circuit.DefaultConfig(), logger)
	limiter := ratelimit.New("venue", ratelimit.Config{MaxRequests: 100, Window: time.Second}, logger)
	estimator := fees.NewEstimator(5000)
	client := venue.NewMockClient(10000)

	eng := engine.New(engine.Deps{
		Risk:      riskMgr,
		Portfolio: engine.NewPortfolio(10000),
		Client:    client,
		Breaker:   breaker,
		Limiter:   limiter,
		Fees:      estimator,
		Retry:     retry.Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2},
		Mode:      engine.ModePaper,
		Logger:    logger,
	})

	srv := NewServer(ServerConfig{
		Host:           "127.0.0.1",
		Port:           0,
		AllowedOrigins: "*",
		ProductionMode: true,
	}, eng, riskMgr, breaker, limiter, estimator, nil, nil, logger)

	return srv, client
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
	if resp["circuit"] != "closed" {
		t.Errorf("circuit = %v, want closed", resp["circuit"])
	}
}

func TestPortfolioEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/portfolio", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Cash float64 `json:"cash"`
		Mode string  `json:"mode"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Cash != 10000 {
		t.Errorf("cash = %v, want 10000", resp.Cash)
	}
	if resp.Mode != "paper" {
		t.Errorf("mode = %v, want paper", resp.Mode)
	}
}

func TestSubmitTradeExecutes(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/trades", map[string]interface{}{
		"symbol":     "SOL/USDC",
		"side":       "buy",
		"price":      100.0,
		"size":       5.0,
		"confidence": 0.8,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var result engine.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Size != 5 || result.Symbol != "SOL/USDC" {
		t.Errorf("result = %+v, want executed buy of 5", result)
	}
	if srv.engine.Portfolio().Position("SOL/USDC") != 5 {
		t.Errorf("position = %v, want 5", srv.engine.Portfolio().Position("SOL/USDC"))
	}
}

func TestSubmitTradeRejectionMapsTo400(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/trades", map[string]interface{}{
		"symbol":     "SOL/USDC",
		"side":       "buy",
		"price":      100.0,
		"size":       5.0,
		"confidence": 0.2, // below the risk gate minimum
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["kind"] != "validation" {
		t.Errorf("kind = %s, want validation", resp["kind"])
	}
}

func TestSubmitTradeBadSide(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/trades", map[string]interface{}{
		"symbol":     "SOL/USDC",
		"side":       "hold",
		"price":      100.0,
		"confidence": 0.8,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestFeesEndpointValidatesPriority(t *testing.T) {
	srv, _ := newTestServer(t)

	if w := doRequest(t, srv, http.MethodGet, "/api/v1/fees?priority=high", nil); w.Code != http.StatusOK {
		t.Errorf("valid priority: status = %d, want 200", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/v1/fees?priority=extreme", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid priority: status = %d, want 400", w.Code)
	}
}

func TestRecentTradesFallsBackToLedger(t *testing.T) {
	srv, _ := newTestServer(t)

	// Execute one paper trade so the in-memory ledger has an entry.
	sig := engine.NewSignal("SOL/USDC", engine.SideBuy, 100, 0.8)
	sig.Size = 5
	if _, err := srv.engine.Execute(httptest.NewRequest(http.MethodGet, "/", nil).Context(), sig); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/trades", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Trades []risk.Trade `json:"trades"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Trades) != 1 {
		t.Errorf("trades = %d, want 1", len(resp.Trades))
	}
}

func TestRiskMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/risk/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var snap risk.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CurrentCapital != 10000 {
		t.Errorf("capital = %v, want 10000", snap.CurrentCapital)
	}
}
