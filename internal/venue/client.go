// Package venue abstracts the external execution venue behind a narrow
// client interface. The pipeline owns retry and breaker policy; clients
// here only translate one wire protocol into internal types and classified
// errors.
package venue

import "context"

// TradeRequest is a venue-bound execution request.
type TradeRequest struct {
	Symbol  string  `json:"symbol"`
	Size    float64 `json:"size"`
	IsBuy   bool    `json:"is_buy"`
	Price   float64 `json:"price"`    // quote at decision time
	FeeHint uint64  `json:"fee_hint"` // recommended fee from the estimator
}

// ExecutionClient executes trades against a venue and reads the capital
// ground truth. Implementations must be safely retryable at the transport
// level and must classify failures through the errs taxonomy.
type ExecutionClient interface {
	// ExecuteTrade submits the trade and returns the venue's trade id.
	ExecuteTrade(ctx context.Context, req TradeRequest) (string, error)
	// ReadBalance returns the venue-confirmed capital balance.
	ReadBalance(ctx context.Context) (float64, error)
}
