// Package fees estimates transaction fees from recent confirmation
// behavior. The estimator keeps a bounded history of (fee, confirmation
// time) pairs, derives a congestion level from average confirmation time,
// and scales the recommended fee by a priority/congestion grid.
package fees

import (
	"math"
	"sync"
	"time"
)

// Priority selects how aggressively a transaction should be priced.
type Priority string

const (
	PriorityLow    Priority = "low"    // economy
	PriorityNormal Priority = "normal" // standard
	PriorityHigh   Priority = "high"   // fast confirmation
)

// CongestionLevel classifies recent network conditions.
type CongestionLevel string

const (
	CongestionLow     CongestionLevel = "low"
	CongestionMedium  CongestionLevel = "medium"
	CongestionHigh    CongestionLevel = "high"
	CongestionExtreme CongestionLevel = "extreme"
)

// Estimate is a fee recommendation band.
type Estimate struct {
	MinFee         uint64  `json:"min_fee"`
	RecommendedFee uint64  `json:"recommended_fee"`
	PriorityFee    uint64  `json:"priority_fee"`
	MaxFee         uint64  `json:"max_fee"`
	Confidence     float64 `json:"confidence"` // 0..1
}

const maxHistory = 100

type sample struct {
	fee     uint64
	elapsed time.Duration
}

// Estimator tracks recent transactions and prices new ones.
type Estimator struct {
	mu      sync.RWMutex
	baseFee uint64
	recent  []sample // bounded ring, oldest first
}

// NewEstimator creates an estimator around the given base fee.
func NewEstimator(baseFee uint64) *Estimator {
	if baseFee == 0 {
		baseFee = 5000
	}
	return &Estimator{baseFee: baseFee}
}

// Record feeds back a confirmed transaction's fee and confirmation time.
func (e *Estimator) Record(fee uint64, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recent = append(e.recent, sample{fee, elapsed})
	if len(e.recent) > maxHistory {
		e.recent = e.recent[1:]
	}
}

// Estimate prices a transaction for the given priority under current
// congestion. With no history it returns a conservative default band.
func (e *Estimator) Estimate(priority Priority) Estimate {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.recent) == 0 {
		return Estimate{
			MinFee:         e.baseFee,
			RecommendedFee: e.baseFee * 2,
			PriorityFee:    e.baseFee * 3,
			MaxFee:         e.baseFee * 10,
			Confidence:     0.5,
		}
	}

	avg := e.averageFee()
	multiplier := feeMultiplier(priority, e.congestion())
	recommended := uint64(float64(avg) * multiplier)
	if recommended < e.baseFee {
		recommended = e.baseFee
	}

	return Estimate{
		MinFee:         e.baseFee,
		RecommendedFee: recommended,
		PriorityFee:    uint64(float64(recommended) * 1.5),
		MaxFee:         e.baseFee * 10,
		Confidence:     e.confidence(),
	}
}

// Congestion returns the current congestion classification.
func (e *Estimator) Congestion() CongestionLevel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.congestion()
}

func (e *Estimator) congestion() CongestionLevel {
	if len(e.recent) == 0 {
		return CongestionLow
	}
	var total time.Duration
	for _, s := range e.recent {
		total += s.elapsed
	}
	avg := total / time.Duration(len(e.recent))

	switch {
	case avg <= 5*time.Second:
		return CongestionLow
	case avg <= 15*time.Second:
		return CongestionMedium
	case avg <= 30*time.Second:
		return CongestionHigh
	default:
		return CongestionExtreme
	}
}

func feeMultiplier(priority Priority, congestion CongestionLevel) float64 {
	if priority == PriorityLow {
		return 0.8
	}
	grid := map[Priority]map[CongestionLevel]float64{
		PriorityNormal: {
			CongestionLow: 1.0, CongestionMedium: 1.2, CongestionHigh: 1.5, CongestionExtreme: 2.0,
		},
		PriorityHigh: {
			CongestionLow: 1.5, CongestionMedium: 2.0, CongestionHigh: 2.5, CongestionExtreme: 3.0,
		},
	}
	if m, ok := grid[priority][congestion]; ok {
		return m
	}
	return 1.0
}

func (e *Estimator) averageFee() uint64 {
	if len(e.recent) == 0 {
		return e.baseFee
	}
	var sum uint64
	for _, s := range e.recent {
		sum += s.fee
	}
	return sum / uint64(len(e.recent))
}

// confidence grows with sample size and shrinks when fees are volatile.
func (e *Estimator) confidence() float64 {
	sampleConfidence := math.Min(float64(len(e.recent))/float64(maxHistory), 1.0)
	if e.feeVariation() > 0.5 {
		sampleConfidence *= 0.7
	}
	return math.Max(sampleConfidence, 0.1)
}

// feeVariation is the coefficient of variation of recent fees.
func (e *Estimator) feeVariation() float64 {
	if len(e.recent) < 2 {
		return 0
	}
	avg := float64(e.averageFee())
	if avg == 0 {
		return 0
	}
	var variance float64
	for _, s := range e.recent {
		d := float64(s.fee) - avg
		variance += d * d
	}
	variance /= float64(len(e.recent))
	return math.Sqrt(variance) / avg
}

// Stats summarizes recent fee behavior for the API.
type Stats struct {
	SampleCount     int             `json:"sample_count"`
	AverageFee      uint64          `json:"average_fee"`
	CongestionLevel CongestionLevel `json:"congestion_level"`
	AvgConfirmation string          `json:"avg_confirmation"`
}

// Stats returns a snapshot of recent transaction behavior.
func (e *Estimator) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var total time.Duration
	for _, s := range e.recent {
		total += s.elapsed
	}
	var avg time.Duration
	if len(e.recent) > 0 {
		avg = total / time.Duration(len(e.recent))
	}
	return Stats{
		SampleCount:     len(e.recent),
		AverageFee:      e.averageFee(),
		CongestionLevel: e.congestion(),
		AvgConfirmation: avg.String(),
	}
}

// PriorityForConfidence maps signal confidence to a fee priority tier:
// high-conviction trades pay for fast confirmation.
func PriorityForConfidence(confidence float64) Priority {
	switch {
	case confidence >= 0.8:
		return PriorityHigh
	case confidence >= 0.6:
		return PriorityNormal
	default:
		return PriorityLow
	}
}
