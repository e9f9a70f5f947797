package provenance

import (
	"fmt"

	"github.com/provguard/provguard/internal/normalize"
)

// CheckParams carries the tuned constants and substitution rules for one
// check run. It is an explicit immutable value threaded through every
// call; concurrent validations never share mutable state.
type CheckParams struct {
	Rules normalize.Rules

	// Layer 1 tuning. MaxDistance bounds the simhash Hamming distance:
	// smaller raises precision, lowers recall.
	ShingleWidth int
	MaxDistance  int

	// Layer 2 acceptance threshold for Jaccard and subset coverage.
	JaccardThreshold float64

	// Pre-filters applied before Layer 1.
	MinTokens              int
	MinLines               int
	MinNetNewLines         int
	MovementRatioThreshold float64
	InfrastructurePatterns []string

	// Bounded parallelism for Layer 2 validation.
	ValidationWorkers int
}

// DefaultCheckParams returns the empirically tuned defaults validated by
// the backtest regression.
func DefaultCheckParams(rules normalize.Rules) CheckParams {
	return CheckParams{
		Rules:                  rules,
		ShingleWidth:           3,
		MaxDistance:            3,
		JaccardThreshold:       0.85,
		MinTokens:              5,
		MinLines:               5,
		MinNetNewLines:         5,
		MovementRatioThreshold: 0.70,
		ValidationWorkers:      4,
	}
}

// Validate rejects unusable tuning before any fingerprinting begins.
func (p CheckParams) Validate() error {
	if p.ShingleWidth < 1 {
		return fmt.Errorf("shingle width must be at least 1")
	}
	if p.MaxDistance < 0 || p.MaxDistance > 64 {
		return fmt.Errorf("max distance must be in [0,64]")
	}
	if p.JaccardThreshold <= 0 || p.JaccardThreshold > 1 {
		return fmt.Errorf("jaccard threshold must be in (0,1]")
	}
	return nil
}
