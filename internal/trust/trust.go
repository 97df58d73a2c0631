// Package trust turns classifier probabilities into a trust score and a banking decision.
package trust

import (
	"errors"
	"fmt"
	"math"
)

// DefaultThreshold is the trust score below which a caller is blocked.
const DefaultThreshold = 50

// ErrInvalidScore is returned for trust scores outside of [0, 100].
var ErrInvalidScore = errors.New("trust score must be within [0, 100]")

type Decision string

const (
	Allowed Decision = "allowed"
	Blocked Decision = "blocked"
)

// Verdict labels the most probable class.
type Verdict struct {
	Label      string  `json:"label"` // real or deepfake
	Confidence float64 `json:"confidence"`
}

// Assessment is the outcome of the decision policy for a single clip.
type Assessment struct {
	TrustScore  int      `json:"trustScore"`
	Decision    Decision `json:"decision"`
	Explanation string   `json:"explanation"`
	Status      string   `json:"status"`
	BankAction  string   `json:"bankAction"`
	BankStatus  string   `json:"bankStatus"`
	Verdict     Verdict  `json:"verdict"`
}

// Policy maps probabilities to decisions.
type Policy struct {
	Threshold int
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold}
}

// Assess evaluates the class probabilities [P(real), P(synthetic)].
func (p Policy) Assess(proba []float64) (Assessment, error) {
	if len(proba) != 2 {
		return Assessment{}, fmt.Errorf("assess: expected 2 class probabilities but got %d", len(proba))
	}

	score := Score(proba[0])
	decision := p.Decide(score)

	a := Assessment{
		TrustScore:  score,
		Decision:    decision,
		Explanation: Explain(score),
		Status:      "Safe Call",
		BankAction:  "Transaction ALLOWED",
		BankStatus:  "APPROVED",
		Verdict: Verdict{
			Label:      "real",
			Confidence: math.Max(proba[0], proba[1]) * 100,
		},
	}

	if decision == Blocked {
		a.Status = "Scam Alert Triggered"
		a.BankAction = "Transaction BLOCKED"
		a.BankStatus = "BLOCKED"
	}

	if proba[1] > proba[0] {
		a.Verdict.Label = "deepfake"
	}

	return a, nil
}

// Score converts the probability of a real voice into a trust score within [0, 100].
// Fractions are truncated.
func Score(pReal float64) int {
	if math.IsNaN(pReal) {
		return 0
	}

	return int(math.Max(0, math.Min(1, pReal)) * 100)
}

// Decide blocks scores below the threshold.
func (p Policy) Decide(score int) Decision {
	if score < p.Threshold {
		return Blocked
	}
	return Allowed
}

// Validate rejects thresholds outside of the trust score range.
// A threshold of 0 never blocks, 100 blocks everything but a perfect score.
func (p Policy) Validate() error {
	if p.Threshold < 0 || p.Threshold > 100 {
		return fmt.Errorf("invalid threshold %d: must be within [0, 100]", p.Threshold)
	}
	return nil
}

// Explain returns the risk explanation shown to the operator.
func Explain(score int) string {
	switch {
	case score < 30:
		return "Extremely high synthetic patterns detected"
	case score < 50:
		return "Voice shows unnatural frequency variations"
	case score < 70:
		return "Minor anomalies detected"
	default:
		return "Natural human voice patterns confirmed"
	}
}

// Verification is the answer of the bank's transaction verification API.
type Verification struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Verify decides whether a transaction may proceed given a caller's trust score.
func (p Policy) Verify(score int) (Verification, error) {
	if score < 0 || score > 100 {
		return Verification{}, fmt.Errorf("%w: %d", ErrInvalidScore, score)
	}

	if p.Decide(score) == Blocked {
		return Verification{
			Status:  "blocked",
			Message: "Suspicious voice detected. Transaction stopped.",
		}, nil
	}

	return Verification{
		Status:  "approved",
		Message: "Voice verified. Transaction allowed.",
	}, nil
}
