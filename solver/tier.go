// ABOUTME: Strategy tier enum and the pure escalation function mapping attempt index to tier.
// ABOUTME: Tier selection depends only on the attempt counter and the configured threshold.
package solver

// Tier identifies a strategy escalation level. Higher tiers are slower and
// more expensive; the engine starts cheap and escalates per attempt.
type Tier int

const (
	// TierRules is deterministic instruction-pattern matching, no model call.
	TierRules Tier = iota
	// TierModel is a cheap text model with deterministic settings.
	TierModel
	// TierVision is an expensive model with screenshot and history context.
	TierVision
)

func (t Tier) String() string {
	switch t {
	case TierRules:
		return "rules"
	case TierModel:
		return "model"
	case TierVision:
		return "vision"
	default:
		return "unknown"
	}
}

// TierForAttempt maps a zero-based attempt index to the tier that handles it.
// Attempt 0 is always rules; attempts below threshold use the text model;
// attempts at or past threshold use vision. Pure function of its inputs.
func TierForAttempt(attempt, threshold int) Tier {
	switch {
	case attempt <= 0:
		return TierRules
	case attempt < threshold:
		return TierModel
	default:
		return TierVision
	}
}
