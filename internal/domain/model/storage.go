package model

// TierName labels one persistence tier.
type TierName string

const (
	TierRemote TierName = "remote"
	TierA      TierName = "tier_a"
	TierB      TierName = "tier_b"
)

// StorageResult is the per-tier outcome of one mutation.
type StorageResult struct {
	Tier    TierName
	Success bool
	Count   int
	Err     error
}

// StorageOutcome aggregates per-tier results for a single logical write.
// A mutation succeeded "enough" to proceed when at least one tier accepted
// it; partial success stays explicit and queryable instead of being
// collapsed into first-success-wins.
type StorageOutcome []StorageResult

// Succeeded reports whether at least one tier accepted the write.
func (o StorageOutcome) Succeeded() bool {
	for _, r := range o {
		if r.Success {
			return true
		}
	}
	return false
}

// Failed returns the results of tiers that rejected the write.
func (o StorageOutcome) Failed() []StorageResult {
	var out []StorageResult
	for _, r := range o {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

// TierStatus reports connectivity for one store.
type TierStatus struct {
	Tier TierName
	OK   bool
}
