package dto

// TierStatus reports connectivity for one store.
type TierStatus struct {
	Tier string `json:"tier"`
	OK   bool   `json:"ok"`
}

// HealthResponse summarizes remote and tier reachability.
type HealthResponse struct {
	Remote bool         `json:"remote"`
	Tiers  []TierStatus `json:"tiers"`
}
