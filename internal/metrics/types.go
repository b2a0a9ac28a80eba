package metrics

import "time"

// RecentRecovery represents a recently recovered cart.
type RecentRecovery struct {
	CartID      string    `json:"cart_id"`
	CustomerRef string    `json:"customer_ref"`
	Attempts    int       `json:"attempts"`
	RecoveredAt time.Time `json:"recovered_at"`
}

// Stats represents aggregated recovery statistics.
type Stats struct {
	TotalSent      int64     `json:"total_sent"`
	TotalRecovered int64     `json:"total_recovered"`
	TotalExpired   int64     `json:"total_expired"`
	TotalFailed    int64     `json:"total_failed"`
	RecoveryRate   float64   `json:"recovery_rate"`
	LastScan       time.Time `json:"last_scan"`
}
