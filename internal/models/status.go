package models

// TenderStatus is the unified lifecycle status reported for every event
type TenderStatus string

const (
	TenderStatusPlanning     TenderStatus = "planning"
	TenderStatusPlanned      TenderStatus = "planned"
	TenderStatusActive       TenderStatus = "active"
	TenderStatusComplete     TenderStatus = "complete"
	TenderStatusCancelled    TenderStatus = "cancelled"
	TenderStatusUnsuccessful TenderStatus = "unsuccessful"
	TenderStatusWithdrawn    TenderStatus = "withdrawn"
)

var tenderStatuses = map[TenderStatus]struct{}{
	TenderStatusPlanning:     {},
	TenderStatusPlanned:      {},
	TenderStatusActive:       {},
	TenderStatusComplete:     {},
	TenderStatusCancelled:    {},
	TenderStatusUnsuccessful: {},
	TenderStatusWithdrawn:    {},
}

// Valid reports whether s is part of the unified vocabulary
func (s TenderStatus) Valid() bool {
	_, ok := tenderStatuses[s]
	return ok
}

// String returns the status as a string
func (s TenderStatus) String() string {
	return string(s)
}
