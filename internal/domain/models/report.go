package models

// RunSummary is the outcome of a single low-stock evaluation.
type RunSummary struct {
	RecipientsCount int    `json:"recipientsCount"`
	LowCount        int    `json:"lowCount"`
	NewlyLowCount   int    `json:"newlyLowCount"`
	SentThreshold   bool   `json:"sentThreshold"`
	SentDaily       bool   `json:"sentDaily"`
	Error           string `json:"error,omitempty"`
}
