package model

import "time"

// DomainState is the persisted form of the domain frequency tracker.
type DomainState struct {
	DomainCounts   map[string]int      `json:"domain_counts"`
	CompanyDomains map[string][]string `json:"company_domains"` // domain -> companies whose results included it
	TotalSearches  int                 `json:"total_searches"`
}

// Checkpoint records the completion of one batch within a session.
type Checkpoint struct {
	ID                 string           `json:"id"`
	SessionID          string           `json:"session_id"`
	BatchNumber        int              `json:"batch_number"`
	CompaniesProcessed int              `json:"companies_processed"`
	Status             ProcessingStatus `json:"status"`
	CompletedAt        time.Time        `json:"completed_at"`
}

// ResumePosition is where a restarted run picks up.
type ResumePosition struct {
	NextBatch          int `json:"next_batch"`
	CompaniesProcessed int `json:"companies_processed"`
}

// ProcessingStats summarizes all recorded checkpoints.
type ProcessingStats struct {
	TotalBatches     int        `json:"total_batches"`
	CompletedBatches int        `json:"completed_batches"`
	FailedBatches    int        `json:"failed_batches"`
	TotalCompanies   int        `json:"total_companies"`
	LastCheckpoint   *time.Time `json:"last_checkpoint,omitempty"`
}

// BatchResult summarizes one processed batch.
type BatchResult struct {
	BatchNumber       int           `json:"batch_number"`
	CompaniesTotal    int           `json:"companies_total"`
	CompaniesMatched  int           `json:"companies_matched"`
	CompaniesErrored  int           `json:"companies_errored"`
	CandidatesWritten int           `json:"candidates_written"`
	Duration          time.Duration `json:"duration"`
}

// SuccessRate is the percentage of companies that produced at least one
// candidate above the confidence threshold.
func (b BatchResult) SuccessRate() float64 {
	if b.CompaniesTotal == 0 {
		return 0
	}
	return float64(b.CompaniesMatched) / float64(b.CompaniesTotal) * 100
}
