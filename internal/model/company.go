package model

import "strings"

// Company is one row of the input register: a company whose website we are
// trying to discover.
type Company struct {
	Number   string            `json:"company_number" csv:"CompanyNumber"`
	Name     string            `json:"company_name" csv:"CompanyName"`
	Postcode string            `json:"postcode" csv:"Postcode"`
	SICCodes string            `json:"sic_codes,omitempty" csv:"SICCodes"`
	Extra    map[string]string `json:"extra,omitempty" csv:"-"` // Unrecognized input columns, passed through untouched
}

// Valid reports whether the company carries the fields every search needs.
func (c Company) Valid() bool {
	return strings.TrimSpace(c.Number) != "" &&
		strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.Postcode) != ""
}

// ProcessingStatus is the lifecycle state of a processing session or batch.
type ProcessingStatus string

const (
	StatusRunning     ProcessingStatus = "running"
	StatusCompleted   ProcessingStatus = "completed"
	StatusFailed      ProcessingStatus = "failed"
	StatusInterrupted ProcessingStatus = "interrupted"
)
