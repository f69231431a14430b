package domain

import "time"

// Settlement is one medical-insurance settlement record owned by a hospital.
type Settlement struct {
	SetlID        string    `json:"setl_id"`
	MdtrtID       string    `json:"mdtrt_id"`
	PsnNo         string    `json:"psn_no"`
	PsnName       string    `json:"psn_name"`
	MedType       string    `json:"med_type"`
	BegnDate      time.Time `json:"begndate"`
	MedfeeSumamt  float64   `json:"medfee_sumamt"`
	HifpPay       float64   `json:"hifp_pay"`
	FixmedinsCode string    `json:"fixmedins_code"`
	FixmedinsName string    `json:"fixmedins_name"`
}

// SettlementFilter carries the caller-supplied search parameters.
// Tenant scope is never part of it; it is derived from the caller identity.
type SettlementFilter struct {
	MdtrtID  string    // exact match
	PsnNo    string    // exact match
	PsnName  string    // partial match
	MedTypes []string  // any of
	DateFrom time.Time // begndate >= DateFrom
	DateTo   time.Time // begndate <= DateTo
	Page     int       // 1-based
	Limit    int       // capped at MaxPageLimit
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize applies pagination defaults and caps.
func (f SettlementFilter) Normalize() SettlementFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// SettlementPage is a page of settlements plus the total matching the same scope.
type SettlementPage struct {
	Items      []Settlement `json:"data"`
	Total      int64        `json:"total_elements"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"total_pages"`
}
