// Package billing derives the display state of an organization's own
// platform plan from the raw record kept in sync by payment webhooks.
package billing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type StatusType string

const (
	StatusActive    StatusType = "active"
	StatusInactive  StatusType = "inactive"
	StatusFree      StatusType = "free"
	StatusSecondary StatusType = "secondary"
)

const FreePlanID = "free"

// Record is the raw billing state of an organization.
type Record struct {
	PlanID             string
	SubscriptionStatus string
}

// SubscriptionInfo is the display-ready billing state.
type SubscriptionInfo struct {
	IsFree               bool       `json:"is_free"`
	IsSubscriptionActive bool       `json:"is_subscription_active"`
	CurrentPlanName      string     `json:"current_plan_name"`
	StatusText           string     `json:"status_text"`
	StatusType           StatusType `json:"status_type"`
}

var planNames = map[string]string{
	FreePlanID:   "Free",
	"pro":        "Pro",
	"team":       "Team",
	"enterprise": "Enterprise",
}

// PlanName returns the display name of a platform plan id. Unknown ids are
// shown title-cased.
func PlanName(planID string) string {
	id := strings.ToLower(strings.TrimSpace(planID))
	if id == "" {
		return planNames[FreePlanID]
	}
	if name, ok := planNames[id]; ok {
		return name
	}
	r, size := utf8.DecodeRuneInString(id)
	return string(unicode.ToUpper(r)) + id[size:]
}

type statusRow struct {
	text   string
	typ    StatusType
	active bool
}

var statusTable = map[string]statusRow{
	"active":             {"Active", StatusActive, true},
	"trialing":           {"Trial", StatusActive, true},
	"past_due":           {"Past due", StatusSecondary, true},
	"canceled":           {"Cancelled", StatusInactive, false},
	"incomplete":         {"Incomplete", StatusInactive, false},
	"incomplete_expired": {"Expired", StatusInactive, false},
	"unpaid":             {"Unpaid", StatusInactive, false},
	"paused":             {"Paused", StatusSecondary, false},
	"":                   {"No subscription", StatusInactive, false},
}

// Derive maps a raw record to its SubscriptionInfo. It performs no I/O and
// the same record always produces the same result.
func Derive(r Record) SubscriptionInfo {
	planID := strings.ToLower(strings.TrimSpace(r.PlanID))
	if planID == "" || planID == FreePlanID {
		return SubscriptionInfo{
			IsFree:          true,
			CurrentPlanName: PlanName(FreePlanID),
			StatusText:      "Free plan",
			StatusType:      StatusFree,
		}
	}

	status := strings.ToLower(strings.TrimSpace(r.SubscriptionStatus))
	row, ok := statusTable[status]
	if !ok {
		row = statusRow{text: status, typ: StatusSecondary}
	}

	return SubscriptionInfo{
		IsSubscriptionActive: row.active,
		CurrentPlanName:      PlanName(planID),
		StatusText:           row.text,
		StatusType:           row.typ,
	}
}

// HasActiveProSubscription reports whether a paid plan is in good standing.
func HasActiveProSubscription(info SubscriptionInfo) bool {
	return !info.IsFree && info.IsSubscriptionActive
}
