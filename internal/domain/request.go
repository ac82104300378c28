package domain

import (
	"errors"
	"time"
)

// ErrConflict reports a write that no longer applies to the stored state,
// such as a status change on a request that already moved on.
var ErrConflict = errors.New("conflict")

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusDone     RequestStatus = "done"
	StatusRejected RequestStatus = "rejected"
	StatusCanceled RequestStatus = "canceled"
)

// CanTransition reports whether a request in status s may move to next.
// Only pending requests change status.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if s != StatusPending {
		return false
	}
	switch next {
	case StatusDone, StatusRejected, StatusCanceled:
		return true
	}
	return false
}

var PaymentMethods = []string{"cash", "card", "insurance", "mobile_money"}

var EmergencyTypes = []string{"general", "critical", "non-emergency"}

// AmbulanceRequest is a transport request from a user's position to a
// chosen facility. Distance and ETAMinutes are fixed at submission.
type AmbulanceRequest struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	FacilityID    string        `json:"facility_id"`
	FacilityName  string        `json:"facility_name"`
	Pickup        Coordinate    `json:"pickup"`
	Destination   Coordinate    `json:"destination"`
	PaymentMethod string        `json:"payment_method"`
	EmergencyType string        `json:"emergency_type"`
	Distance      string        `json:"distance"`
	ETAMinutes    int           `json:"eta_minutes"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
