// Package auditlog models the shared audit-event feed and decides which
// records each admin department may see.
package auditlog

import (
	"strings"
	"time"
)

// Event types emitted by the wallet backend.
const (
	TypeLogin  = "login"
	TypeLogout = "logout"

	TypeCreate          = "create"
	TypeUpdate          = "update"
	TypeDelete          = "delete"
	TypeNoteAdded       = "note_added"
	TypeNoteUpdated     = "note_updated"
	TypeConcernResolved = "concern_resolved"

	TypeDriverLogin  = "driver_login"
	TypeDriverLogout = "driver_logout"
	TypeTripStart    = "trip_start"
	TypeTripEnd      = "trip_end"
	TypeRouteChange  = "route_change"
	TypeTripRefund   = "trip_refund"
	TypeRefund       = "refund"

	TypeCashIn       = "cash_in"
	TypeRegistration = "registration"

	TypeMerchantLogin  = "merchant_login"
	TypeMerchantLogout = "merchant_logout"

	TypeManualExport = "manual_export"
	TypeAutoExport   = "auto_export"
	TypeConfigUpdate = "config_update"
)

// Target entities referenced by TargetEntity.
const (
	EntityUser        = "user"
	EntityTransaction = "transaction"
	EntityDriver      = "driver"
	EntityShuttle     = "shuttle"
	EntityRoute       = "route"
	EntityTrip        = "trip"
	EntityMerchant    = "merchant"
)

// Metadata holds the optional attribution and foreign keys of an event.
type Metadata struct {
	AdminRole     string `json:"adminRole,omitempty"`
	DriverID      string `json:"driverId,omitempty"`
	ShuttleID     string `json:"shuttleId,omitempty"`
	RouteID       string `json:"routeId,omitempty"`
	TripID        string `json:"tripId,omitempty"`
	MerchantID    string `json:"merchantId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// EventRecord is one entry of the audit feed.
type EventRecord struct {
	ID           string    `json:"id,omitempty"`
	EventType    string    `json:"eventType"`
	Description  string    `json:"description,omitempty"`
	TargetEntity string    `json:"targetEntity,omitempty"`
	Department   string    `json:"department,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitzero"`
	Metadata     Metadata  `json:"metadata"`
}

// NormalizeType folds case and treats '-' and ' ' as '_'.
func NormalizeType(eventType string) string {
	t := strings.ToLower(strings.TrimSpace(eventType))
	return strings.NewReplacer("-", "_", " ", "_").Replace(t)
}

func (e EventRecord) normalizedType() string { return NormalizeType(e.EventType) }

func (e EventRecord) attributedRole() string {
	return strings.ToLower(strings.TrimSpace(e.Metadata.AdminRole))
}

func (e EventRecord) department() string {
	return strings.ToLower(strings.TrimSpace(e.Department))
}

func (e EventRecord) target() string {
	return strings.ToLower(strings.TrimSpace(e.TargetEntity))
}
