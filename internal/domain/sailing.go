package domain

import (
	"fmt"
	"strings"
	"time"
)

// OperatorStatus is the status an operator has declared for a sailing.
// Empty means no live status has been observed yet.
type OperatorStatus string

const (
	StatusNone     OperatorStatus = ""
	StatusOnTime   OperatorStatus = "on_time"
	StatusDelayed  OperatorStatus = "delayed"
	StatusCanceled OperatorStatus = "canceled"
)

// SailingOrigin records how a sailing record came into existence.
type SailingOrigin string

const (
	// OriginScheduled marks a sailing observed on a published schedule.
	OriginScheduled SailingOrigin = "scheduled"
	// OriginOperatorRemoved marks a sailing synthesized by removal
	// detection: present in the canonical set, silently gone from the
	// operator's live view before its departure time.
	OriginOperatorRemoved SailingOrigin = "operator_removed"
)

// RemovedStatusReason is the reason attached to synthesized removals.
const RemovedStatusReason = "Removed from operator schedule"

// Sailing is the canonical, durable record of one scheduled crossing on one
// service date. Created on first observation, updated on later observations
// that differ, never deleted. A canceled status is terminal.
type Sailing struct {
	Key               string         `json:"sailing_key"`
	ServiceDate       string         `json:"service_date"` // YYYY-MM-DD, America/New_York
	DepartingTerminal string         `json:"departing_terminal"`
	ArrivingTerminal  string         `json:"arriving_terminal"`
	DepartureTime     string         `json:"departure_time_local"`
	ArrivalTime       string         `json:"arrival_time_local,omitempty"`
	Status            OperatorStatus `json:"operator_status"`
	StatusReason      string         `json:"status_reason,omitempty"`
	Origin            SailingOrigin  `json:"sailing_origin"`
	OperatorID        string         `json:"operator_id"`
	FirstSeenAt       time.Time      `json:"first_seen_at"`
	LastSeenAt        time.Time      `json:"last_seen_at"`
	RemovedDetectedAt *time.Time     `json:"removed_detected_at,omitempty"`
}

// CanTransition reports whether an observed status may replace the current
// one. Cancellation is a one-way door: every status may move to canceled,
// nothing moves out of it. A status-less observation carries no information
// and never replaces a known status; schedule scrapes routinely omit status,
// and absence of data must not clear a live-detected one.
func CanTransition(from, to OperatorStatus) bool {
	if to == StatusNone {
		return false
	}
	if from == StatusCanceled {
		return to == StatusCanceled
	}
	return true
}

// ServiceDateLayout is the wire format for service dates.
const ServiceDateLayout = "2006-01-02"

// DepartureAt resolves the sailing's local departure time on its service
// date. The departure time is the scraped display string (e.g. "8:35 AM").
func (s Sailing) DepartureAt(loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(ServiceDateLayout, s.ServiceDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse service date %q: %w", s.ServiceDate, err)
	}
	t, err := parseClockTime(s.DepartureTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// parseClockTime accepts the display formats operators publish:
// "8:35 AM", "08:35 AM", "8:35am", "15:45".
func parseClockTime(v string) (time.Time, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(v), " "))
	// Normalized key form has no space before the meridiem.
	s = strings.ReplaceAll(s, "AM", " AM")
	s = strings.ReplaceAll(s, "PM", " PM")
	s = strings.Join(strings.Fields(s), " ")

	for _, layout := range []string{"3:04 PM", "03:04 PM", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse departure time %q", v)
}

// RawObservation is the validated form of one scraped schedule row. Scraped
// DOM rows are duck-typed; validation tags each row as either a usable
// sailing observation or a parse error before the reconciliation engine
// ever sees it.
type RawObservation struct {
	Kind              ObservationKind `json:"kind"`
	DepartingTerminal string          `json:"departing_terminal,omitempty"`
	ArrivingTerminal  string          `json:"arriving_terminal,omitempty"`
	DepartureTime     string          `json:"departure_time_local,omitempty"`
	ArrivalTime       string          `json:"arrival_time_local,omitempty"`
	Status            OperatorStatus  `json:"operator_status,omitempty"`
	StatusReason      string          `json:"status_reason,omitempty"`
	ParseError        string          `json:"parse_error,omitempty"`
}

// ObservationKind tags a RawObservation variant.
type ObservationKind string

const (
	ObservationSailing    ObservationKind = "sailing"
	ObservationParseError ObservationKind = "parseError"
)

// ValidateObservation converts a scraped schedule row into a tagged
// observation. Terminals and departure time are required; status defaults
// to none and unknown status strings are rejected rather than guessed.
func ValidateObservation(departing, arriving, departureTime, arrivalTime, status, reason string) RawObservation {
	if strings.TrimSpace(departing) == "" || strings.TrimSpace(arriving) == "" {
		return RawObservation{Kind: ObservationParseError, ParseError: "missing terminal"}
	}
	if strings.TrimSpace(departureTime) == "" {
		return RawObservation{Kind: ObservationParseError, ParseError: "missing departure time"}
	}
	if _, err := parseClockTime(departureTime); err != nil {
		return RawObservation{Kind: ObservationParseError, ParseError: err.Error()}
	}

	st, ok := parseStatus(status)
	if !ok {
		return RawObservation{Kind: ObservationParseError, ParseError: "unknown status " + status}
	}

	return RawObservation{
		Kind:              ObservationSailing,
		DepartingTerminal: departing,
		ArrivingTerminal:  arriving,
		DepartureTime:     departureTime,
		ArrivalTime:       arrivalTime,
		Status:            st,
		StatusReason:      strings.TrimSpace(reason),
	}
}

func parseStatus(v string) (OperatorStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return StatusNone, true
	case "on_time", "on time", "ontime":
		return StatusOnTime, true
	case "delayed", "delay":
		return StatusDelayed, true
	case "canceled", "cancelled":
		return StatusCanceled, true
	default:
		return StatusNone, false
	}
}

// SailingKey returns the merge join key for a valid observation.
func (o RawObservation) SailingKey() string {
	return SailingKey(o.DepartingTerminal, o.ArrivingTerminal, o.DepartureTime)
}

// StatusChangeEvent is published to the status topic whenever a persisted
// sailing's operator status changes.
type StatusChangeEvent struct {
	SailingKey  string         `json:"sailing_key"`
	ServiceDate string         `json:"service_date"`
	OperatorID  string         `json:"operator_id"`
	OldStatus   OperatorStatus `json:"old_status"`
	NewStatus   OperatorStatus `json:"new_status"`
	Reason      string         `json:"reason,omitempty"`
	Origin      SailingOrigin  `json:"sailing_origin"`
	ChangedAt   time.Time      `json:"changed_at"`
}
