package model

import (
	"strings"
	"time"
)

// EventType is the versioned base subject of an inbound or outbound event.
// Published subjects carry one extra trailing token (company ID or user ID).
type EventType string

const (
	// V1CallWrapup is published by the dialer when an agent finishes a call and saves notes.
	V1CallWrapup EventType = "v1.calls.wrapup"
	// V1CallbacksChanged is the per-user change notification subject prefix.
	V1CallbacksChanged EventType = "v1.callbacks.changed"
)

func knownEventType(t EventType) bool {
	switch t {
	case V1CallWrapup, V1CallbacksChanged:
		return true
	}
	return false
}

// MapToBaseEventType maps a concrete subject back to its EventType, stripping
// a trailing identifier token when the subject itself is not a known type.
func MapToBaseEventType(input string) (EventType, bool) {
	if knownEventType(EventType(input)) {
		return EventType(input), true
	}

	lastDot := strings.LastIndex(input, ".")
	if lastDot <= 0 {
		return "", false
	}

	base := EventType(input[:lastDot])
	if knownEventType(base) {
		return base, true
	}
	return "", false
}

// Subject appends a scope token (company or user ID) to the event type.
func (e EventType) Subject(scope string) string {
	return string(e) + "." + scope
}

// GetVersion extracts the version from an event type ("v1.calls.wrapup" -> "v1").
func (e EventType) GetVersion() string {
	parts := strings.SplitN(string(e), ".", 2)
	if len(parts) < 2 {
		return ""
	}
	if len(parts[0]) >= 2 && parts[0][0] == 'v' {
		return parts[0]
	}
	return ""
}

// MessageMetadata is the JetStream delivery metadata carried alongside a routed event.
type MessageMetadata struct {
	ConsumerSequence uint64
	StreamSequence   uint64
	NumDelivered     uint64
	NumPending       uint64
	Timestamp        time.Time
	Stream           string
	Consumer         string
	Domain           string
	MessageID        string
	MessageSubject   string
	CompanyID        string
}
