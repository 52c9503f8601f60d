package models

import "strings"

// EventType is the procurement route of an event
type EventType string

const (
	// EventTypePlaceholder marks an event whose route has not been chosen yet
	EventTypePlaceholder EventType = "TBD"
	EventTypeRFI         EventType = "RFI"
	EventTypeEOI         EventType = "EOI"
	EventTypeDA          EventType = "DA"
	EventTypeFC          EventType = "FC"
	EventTypeFCA         EventType = "FCA"
	EventTypeDAA         EventType = "DAA"
)

// EventKind is the routing variant of an event type
type EventKind int

const (
	KindPlaceholder EventKind = iota
	KindAssessment
	KindMarket
)

func (k EventKind) String() string {
	switch k {
	case KindAssessment:
		return "assessment"
	case KindMarket:
		return "market"
	default:
		return "placeholder"
	}
}

var eventTypeDescriptions = map[EventType]string{
	EventTypeRFI: "Request for Information",
	EventTypeEOI: "Expression of Interest",
	EventTypeDA:  "Direct Award",
	EventTypeFC:  "Further Competition",
	EventTypeFCA: "Further Competition Assessment",
	EventTypeDAA: "Direct Award Assessment",
}

// ConcreteEventTypes lists every assignable type in display order
var ConcreteEventTypes = []EventType{
	EventTypeRFI, EventTypeEOI, EventTypeDA, EventTypeFC, EventTypeFCA, EventTypeDAA,
}

// Classify is the only place that decides how an event type is routed.
// Unknown types classify as placeholder; callers validate with Valid first.
func Classify(t EventType) EventKind {
	switch t {
	case EventTypeFCA, EventTypeDAA:
		return KindAssessment
	case EventTypeRFI, EventTypeEOI, EventTypeDA, EventTypeFC:
		return KindMarket
	default:
		return KindPlaceholder
	}
}

// Valid reports whether t is the placeholder or a known concrete type
func (t EventType) Valid() bool {
	if t == EventTypePlaceholder {
		return true
	}
	_, ok := eventTypeDescriptions[t]
	return ok
}

// Description returns the human readable name of the type
func (t EventType) Description() string {
	if d, ok := eventTypeDescriptions[t]; ok {
		return d
	}
	return "To be decided"
}

// String returns the event type as a string
func (t EventType) String() string {
	return string(t)
}

// EventTypeFromString normalises user input into an EventType
func EventTypeFromString(s string) EventType {
	return EventType(strings.ToUpper(strings.TrimSpace(s)))
}
