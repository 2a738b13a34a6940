// Package model defines the domain types shared by the simulator, the
// reporter and the run store.
package model

import (
	"fmt"
	"strings"
)

// EventType identifies the macro event assumed to hit the market in a scenario.
//
// The numeric order is the canonical report order: Negative, Neutral, Positive.
type EventType int

const (
	// EventNegative suppresses undecided buyers and delays committed ones.
	EventNegative EventType = iota
	// EventNeutral is the baseline; the event year has no effect.
	EventNeutral
	// EventPositive converts undecided buyers and pulls purchases forward.
	EventPositive
)

// EventTypes returns every event type in canonical order.
func EventTypes() []EventType {
	return []EventType{EventNegative, EventNeutral, EventPositive}
}

func (t EventType) String() string {
	switch t {
	case EventNegative:
		return "Negative"
	case EventNeutral:
		return "Neutral"
	case EventPositive:
		return "Positive"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return t >= EventNegative && t <= EventPositive
}

// ParseEventType parses a case-insensitive event type name.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "negative":
		return EventNegative, nil
	case "neutral":
		return EventNeutral, nil
	case "positive":
		return EventPositive, nil
	default:
		return 0, fmt.Errorf("unknown event type %q", s)
	}
}

// Bucket is a column of a plan table: how far a sub-group of a cohort will
// shift its purchase when an event gives it a reason to.
type Bucket int

// Plan table columns.
const (
	BucketNone Bucket = iota
	BucketShift1
	BucketShift2
	BucketShift3
	BucketUnconditional
)

// NumBuckets is the number of columns in a plan table row.
const NumBuckets = 5

// Shift returns the number of years the bucket moves a purchase, or -1 for
// the unconditional bucket.
func (b Bucket) Shift() int {
	if b == BucketUnconditional {
		return -1
	}
	return int(b)
}

func (b Bucket) String() string {
	switch b {
	case BucketNone:
		return "none"
	case BucketShift1, BucketShift2, BucketShift3:
		return fmt.Sprintf("shift-%d", int(b))
	case BucketUnconditional:
		return "unconditional"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}
