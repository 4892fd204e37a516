package domain

import (
	"fmt"
	"strings"
)

// OperatingMode selects how much information a notification carries.
type OperatingMode string

const (
	// ModeSimple reports only boolean/aggregate unread state.
	ModeSimple OperatingMode = "simple"
	// ModeExtended reports full account, folder and message snapshots.
	ModeExtended OperatingMode = "extended"
)

// IsValid checks if the operating mode is known.
func (m OperatingMode) IsValid() bool {
	switch m {
	case ModeSimple, ModeExtended:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the mode.
func (m OperatingMode) String() string {
	return string(m)
}

// ParseOperatingMode converts a persisted value into an OperatingMode.
func ParseOperatingMode(value string) (OperatingMode, error) {
	m := OperatingMode(strings.ToLower(strings.TrimSpace(value)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid operating mode: %q", value)
	}
	return m, nil
}

// TransportMode selects how payloads reach the external consumer.
type TransportMode string

const (
	// TransportConnectionless starts one self-contained exchange per payload.
	TransportConnectionless TransportMode = "connectionless"
	// TransportConnectionBased reuses one long-lived channel until torn down.
	TransportConnectionBased TransportMode = "connectionbased"
)

// IsValid checks if the transport mode is known.
func (t TransportMode) IsValid() bool {
	switch t {
	case TransportConnectionless, TransportConnectionBased:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the transport mode.
func (t TransportMode) String() string {
	return string(t)
}

// ParseTransportMode converts a persisted value into a TransportMode.
func ParseTransportMode(value string) (TransportMode, error) {
	t := TransportMode(strings.ToLower(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transport mode: %q", value)
	}
	return t, nil
}

// EventKind tags the reason a notification is sent.
type EventKind string

const (
	EventNew     EventKind = "new"
	EventRead    EventKind = "read"
	EventDeleted EventKind = "deleted"
	EventStart   EventKind = "start"
)

// IsValid checks if the event kind is known.
func (k EventKind) IsValid() bool {
	switch k {
	case EventNew, EventRead, EventDeleted, EventStart:
		return true
	default:
		return false
	}
}

// String returns the wire tag of the event kind.
func (k EventKind) String() string {
	return string(k)
}

// JunkPolicy decides what happens to junk messages reported as new mail.
type JunkPolicy string

const (
	// JunkNotify reports junk arrivals like any other message.
	JunkNotify JunkPolicy = "notify"
	// JunkSkip drops junk arrivals before they reach the seen registry.
	JunkSkip JunkPolicy = "skip"
)

// ParseJunkPolicy converts a config value into a JunkPolicy, defaulting to JunkNotify.
func ParseJunkPolicy(value string) JunkPolicy {
	if JunkPolicy(strings.ToLower(strings.TrimSpace(value))) == JunkSkip {
		return JunkSkip
	}
	return JunkNotify
}
