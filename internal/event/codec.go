package event

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire is the JSON envelope carried in the log and on the sync channel.
// Seq is the authority-assigned sequence position; zero means the event
// has not been confirmed by the authority.
type Wire struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	Seq     int64           `json:"seq,omitempty"`
}

// Encode serializes an event for storage or transmission.
func Encode(ev Event) (Wire, error) {
	raw, err := MarshalPayload(ev.Payload)
	if err != nil {
		return Wire{}, err
	}
	return Wire{ID: ev.ID, Name: ev.Payload.EventName(), Payload: raw}, nil
}

// Decode parses a wire envelope back into a typed event. Fails with
// UnknownKindError when the name matches no payload kind.
func Decode(w Wire) (Event, error) {
	p, err := UnmarshalPayload(w.Name, w.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: w.ID, Payload: p}, nil
}

// MarshalPayload serializes a payload body with HTML escaping disabled so
// the stored form is byte-stable regardless of transport.
func MarshalPayload(p Payload) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", p.EventName(), err)
	}
	return json.RawMessage(bytes.TrimSpace(buf.Bytes())), nil
}

// UnmarshalPayload dispatches a versioned event name to its payload type.
// The switch is the single point where wire names meet Go types; every
// name constant must appear exactly once.
func UnmarshalPayload(name string, data json.RawMessage) (Payload, error) {
	var p Payload
	switch name {
	case NameCategoryCreated:
		p = &CategoryCreated{}
	case NameCategoryUpdated:
		p = &CategoryUpdated{}
	case NameCategoryDeleted:
		p = &CategoryDeleted{}
	case NameActivityCreated:
		p = &ActivityCreated{}
	case NameActivityUpdated:
		p = &ActivityUpdated{}
	case NameActivityArchived:
		p = &ActivityArchived{}
	case NameActivityUnarchived:
		p = &ActivityUnarchived{}
	case NameActivityDeleted:
		p = &ActivityDeleted{}
	case NameActivityCategoryLinked:
		p = &ActivityCategoryLinked{}
	case NameActivityCategoryUnlinked:
		p = &ActivityCategoryUnlinked{}
	case NameTimeSessionStarted:
		p = &TimeSessionStarted{}
	case NameTimeSessionStopped:
		p = &TimeSessionStopped{}
	case NameTimeSessionUpdated:
		p = &TimeSessionUpdated{}
	case NameTimeSessionDeleted:
		p = &TimeSessionDeleted{}
	case NameTimeSessionCreated:
		p = &TimeSessionCreated{}
	case NameUIStateSet:
		p = &UIStateSet{}
	default:
		return nil, &UnknownKindError{Name: name}
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return deref(p), nil
}

// deref returns the payload by value so the sealed-interface values stored
// in events are always comparable structs, matching what committers build.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *CategoryCreated:
		return *v
	case *CategoryUpdated:
		return *v
	case *CategoryDeleted:
		return *v
	case *ActivityCreated:
		return *v
	case *ActivityUpdated:
		return *v
	case *ActivityArchived:
		return *v
	case *ActivityUnarchived:
		return *v
	case *ActivityDeleted:
		return *v
	case *ActivityCategoryLinked:
		return *v
	case *ActivityCategoryUnlinked:
		return *v
	case *TimeSessionStarted:
		return *v
	case *TimeSessionStopped:
		return *v
	case *TimeSessionUpdated:
		return *v
	case *TimeSessionDeleted:
		return *v
	case *TimeSessionCreated:
		return *v
	case *UIStateSet:
		return *v
	default:
		return p
	}
}
