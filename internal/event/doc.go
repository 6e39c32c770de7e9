// Package event defines the domain events of the time tracker and their
// wire encoding.
//
// Events are the sole source of truth: materialized tables are always a
// left-fold over the event sequence and are never written directly. Every
// payload kind is a distinct struct implementing the sealed Payload
// interface, so dispatch over event kinds is an exhaustive type switch
// checked at compile time rather than a runtime string match.
//
// Event names are versioned ("v1.CategoryCreated"). Decoding a name that
// no payload type claims fails with UnknownKindError - that indicates
// version skew between the writer and this materializer and is fatal.
//
// Update events carry Field[T] patch values with explicit presence and
// null flags, so "field absent" and "field present but null" are distinct
// on the wire and in the merge logic.
//
// All timestamps are Unix milliseconds (int64). Wall-clock time is fixed
// into the payload at commit time; nothing downstream of commit reads the
// clock, which is what keeps replay deterministic.
package event
