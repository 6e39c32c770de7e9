package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s", e.Actual)
	return buf.String()
}

func (h *Harness) evaluate(ctx context.Context, a Assertion, log []string) error {
	switch a.Type {
	case AssertLogContains:
		return assertLogContains(log, a)
	case AssertLogOrder:
		return assertLogOrder(log, a)
	case AssertLogCount:
		return assertLogCount(log, a)
	case AssertFinalState:
		return h.assertFinalState(ctx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertLogContains(log []string, a Assertion) error {
	for _, name := range log {
		if name == a.Event {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("event %s in log", a.Event),
		Actual:   fmt.Sprintf("log: %v", log),
	}
}

// assertLogOrder checks the kinds appear in the given order. They need
// not be consecutive.
func assertLogOrder(log []string, a Assertion) error {
	next := 0
	for _, name := range log {
		if next < len(a.Events) && name == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Events),
		Actual:   fmt.Sprintf("missing %s; log: %v", a.Events[next], log),
	}
}

func assertLogCount(log []string, a Assertion) error {
	count := 0
	for _, name := range log {
		if name == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertLogCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d occurrences", count),
	}
}

// assertFinalState checks that the named snapshot table holds a row
// matching Where with the Expect field values (subset match).
func (h *Harness) assertFinalState(ctx context.Context, a Assertion) error {
	rows, err := h.snapshotTable(ctx, a.Table)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if !matchFields(row, a.Where, h) {
			continue
		}
		if matchFields(row, a.Expect, h) {
			return nil
		}
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row matching %v with values %v", a.Where, a.Expect),
			Actual:   fmt.Sprintf("row %v", row),
		}
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("row in %s matching %v", a.Table, a.Where),
		Actual:   fmt.Sprintf("no match among %d row(s)", len(rows)),
	}
}

// snapshotTable extracts one table from the state snapshot as generic
// rows. The ui_state singleton is returned as a one-row table.
func (h *Harness) snapshotTable(ctx context.Context, table string) ([]map[string]interface{}, error) {
	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	raw, err := snap.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var tables map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tables); err != nil {
		return nil, err
	}
	data, ok := tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	var rows []map[string]interface{}
	if table == "uiState" {
		var row map[string]interface{}
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, err
		}
		return []map[string]interface{}{row}, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// matchFields reports whether every field in want matches the row.
// String values resolve "$alias" references first; numbers compare by
// value regardless of YAML/JSON representation.
func matchFields(row map[string]interface{}, want map[string]interface{}, h *Harness) bool {
	for key, wantVal := range want {
		gotVal, ok := row[key]
		if !ok {
			return false
		}
		if s, isString := wantVal.(string); isString {
			wantVal = h.resolve(s)
		}
		if !valuesEqual(gotVal, wantVal) {
			return false
		}
	}
	return true
}

func valuesEqual(got, want interface{}) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	if gf, ok := asFloat(got); ok {
		wf, ok := asFloat(want)
		return ok && gf == wf
	}
	return got == want
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
