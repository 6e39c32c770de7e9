// Package harness provides a conformance testing framework for the
// event-sourced store and its action layer.
//
// Scenarios are YAML files describing a flow of user actions. The
// harness executes them against a fresh in-memory store with a frozen
// clock and sequential event ids, so every run produces the same log,
// then evaluates assertions on that log and the materialized state.
package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ZSmain/ordo/internal/actions"
	"github.com/ZSmain/ordo/internal/event"
	"github.com/ZSmain/ordo/internal/store"
	"github.com/ZSmain/ordo/internal/testutil"
)

// scenarioEpoch is the frozen start time for every scenario run.
const scenarioEpoch = int64(1700000000000)

// Result holds the outcome of a scenario run.
type Result struct {
	Passed   bool
	Failures []string

	// Log is the event kind sequence the flow produced, in canonical
	// order.
	Log []string
}

// Harness executes one scenario against a fresh store.
type Harness struct {
	store   *store.Store
	actions *actions.Actions
	clock   *testutil.WallClock
	aliases map[string]string
}

// Run executes a test scenario and returns the result.
// Each scenario runs in a fresh in-memory database for isolation.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", scenario.User)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewWallClock(time.UnixMilli(scenarioEpoch))
	h := &Harness{
		store: st,
		actions: actions.New(st,
			actions.WithIDGenerator(testutil.NewSeqIDs("ev")),
			actions.WithNow(clock.Now)),
		clock:   clock,
		aliases: make(map[string]string),
	}

	ctx := context.Background()
	result := &Result{Passed: true}

	for i, step := range scenario.Setup {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
	}

	for i, step := range scenario.Flow {
		err := h.executeStep(ctx, step)
		if failure := checkExpect(step, err); failure != "" {
			result.Passed = false
			result.Failures = append(result.Failures,
				fmt.Sprintf("flow step %d (%s): %s", i, step.Action, failure))
		}
	}

	log, err := st.Log(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	for _, w := range log {
		result.Log = append(result.Log, w.Name)
	}

	for i, assertion := range scenario.Assertions {
		if err := h.evaluate(ctx, assertion, result.Log); err != nil {
			result.Passed = false
			result.Failures = append(result.Failures,
				fmt.Sprintf("assertion %d: %v", i, err))
		}
	}

	return result, nil
}

// checkExpect compares a step's outcome against its expect clause and
// returns a failure description, or "" when the outcome matches.
func checkExpect(step Step, err error) string {
	if step.Expect == "" {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if err == nil {
		return fmt.Sprintf("expected %s error, got success", step.Expect)
	}
	if !errorMatches(step.Expect, err) {
		return fmt.Sprintf("expected %s error, got: %v", step.Expect, err)
	}
	return ""
}

func errorMatches(name string, err error) bool {
	switch name {
	case "active_session":
		return actions.IsActiveSession(err)
	case "schema_violation":
		return event.IsSchemaViolation(err)
	default:
		return strings.Contains(err.Error(), name)
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch step.Action {
	case "clock.advance":
		d, err := time.ParseDuration(h.stringArg(step.Args, "duration"))
		if err != nil {
			return fmt.Errorf("clock.advance: %w", err)
		}
		h.clock.Advance(d)
		return nil

	case "category.create":
		id, err := h.actions.CreateCategory(ctx, actions.CategoryInput{
			Name:  h.stringArg(step.Args, "name"),
			Color: h.stringArg(step.Args, "color"),
			Icon:  h.stringArg(step.Args, "icon"),
		})
		h.capture(step.As, id)
		return err

	case "category.delete":
		return h.actions.DeleteCategory(ctx, h.stringArg(step.Args, "id"))

	case "activity.create":
		id, err := h.actions.CreateActivity(ctx, actions.ActivityInput{
			Name:        h.stringArg(step.Args, "name"),
			Icon:        h.stringArg(step.Args, "icon"),
			CategoryIDs: h.stringSliceArg(step.Args, "categories"),
		})
		h.capture(step.As, id)
		return err

	case "activity.archive":
		return h.actions.ArchiveActivity(ctx, h.stringArg(step.Args, "id"))

	case "activity.set_categories":
		return h.actions.SetActivityCategories(ctx,
			h.stringArg(step.Args, "id"),
			h.stringSliceArg(step.Args, "categories"))

	case "session.start":
		id, err := h.actions.StartSession(ctx, h.stringArg(step.Args, "activity"))
		h.capture(step.As, id)
		return err

	case "session.stop":
		return h.actions.StopSession(ctx, h.stringArg(step.Args, "id"))

	case "ui.filter_mode":
		return h.actions.SetFilterMode(ctx, h.stringArg(step.Args, "mode"))

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

// capture stores a returned id under the step's alias.
func (h *Harness) capture(alias, id string) {
	if alias != "" && id != "" {
		h.aliases[alias] = id
	}
}

// resolve substitutes "$alias" references with captured ids.
func (h *Harness) resolve(v string) string {
	if strings.HasPrefix(v, "$") {
		if id, ok := h.aliases[v[1:]]; ok {
			return id
		}
	}
	return v
}

func (h *Harness) stringArg(args map[string]interface{}, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return h.resolve(v)
}

func (h *Harness) stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, h.resolve(s))
		}
	}
	return out
}
