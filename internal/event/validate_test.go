package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValid_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		field   string
	}{
		{"category without user", CategoryCreated{ID: "c1", Name: "Work"}, "userId"},
		{"category without name", CategoryCreated{ID: "c1", UserID: "u1"}, "name"},
		{"delete without timestamp", CategoryDeleted{ID: "c1"}, "deletedAt"},
		{"link without category", ActivityCategoryLinked{ID: "l1", ActivityID: "a1"}, "categoryId"},
		{"session without activity", TimeSessionStarted{ID: "s1", UserID: "u1", StartedAt: 1}, "activityId"},
		{"negative duration", TimeSessionStopped{ID: "s1", StoppedAt: 1, Duration: -5}, "duration"},
		{"stop before start", TimeSessionCreated{ID: "s1", ActivityID: "a1", UserID: "u1", StartedAt: 200, StoppedAt: 100}, "stoppedAt"},
		{"bad filter mode", UIStateSet{FilterMode: Set("XOR")}, "filterMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckValid(tt.payload)
			require.Error(t, err)
			assert.True(t, IsSchemaViolation(err))

			var sv *SchemaViolationError
			require.ErrorAs(t, err, &sv)
			fields := make([]string, len(sv.Violations))
			for i, v := range sv.Violations {
				fields[i] = v.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCheckValid_AcceptsWellFormedPayloads(t *testing.T) {
	payloads := []Payload{
		CategoryCreated{ID: "c1", Name: "Work", Color: "#3B82F6", Icon: "💼", UserID: "u1"},
		CategoryUpdated{ID: "c1", Name: Set("Focus")},
		ActivityUpdated{ID: "a1", DailyGoal: Null[int64]()},
		TimeSessionUpdated{ID: "s1", Notes: Null[string]()},
		UIStateSet{},
	}
	for _, p := range payloads {
		assert.NoError(t, CheckValid(p), p.EventName())
	}
}

func TestCheckValid_PatchNullRules(t *testing.T) {
	// Goal fields may be cleared to null; name/icon may not.
	assert.NoError(t, CheckValid(ActivityUpdated{ID: "a1", WeeklyGoal: Null[int64]()}))
	assert.Error(t, CheckValid(ActivityUpdated{ID: "a1", Name: Null[string]()}))

	// Notes may be cleared; startedAt may not.
	assert.NoError(t, CheckValid(TimeSessionUpdated{ID: "s1", Notes: Null[string]()}))
	assert.Error(t, CheckValid(TimeSessionUpdated{ID: "s1", StartedAt: Null[int64]()}))
}
