package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	goal := int64(3600)
	payloads := []Payload{
		CategoryCreated{ID: "c1", Name: "Work", Color: "#3B82F6", Icon: "💼", UserID: "u1"},
		ActivityCreated{ID: "a1", Name: "Writing", Icon: "✍️", DailyGoal: &goal, UserID: "u1", CategoryIDs: []string{"c1"}},
		ActivityCategoryLinked{ID: "l1", ActivityID: "a1", CategoryID: "c1"},
		TimeSessionStarted{ID: "s1", ActivityID: "a1", UserID: "u1", StartedAt: 1700000000000},
		TimeSessionStopped{ID: "s1", StoppedAt: 1700000125000, Duration: 125},
		UIStateSet{FilterMode: Set(FilterModeAND), TimerActivityID: Null[string]()},
	}

	for _, p := range payloads {
		t.Run(p.EventName(), func(t *testing.T) {
			w, err := Encode(Event{ID: "ev-1", Payload: p})
			require.NoError(t, err)
			assert.Equal(t, p.EventName(), w.Name)

			got, err := Decode(w)
			require.NoError(t, err)
			assert.Equal(t, "ev-1", got.ID)
			assert.Equal(t, p, got.Payload)
		})
	}
}

func TestDecode_UnknownKindIsFatal(t *testing.T) {
	_, err := Decode(Wire{ID: "ev-1", Name: "v2.CategoryRenamed", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, IsUnknownKind(err))

	var uk *UnknownKindError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "v2.CategoryRenamed", uk.Name)
}

func TestMarshalPayload_NoHTMLEscaping(t *testing.T) {
	raw, err := MarshalPayload(CategoryCreated{ID: "c1", Name: "R&D", Color: "#fff", Icon: "🔬", UserID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"R&D"`)
}

func TestWire_SeqOmittedUntilConfirmed(t *testing.T) {
	w, err := Encode(Event{ID: "ev-1", Payload: ActivityArchived{ID: "a1"}})
	require.NoError(t, err)

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"seq"`)
}
