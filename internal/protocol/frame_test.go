package protocol

import (
	"testing"

	"github.com/ZSmain/ordo/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	in := Push("user-u1", []event.Wire{{
		ID:      "ev-1",
		Name:    event.NameCategoryCreated,
		Payload: []byte(`{"id":"c1"}`),
	}})

	data, err := in.Encode()
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FramePush, out.Type)
	assert.Equal(t, "user-u1", out.StoreID)
	require.Len(t, out.Batch, 1)
	assert.Equal(t, "ev-1", out.Batch[0].ID)
}

func TestFrameOmitsUnusedFields(t *testing.T) {
	data, err := Hello("user-u1", 0).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hello","storeId":"user-u1"}`, string(data))

	data, err = Error(CodeUnauthorizedPartitionAccess, "partition mismatch").Encode()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"error","code":"UNAUTHORIZED_PARTITION_ACCESS","message":"partition mismatch"}`,
		string(data))
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"unknown type":    `{"type":"subscribe","storeId":"user-u1"}`,
		"missing storeId": `{"type":"hello"}`,
		"missing code":    `{"type":"error"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}
