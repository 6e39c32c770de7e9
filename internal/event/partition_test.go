package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreID_RoundTrip(t *testing.T) {
	id := StoreID("u1")
	assert.Equal(t, "user-u1", id)

	userID, err := UserIDFromStoreID(id)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestUserIDFromStoreID_RejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "user-", "tenant-u1", "u1"} {
		_, err := UserIDFromStoreID(bad)
		assert.Error(t, err, bad)
	}
}
