package event

import (
	"fmt"
	"strings"
)

// storeIDPrefix pins the partition id to its owning user. A store's log
// can only ever hold that user's events because every partition id embeds
// exactly one user id.
const storeIDPrefix = "user-"

// StoreID returns the partition id for a user's store.
func StoreID(userID string) string {
	return storeIDPrefix + userID
}

// UserIDFromStoreID extracts the user id from a partition id. Fails when
// the id does not follow the "user-<id>" pattern.
func UserIDFromStoreID(storeID string) (string, error) {
	userID, ok := strings.CutPrefix(storeID, storeIDPrefix)
	if !ok || userID == "" {
		return "", fmt.Errorf("malformed store id %q", storeID)
	}
	return userID, nil
}
