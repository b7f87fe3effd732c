package protocol

import (
	"crypto/md5"

	"github.com/Tnze/go-mc/offline"
	"github.com/google/uuid"
)

// OfflineUUID is the identifier handed to the backend for a player that has not
// been authenticated: the raw MD5 digest of "OfflinePlayer:" followed by the name.
// Its String form is the 8-4-4-4-12 lowercase hex layout.
func OfflineUUID(username string) uuid.UUID {
	return md5.Sum([]byte("OfflinePlayer:" + username))
}

// OfflineSuggestion reports whether id is what an offline-mode client would
// suggest for username. Clients compute the RFC 4122 version 3 form, so
// this compares against that rather than OfflineUUID.
func OfflineSuggestion(username string, id uuid.UUID) bool {
	return offline.NameToUUID(username) == id
}
