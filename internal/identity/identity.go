// Package identity maps external auth-provider subjects onto the UUID-only
// identity column of the storage backend.
//
// The mapping is a frozen wire contract: every profile row, storage object
// prefix and emoji creator column written so far was keyed by it, so the
// digest, layout and overwritten nibbles must never change.
package identity

import (
	"crypto/md5"
	"regexp"

	"github.com/google/uuid"
)

// StorageIdentity is the UUID-shaped key used for profile rows and the auth shadow user.
type StorageIdentity = uuid.UUID

var storageIdentityPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-8[0-9a-f]{3}-[0-9a-f]{12}$`)

// DeriveStorageIdentity hashes externalID with MD5 and lays the digest out as
// 8-4-4-4-12 lowercase hex, forcing the first hex digit of the third group to
// '4' and of the fourth group to '8'. The result is pure and deterministic.
//
// This is not uuid.NewMD5: that helper hashes a namespace prefix and keeps the
// low variant bits differently.
func DeriveStorageIdentity(externalID string) StorageIdentity {
	sum := md5.Sum([]byte(externalID))
	var id uuid.UUID
	copy(id[:], sum[:])
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x0f) | 0x80
	return id
}

// IsStorageIdentity reports whether s has the exact lexical shape produced by
// DeriveStorageIdentity.
func IsStorageIdentity(s string) bool {
	return storageIdentityPattern.MatchString(s)
}

// ParseStorageIdentity parses s and rejects anything that could not have been derived.
func ParseStorageIdentity(s string) (StorageIdentity, error) {
	if !IsStorageIdentity(s) {
		return uuid.Nil, ErrInvalidStorageIdentity
	}
	return uuid.Parse(s)
}
