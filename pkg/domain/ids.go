package domain

import (
	"github.com/google/uuid"

	dErrors "creditnet/pkg/domain-errors"
)

// TenantID identifies a tenant organization on the platform.
type TenantID uuid.UUID

// ParseTenantID constructs a TenantID from external input.
func ParseTenantID(s string) (TenantID, error) {
	if s == "" {
		return TenantID{}, dErrors.New(dErrors.CodeInvalidInput, "tenant id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return TenantID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant id")
	}
	return TenantID(u), nil
}

func (id TenantID) String() string { return uuid.UUID(id).String() }

// IsNil returns true for the zero tenant ID.
func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// GlobalBuyerID is the network-wide anonymous buyer identifier: the hex
// SHA-256 digest of the buyer's tax identifier. It never contains the
// plaintext identifier.
type GlobalBuyerID string

// ParseGlobalBuyerID validates an already-hashed buyer identifier.
func ParseGlobalBuyerID(s string) (GlobalBuyerID, error) {
	if len(s) != 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "global buyer id must be a sha-256 hex digest")
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", dErrors.New(dErrors.CodeInvalidInput, "global buyer id must be lowercase hex")
		}
	}
	return GlobalBuyerID(s), nil
}

func (id GlobalBuyerID) String() string { return string(id) }

// IsNil returns true for the empty buyer ID.
func (id GlobalBuyerID) IsNil() bool { return id == "" }

// AnonymousTenantID is the hashed form of a TenantID as stored on network
// observations. It shares the digest format with GlobalBuyerID but is kept as
// a distinct type so the two cannot be mixed up.
type AnonymousTenantID string

func (id AnonymousTenantID) String() string { return string(id) }
