// Package anonymize provides one-way hashing for identifiers that cross the
// tenant boundary. Buyer tax IDs and tenant IDs are digested before any
// network row is written; the plaintext never leaves the contributing call.
package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	id "creditnet/pkg/domain"
)

// normalize strips whitespace and upper-cases the identifier so formatting
// differences ("abcde1234f " vs "ABCDE1234F") hash to the same digest.
func normalize(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}

// HashIdentifier returns the lowercase hex SHA-256 digest of the normalized
// identifier. Deterministic: the same identifier always yields the same
// digest.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(normalize(identifier)))
	return hex.EncodeToString(sum[:])
}

// BuyerID hashes a buyer tax identifier into its network-wide anonymous ID.
func BuyerID(buyerTaxID string) id.GlobalBuyerID {
	return id.GlobalBuyerID(HashIdentifier(buyerTaxID))
}

// TenantID hashes a tenant ID into the anonymous form stored on observations.
func TenantID(tenantID id.TenantID) id.AnonymousTenantID {
	return id.AnonymousTenantID(HashIdentifier(tenantID.String()))
}
