package store

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainRequest prefixes request-key hashes. The version suffix allows a
// future change of key derivation without colliding with old journals.
const DomainRequest = "datasync/request/v1"

// RequestKey returns the journal key for a request URL.
// Format: hex(SHA256(DomainRequest + 0x00 + NFC(url)))
func RequestKey(url string) string {
	return hashWithDomain(DomainRequest, []byte(norm.NFC.String(url)))
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
