// Package privacy provides helpers for handling visitor identifiers in audit
// data without storing raw personal data.
package privacy

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/blake2b"
)

// AnonymizeIP truncates an IP address to remove the host-identifying portion.
//
// IPv4 addresses keep their /24 prefix ("192.168.1.47" -> "192.168.1.0").
// IPv6 addresses keep their /48 prefix ("2001:db8:85a3::8a2e:370:7334" -> "2001:0db8:85a3::").
//
// Returns "invalid" for unparseable IP addresses, and "unknown" for empty strings.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// IPHasher produces a keyed BLAKE2b-256 digest of client IPs so consent audit
// entries can be correlated per visitor without storing the address.
type IPHasher struct {
	key []byte
}

// NewIPHasher returns a hasher keyed with key. BLAKE2b accepts keys up to 64
// bytes; empty and longer keys are rejected.
func NewIPHasher(key string) (*IPHasher, error) {
	if key == "" {
		return nil, errors.New("ip hash key is required")
	}
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("ip hash key longer than %d bytes", blake2b.Size)
	}
	return &IPHasher{key: []byte(key)}, nil
}

// Hash returns the hex digest of ip, or "" for a nil hasher and when ip is
// empty or unknown. Digests are never computed without a key.
func (h *IPHasher) Hash(ip string) string {
	if h == nil || ip == "" || ip == "unknown" {
		return ""
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		return ""
	}
	mac.Write([]byte(ip)) //nolint:errcheck // hash.Hash writes never fail
	return hex.EncodeToString(mac.Sum(nil))
}
