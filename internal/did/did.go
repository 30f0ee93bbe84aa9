// Package did models decentralized identifiers and their resolved documents.
package did

import (
	"fmt"
	"strings"
)

// DID is a parsed decentralized identifier.
type DID struct {
	// Raw is the identifier exactly as supplied, e.g. "did:web:issuer.example.org".
	Raw string
	// Method is the DID method, e.g. "web" or "key".
	Method string
	// MethodSpecificID is everything after the method prefix.
	MethodSpecificID string
}

// Parse splits a DID into method and method-specific id. It enforces the
// generic did:<method>:<id> shape only; method-specific validation belongs to
// the resolvers.
func Parse(raw string) (DID, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return DID{}, fmt.Errorf("invalid DID %q: want did:<method>:<id>", raw)
	}
	return DID{Raw: raw, Method: parts[1], MethodSpecificID: parts[2]}, nil
}

// Fragment returns the fragment portion of a verification method reference,
// e.g. "key-1" for "did:web:example.org#key-1", or "" when absent.
func Fragment(ref string) string {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[i+1:]
	}
	return ""
}

// Base strips any fragment from a verification method reference, yielding the
// bare DID.
func Base(ref string) string {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i]
	}
	return ref
}
