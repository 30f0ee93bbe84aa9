// Package status checks credentials against their declared revocation lists.
package status

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/multiformats/go-multibase"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
	"badgekeeper/internal/issuer"
	"badgekeeper/pkg/platform/sentinel"
)

const checkName = "status.revocation"

// Checker evaluates credentialStatus entries of the bitstring status list
// family (BitstringStatusListEntry, StatusList2021Entry).
type Checker struct {
	client *issuer.Client
}

// NewChecker builds a Checker over the hardened resolver client.
func NewChecker(client *issuer.Client) *Checker {
	return &Checker{client: client}
}

// statusListCredential is the fetched status list document; only the subject
// fields the bit test needs are typed.
type statusListCredential struct {
	CredentialSubject struct {
		Type          string `json:"type"`
		StatusPurpose string `json:"statusPurpose"`
		EncodedList   string `json:"encodedList"`
	} `json:"credentialSubject"`
}

// Options controls revocation checking.
type Options struct {
	// AllowRevoked accepts already-revoked credentials for historical or
	// audit use; the check passes with an override flag in its details.
	AllowRevoked bool
}

// Check tests the credential against its revocation list. A credential with
// no credentialStatus has nothing to check and passes. Unknown status types
// pass with a detail noting they were not evaluated.
func (c *Checker) Check(ctx context.Context, cred *credential.Credential, opts Options) domain.Check {
	entry := cred.CredentialStatus
	if entry == nil {
		return domain.Pass(checkName, "credential declares no status entry").
			WithDetail("evaluated", false)
	}

	if !isBitstringEntry(entry.Type) {
		return domain.Pass(checkName, "credential status type not evaluated").
			WithDetail("evaluated", false).
			WithDetail("statusType", entry.Type)
	}

	if entry.StatusPurpose != "" && entry.StatusPurpose != "revocation" {
		return domain.Pass(checkName, "status purpose is not revocation").
			WithDetail("evaluated", false).
			WithDetail("statusPurpose", entry.StatusPurpose)
	}

	revoked, err := c.isRevoked(ctx, entry)
	if err != nil {
		failed := domain.Fail(checkName, "revocation status lookup", err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			failed = failed.WithDetail("unreachable", true)
		}
		return failed
	}

	if revoked {
		if opts.AllowRevoked {
			return domain.Pass(checkName, "credential is revoked but accepted by override").
				WithDetail("revoked", true).
				WithDetail("allowRevoked", true)
		}
		return domain.Fail(checkName, "revocation status", "credential is revoked").
			WithDetail("statusListCredential", entry.StatusListCredential)
	}

	return domain.Pass(checkName, "credential is not revoked")
}

func (c *Checker) isRevoked(ctx context.Context, entry *credential.StatusEntry) (bool, error) {
	if entry.StatusListCredential == "" {
		return false, fmt.Errorf("status entry has no statusListCredential URL")
	}
	index, err := strconv.Atoi(entry.StatusListIndex)
	if err != nil || index < 0 {
		return false, fmt.Errorf("invalid statusListIndex %q", entry.StatusListIndex)
	}

	var list statusListCredential
	if err := c.client.GetJSON(ctx, entry.StatusListCredential, "status_list", &list); err != nil {
		return false, err
	}

	bits, err := decodeEncodedList(list.CredentialSubject.EncodedList)
	if err != nil {
		return false, fmt.Errorf("decode status list: %w", err)
	}

	byteIndex := index / 8
	if byteIndex >= len(bits) {
		return false, fmt.Errorf("statusListIndex %d outside list of %d bits", index, len(bits)*8)
	}
	return (bits[byteIndex]>>(index%8))&1 == 1, nil
}

func isBitstringEntry(t string) bool {
	return t == "BitstringStatusListEntry" || t == "StatusList2021Entry"
}

// decodeEncodedList decodes the gzip-compressed bitstring. Multibase-prefixed
// base64url ("u...") and bare base64url forms are both accepted.
func decodeEncodedList(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("encodedList is empty")
	}

	var compressed []byte
	if strings.HasPrefix(encoded, "u") {
		_, raw, err := multibase.Decode(encoded)
		if err != nil {
			return nil, fmt.Errorf("multibase decode: %w", err)
		}
		compressed = raw
	} else {
		raw, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("base64url decode: %w", err)
		}
		compressed = raw
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer gz.Close()

	bits, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return bits, nil
}
