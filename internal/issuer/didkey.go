package issuer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"

	"badgekeeper/internal/did"
)

// Multicodec prefixes for public keys, per the multicodec table.
const (
	multicodecEd25519   = 0xed
	multicodecSecp256k1 = 0xe7
	multicodecP256      = 0x1200
)

// resolveKey expands a did:key identifier into a document by decoding the
// multibase-encoded, multicodec-prefixed public key embedded in the method
// specific id. No network involved.
func resolveKey(parsed did.DID) (*did.Document, error) {
	pub, err := decodeMultibaseKey(parsed.MethodSpecificID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", parsed.Raw, err)
	}

	vmID := parsed.Raw + "#" + parsed.MethodSpecificID
	vm := did.VerificationMethod{
		ID:         vmID,
		Controller: parsed.Raw,
	}

	switch pub.(type) {
	case ed25519.PublicKey, *ecdsa.PublicKey:
		vm.Type = "JsonWebKey2020"
		vm.PublicKeyJwk = &jose.JSONWebKey{Key: pub, KeyID: parsed.MethodSpecificID}
	case *secp256k1.PublicKey:
		// go-jose has no secp256k1 JWK support; keep the multibase form and
		// let key extraction decode it.
		vm.Type = "Multikey"
		vm.PublicKeyMultibase = parsed.MethodSpecificID
	default:
		return nil, fmt.Errorf("resolve %s: unsupported key type %T", parsed.Raw, pub)
	}

	return &did.Document{
		Context:            "https://www.w3.org/ns/did/v1",
		ID:                 parsed.Raw,
		VerificationMethod: []did.VerificationMethod{vm},
		Authentication:     []string{vmID},
		AssertionMethod:    []string{vmID},
	}, nil
}

// decodeMultibaseKey decodes a multibase string carrying a multicodec-prefixed
// public key, as used by did:key method ids and publicKeyMultibase values.
func decodeMultibaseKey(encoded string) (crypto.PublicKey, error) {
	encoding, raw, err := multibase.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("multibase decode: %w", err)
	}
	if encoding != multibase.Base58BTC {
		return nil, fmt.Errorf("unexpected multibase encoding %c: want base58btc", rune(encoding))
	}

	code, n := binary.Uvarint(raw)
	if n <= 0 {
		return nil, fmt.Errorf("invalid multicodec prefix")
	}
	keyBytes := raw[n:]

	switch code {
	case multicodecEd25519:
		if len(keyBytes) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("ed25519 key: got %d bytes, want %d", len(keyBytes), ed25519.PublicKeySize)
		}
		return ed25519.PublicKey(keyBytes), nil

	case multicodecSecp256k1:
		pub, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("secp256k1 key: %w", err)
		}
		return pub, nil

	case multicodecP256:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), keyBytes)
		if x == nil {
			return nil, fmt.Errorf("p-256 key: invalid compressed point")
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil

	default:
		return nil, fmt.Errorf("unsupported key multicodec 0x%x", code)
	}
}
