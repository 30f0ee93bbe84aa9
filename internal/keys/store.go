// Package keys loads the service's own public signing keys and projects them
// as a JWKS and as a did:web document. Private key material is never loaded
// into the projections.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	jose "github.com/go-jose/go-jose/v3"

	"badgekeeper/internal/did"
	pstrings "badgekeeper/pkg/platform/strings"
)

// Store holds the loaded public keys and the identity they belong to.
type Store struct {
	keys    []jose.JSONWebKey
	baseURL string
	logger  *slog.Logger
}

// Load reads every key file in dir. PEM files (.pem, .crt, .pub) and JWK
// files (.json, .jwk) are accepted; private keys are reduced to their public
// half on load. A missing or empty directory yields an empty store.
func Load(dir, baseURL string, logger *slog.Logger) (*Store, error) {
	store := &Store{baseURL: baseURL, logger: logger}
	if dir == "" {
		return store, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("key directory does not exist, serving an empty key set", "dir", dir)
			return store, nil
		}
		return nil, fmt.Errorf("read key directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		jwk, err := loadKeyFile(path)
		if err != nil {
			logger.Warn("skipping unreadable key file", "file", entry.Name(), "error", err)
			continue
		}
		if jwk.KeyID == "" {
			jwk.KeyID = keyID(jwk, entry.Name())
		}
		store.keys = append(store.keys, *jwk)
		logger.Info("loaded signing key", "file", entry.Name(), "kid", jwk.KeyID, "alg", jwk.Algorithm)
	}
	return store, nil
}

func loadKeyFile(path string) (*jose.JSONWebKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jwk":
		var jwk jose.JSONWebKey
		if err := json.Unmarshal(raw, &jwk); err != nil {
			return nil, fmt.Errorf("parse JWK: %w", err)
		}
		if !jwk.IsPublic() {
			public := jwk.Public()
			jwk = public
		}
		if !jwk.Valid() {
			return nil, fmt.Errorf("JWK is not valid")
		}
		return &jwk, nil
	case ".pem", ".crt", ".pub":
		return loadPEM(raw)
	default:
		return nil, fmt.Errorf("unsupported key file extension %q", filepath.Ext(path))
	}
}

func loadPEM(raw []byte) (*jose.JSONWebKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	var pub crypto.PublicKey
	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		pub = key
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("private key type %T has no public half", key)
		}
		pub = signer.Public()
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		pub = cert.PublicKey
	default:
		return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
	}

	return &jose.JSONWebKey{Key: pub, Use: "sig", Algorithm: algorithmFor(pub)}, nil
}

func algorithmFor(pub crypto.PublicKey) string {
	switch key := pub.(type) {
	case ed25519.PublicKey:
		return "EdDSA"
	case *ecdsa.PublicKey:
		if key.Curve == elliptic.P384() {
			return "ES384"
		}
		return "ES256"
	case *rsa.PublicKey:
		return "RS256"
	default:
		return ""
	}
}

// keyID derives a stable identifier: RFC 7638 thumbprint, falling back to the
// file name stem.
func keyID(jwk *jose.JSONWebKey, filename string) string {
	if tp, err := jwk.Thumbprint(crypto.SHA256); err == nil {
		return base64.RawURLEncoding.EncodeToString(tp)
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// JWKS projects the key set. Keys are already public-only.
func (s *Store) JWKS() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: append([]jose.JSONWebKey(nil), s.keys...)}
}

// DID returns the service's did:web identifier derived from its base URL.
func (s *Store) DID() string {
	u, err := url.Parse(s.baseURL)
	if err != nil || u.Host == "" {
		return "did:web:" + s.baseURL
	}
	id := "did:web:" + url.QueryEscape(u.Host)
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" {
			id += ":" + url.QueryEscape(seg)
		}
	}
	return id
}

// DIDDocument projects the key set as a did:web document: one verification
// method per key, each listed under both authentication and assertionMethod.
func (s *Store) DIDDocument() did.Document {
	identity := s.DID()
	doc := did.Document{
		Context: []string{
			"https://www.w3.org/ns/did/v1",
			"https://w3id.org/security/suites/jws-2020/v1",
		},
		ID: identity,
	}
	for i := range s.keys {
		key := s.keys[i]
		vmID := identity + "#" + key.KeyID
		doc.VerificationMethod = append(doc.VerificationMethod, did.VerificationMethod{
			ID:           vmID,
			Type:         "JsonWebKey2020",
			Controller:   identity,
			PublicKeyJwk: &key,
		})
		doc.Authentication = append(doc.Authentication, vmID)
		doc.AssertionMethod = append(doc.AssertionMethod, vmID)
	}
	// The same key loaded from two files shares a thumbprint kid.
	doc.Authentication = pstrings.DedupeAndTrim(doc.Authentication)
	doc.AssertionMethod = pstrings.DedupeAndTrim(doc.AssertionMethod)
	return doc
}
