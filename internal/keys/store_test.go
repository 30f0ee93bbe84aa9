package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeKeyFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func pemPrivateKey(t *testing.T, key any) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func pemPublicKey(t *testing.T, key any) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestLoadMixedKeyDirectory(t *testing.T) {
	dir := t.TempDir()

	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	writeKeyFile(t, dir, "signing.pem", pemPrivateKey(t, edPriv))

	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	writeKeyFile(t, dir, "attestation.pub", pemPublicKey(t, &ecPriv.PublicKey))

	jwk := jose.JSONWebKey{Key: edPriv.Public(), KeyID: "issuer-key-1", Algorithm: "EdDSA", Use: "sig"}
	jwkJSON, err := json.Marshal(jwk)
	require.NoError(t, err)
	writeKeyFile(t, dir, "issuer.jwk", jwkJSON)

	// Unreadable material is skipped, not fatal.
	writeKeyFile(t, dir, "broken.pem", []byte("not a pem"))
	writeKeyFile(t, dir, "notes.txt", []byte("ignore me"))

	store, err := Load(dir, "https://badges.example.edu", testLogger())
	require.NoError(t, err)

	set := store.JWKS()
	require.Len(t, set.Keys, 3)

	var algs []string
	for _, key := range set.Keys {
		assert.True(t, key.IsPublic(), "key %s must be public", key.KeyID)
		assert.NotEmpty(t, key.KeyID)
		algs = append(algs, key.Algorithm)
	}
	assert.ElementsMatch(t, []string{"EdDSA", "ES256", "EdDSA"}, algs)

	named := set.Key("issuer-key-1")
	require.Len(t, named, 1)
}

func TestLoadPrivateJWKIsReducedToPublic(t *testing.T) {
	dir := t.TempDir()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwkJSON, err := json.Marshal(jose.JSONWebKey{Key: priv, KeyID: "private-key", Algorithm: "EdDSA"})
	require.NoError(t, err)
	writeKeyFile(t, dir, "private.json", jwkJSON)

	store, err := Load(dir, "https://badges.example.edu", testLogger())
	require.NoError(t, err)

	set := store.JWKS()
	require.Len(t, set.Keys, 1)
	assert.True(t, set.Keys[0].IsPublic())

	raw, err := json.Marshal(set.Keys[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"d"`)
}

func TestLoadMissingDirectory(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "absent"), "https://badges.example.edu", testLogger())
	require.NoError(t, err)
	assert.Empty(t, store.JWKS().Keys)
}

func TestStoreDID(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{"https://badges.example.edu", "did:web:badges.example.edu"},
		{"https://badges.example.edu/issuer", "did:web:badges.example.edu:issuer"},
		{"https://badges.example.edu/tenants/acme", "did:web:badges.example.edu:tenants:acme"},
		{"https://localhost:8443", "did:web:localhost%3A8443"},
	}
	for _, tt := range tests {
		t.Run(tt.baseURL, func(t *testing.T) {
			store := &Store{baseURL: tt.baseURL, logger: testLogger()}
			assert.Equal(t, tt.want, store.DID())
		})
	}
}

func TestDIDDocumentProjection(t *testing.T) {
	dir := t.TempDir()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	writeKeyFile(t, dir, "signing.pem", pemPrivateKey(t, priv))

	store, err := Load(dir, "https://badges.example.edu", testLogger())
	require.NoError(t, err)

	doc := store.DIDDocument()
	assert.Equal(t, "did:web:badges.example.edu", doc.ID)
	assert.Contains(t, doc.Context, "https://www.w3.org/ns/did/v1")

	require.Len(t, doc.VerificationMethod, 1)
	vm := doc.VerificationMethod[0]
	assert.Equal(t, "JsonWebKey2020", vm.Type)
	assert.Equal(t, doc.ID, vm.Controller)
	assert.Equal(t, doc.ID+"#"+store.JWKS().Keys[0].KeyID, vm.ID)
	require.NotNil(t, vm.PublicKeyJwk)

	assert.Equal(t, []string{vm.ID}, doc.Authentication)
	assert.Equal(t, []string{vm.ID}, doc.AssertionMethod)
}
