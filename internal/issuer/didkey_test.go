package issuer

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgekeeper/internal/did"
)

func encodeKeyID(t *testing.T, codec uint64, keyBytes []byte) string {
	t.Helper()
	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, codec)
	encoded, err := multibase.Encode(multibase.Base58BTC, append(prefix[:n], keyBytes...))
	require.NoError(t, err)
	return encoded
}

func mustParse(t *testing.T, raw string) did.DID {
	t.Helper()
	parsed, err := did.Parse(raw)
	require.NoError(t, err)
	return parsed
}

func TestResolveKeyEd25519(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	msid := encodeKeyID(t, multicodecEd25519, pub)

	doc, err := resolveKey(mustParse(t, "did:key:"+msid))
	require.NoError(t, err)

	assert.Equal(t, "did:key:"+msid, doc.ID)
	require.Len(t, doc.VerificationMethod, 1)
	vm := doc.VerificationMethod[0]
	assert.Equal(t, "JsonWebKey2020", vm.Type)
	assert.Equal(t, doc.ID, vm.Controller)
	require.NotNil(t, vm.PublicKeyJwk)
	assert.Equal(t, pub, vm.PublicKeyJwk.Key)

	assert.Equal(t, []string{vm.ID}, doc.Authentication)
	assert.Equal(t, []string{vm.ID}, doc.AssertionMethod)
}

func TestResolveKeyP256(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	compressed := elliptic.MarshalCompressed(elliptic.P256(), priv.X, priv.Y)
	msid := encodeKeyID(t, multicodecP256, compressed)

	doc, err := resolveKey(mustParse(t, "did:key:"+msid))
	require.NoError(t, err)

	require.Len(t, doc.VerificationMethod, 1)
	vm := doc.VerificationMethod[0]
	require.NotNil(t, vm.PublicKeyJwk)
	pub, ok := vm.PublicKeyJwk.Key.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, priv.X, pub.X)
	assert.Equal(t, priv.Y, pub.Y)
}

func TestResolveKeySecp256k1(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	msid := encodeKeyID(t, multicodecSecp256k1, priv.PubKey().SerializeCompressed())

	doc, err := resolveKey(mustParse(t, "did:key:"+msid))
	require.NoError(t, err)

	require.Len(t, doc.VerificationMethod, 1)
	vm := doc.VerificationMethod[0]
	assert.Equal(t, "Multikey", vm.Type)
	assert.Nil(t, vm.PublicKeyJwk)
	assert.Equal(t, msid, vm.PublicKeyMultibase)

	pub, err := decodeMultibaseKey(vm.PublicKeyMultibase)
	require.NoError(t, err)
	assert.Equal(t, priv.PubKey(), pub)
}

func TestDecodeMultibaseKeyRejections(t *testing.T) {
	t.Run("wrong multibase encoding", func(t *testing.T) {
		encoded, err := multibase.Encode(multibase.Base64url, []byte{0xed, 0x01, 0x00})
		require.NoError(t, err)
		_, err = decodeMultibaseKey(encoded)
		assert.ErrorContains(t, err, "want base58btc")
	})

	t.Run("unknown multicodec", func(t *testing.T) {
		_, err := decodeMultibaseKey(encodeKeyID(t, 0x9999, []byte{1, 2, 3}))
		assert.ErrorContains(t, err, "unsupported key multicodec")
	})

	t.Run("short ed25519 key", func(t *testing.T) {
		_, err := decodeMultibaseKey(encodeKeyID(t, multicodecEd25519, []byte{1, 2, 3}))
		assert.ErrorContains(t, err, "ed25519 key")
	})

	t.Run("not multibase", func(t *testing.T) {
		_, err := decodeMultibaseKey("")
		assert.Error(t, err)
	})
}
