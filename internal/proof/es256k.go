package proof

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"
)

// signingMethodES256K implements the ES256K (secp256k1, SHA-256) JWS
// algorithm, which golang-jwt does not ship. Verification only; this service
// never signs with it.
type signingMethodES256K struct{}

// ES256K is the registered signing method instance.
var ES256K = &signingMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(ES256K.Alg(), func() jwt.SigningMethod { return ES256K })
}

func (m *signingMethodES256K) Alg() string { return "ES256K" }

func (m *signingMethodES256K) Sign(string, any) ([]byte, error) {
	return nil, fmt.Errorf("ES256K: signing not supported")
}

// Verify checks a 64-byte r||s signature over SHA-256 of the signing string.
func (m *signingMethodES256K) Verify(signingString string, signature []byte, key any) error {
	pub, err := es256kPublicKey(key)
	if err != nil {
		return err
	}
	if len(signature) != 64 {
		return fmt.Errorf("ES256K: invalid signature length %d, want 64", len(signature))
	}

	hash := sha256.Sum256([]byte(signingString))
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	if !ecdsa.Verify(pub, hash[:], r, s) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

func es256kPublicKey(key any) (*ecdsa.PublicKey, error) {
	switch k := key.(type) {
	case *secp256k1.PublicKey:
		return k.ToECDSA(), nil
	case *ecdsa.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("ES256K: unsupported key type %T", key)
	}
}
