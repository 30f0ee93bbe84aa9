package proof

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/multiformats/go-multibase"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
	"badgekeeper/pkg/platform/sentinel"
)

const (
	ldCheckName = "proof.linked_data"
	ldCheckDesc = "embedded proof signature verification"

	purposeAssertion = "assertionMethod"
)

// VerifyLinkedDataProof verifies one embedded proof per the Data-Integrity
// model: canonicalize the proof configuration and the unsecured document,
// digest both, and verify the signature under the declared cryptosuite with
// assertionMethod purpose.
func (v *Verifier) VerifyLinkedDataProof(ctx context.Context, cred *credential.Credential, pf credential.Proof, opts Options) domain.Check {
	suite, err := suiteFor(pf)
	if err != nil {
		return domain.Fail(ldCheckName, ldCheckDesc, err.Error()).
			WithDetail("proofType", pf.Type)
	}

	if pf.ProofPurpose != purposeAssertion {
		return domain.Fail(ldCheckName, ldCheckDesc,
			fmt.Sprintf("proof purpose %q is not %s", pf.ProofPurpose, purposeAssertion))
	}
	if pf.VerificationMethod == "" {
		return domain.Fail(ldCheckName, ldCheckDesc, "proof declares no verification method")
	}
	if pf.ProofValue == "" {
		return domain.Fail(ldCheckName, ldCheckDesc, "proof carries no proofValue")
	}

	resolver := v.resolver
	if opts.Resolver != nil {
		resolver = opts.Resolver
	}
	if resolver == nil {
		return domain.Fail(ldCheckName, ldCheckDesc, "no key resolver available")
	}

	pub, err := resolver.ResolveKey(ctx, pf.VerificationMethod)
	if err != nil {
		failed := domain.Fail(ldCheckName, ldCheckDesc,
			fmt.Sprintf("resolve verification method: %v", err)).
			WithDetail("verificationMethod", pf.VerificationMethod)
		if errors.Is(err, sentinel.ErrUnavailable) {
			failed = failed.WithDetail("unreachable", true)
		}
		return failed
	}

	unsecured := unsecuredDocument(cred)
	proofConfig, err := proofConfiguration(cred, pf)
	if err != nil {
		return domain.Fail(ldCheckName, ldCheckDesc, err.Error())
	}

	data, err := v.verificationData(unsecured, proofConfig)
	if err != nil {
		return domain.Fail(ldCheckName, ldCheckDesc, err.Error())
	}

	_, signature, err := multibase.Decode(pf.ProofValue)
	if err != nil {
		return domain.Fail(ldCheckName, ldCheckDesc,
			fmt.Sprintf("decode proofValue: %v", err))
	}

	if err := suite.verify(pub, data, signature); err != nil {
		return domain.Fail(ldCheckName, ldCheckDesc, err.Error()).
			WithDetail("cryptosuite", suite.name).
			WithDetail("verificationMethod", pf.VerificationMethod)
	}

	return domain.Pass(ldCheckName, ldCheckDesc).
		WithDetail("cryptosuite", suite.name).
		WithDetail("verificationMethod", pf.VerificationMethod)
}

// unsecuredDocument is the credential with every proof removed, per the
// Data-Integrity transformation.
func unsecuredDocument(cred *credential.Credential) map[string]any {
	doc := make(map[string]any, len(cred.Raw))
	for k, v := range cred.Raw {
		if k == "proof" {
			continue
		}
		doc[k] = v
	}
	return doc
}

// proofConfiguration is the proof block minus its signature value, carrying
// the credential's context so it canonicalizes in the same vocabulary.
func proofConfiguration(cred *credential.Credential, pf credential.Proof) (map[string]any, error) {
	config := map[string]any{
		"type":               pf.Type,
		"verificationMethod": pf.VerificationMethod,
		"proofPurpose":       pf.ProofPurpose,
	}
	if pf.Created != "" {
		config["created"] = pf.Created
	}
	if pf.Cryptosuite != "" {
		config["cryptosuite"] = pf.Cryptosuite
	}
	if pf.Challenge != "" {
		config["challenge"] = pf.Challenge
	}
	if pf.Domain != "" {
		config["domain"] = pf.Domain
	}

	ctx, ok := cred.Raw["@context"]
	if !ok {
		return nil, fmt.Errorf("credential carries no @context for proof canonicalization")
	}
	config["@context"] = ctx
	return config, nil
}

// cryptosuite binds a suite label to its signature verification primitive.
type cryptosuite struct {
	name   string
	verify func(pub any, data, signature []byte) error
}

func suiteFor(pf credential.Proof) (*cryptosuite, error) {
	label := pf.Type
	if pf.Type == "DataIntegrityProof" {
		label = pf.Cryptosuite
		if label == "" {
			return nil, fmt.Errorf("DataIntegrityProof declares no cryptosuite")
		}
	}

	switch label {
	case "eddsa-rdfc-2022", "Ed25519Signature2020":
		return &cryptosuite{name: "eddsa-rdfc-2022", verify: verifyEd25519}, nil
	case "ecdsa-secp256k1-2019", "EcdsaSecp256k1Signature2019":
		return &cryptosuite{name: "ecdsa-secp256k1-2019", verify: verifySecp256k1}, nil
	default:
		return nil, fmt.Errorf("unsupported proof type or cryptosuite %q", label)
	}
}

func verifyEd25519(pub any, data, signature []byte) error {
	key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("eddsa-rdfc-2022: key is %T, want ed25519", pub)
	}
	if !ed25519.Verify(key, data, signature) {
		return fmt.Errorf("eddsa-rdfc-2022: signature verification failed")
	}
	return nil
}

func verifySecp256k1(pub any, data, signature []byte) error {
	var key *ecdsa.PublicKey
	switch k := pub.(type) {
	case *secp256k1.PublicKey:
		key = k.ToECDSA()
	case *ecdsa.PublicKey:
		key = k
	default:
		return fmt.Errorf("ecdsa-secp256k1-2019: key is %T, want secp256k1", pub)
	}

	if len(signature) != 64 {
		return fmt.Errorf("ecdsa-secp256k1-2019: signature length %d, want 64", len(signature))
	}

	hash := sha256.Sum256(data)
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	if !ecdsa.Verify(key, hash[:], r, s) {
		return fmt.Errorf("ecdsa-secp256k1-2019: signature verification failed")
	}
	return nil
}
