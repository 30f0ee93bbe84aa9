package issuer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"

	"badgekeeper/internal/did"
)

// KeySource distinguishes where an issuer's key set came from.
type KeySource string

const (
	KeySourceRemote   KeySource = "remote"
	KeySourceEmbedded KeySource = "embedded"
)

// FetchJWKS obtains the issuer's public key set. A service entry advertising a
// key set endpoint is fetched over the hardened client; otherwise key material
// embedded in the verification methods is synthesized into an equivalent set
// without a network call. An empty remote set is an error — a verifier that
// accepts it would pass signatures it never checked against anything.
func (r *Resolver) FetchJWKS(ctx context.Context, doc *did.Document) (*jose.JSONWebKeySet, KeySource, error) {
	if endpoint := jwksEndpoint(doc); endpoint != "" {
		var set jose.JSONWebKeySet
		if err := r.client.GetJSON(ctx, endpoint, "jwks", &set); err != nil {
			return nil, KeySourceRemote, fmt.Errorf("fetch key set for %s: %w", doc.ID, err)
		}
		if len(set.Keys) == 0 {
			return nil, KeySourceRemote, fmt.Errorf("key set for %s contains no keys", doc.ID)
		}
		return &set, KeySourceRemote, nil
	}

	set, err := embeddedKeySet(doc)
	if err != nil {
		return nil, KeySourceEmbedded, err
	}
	return set, KeySourceEmbedded, nil
}

func jwksEndpoint(doc *did.Document) string {
	for _, svc := range doc.Service {
		t := strings.ToLower(svc.Type)
		if strings.Contains(t, "jwk") || t == "keyset" {
			return svc.ServiceEndpoint
		}
	}
	return ""
}

func embeddedKeySet(doc *did.Document) (*jose.JSONWebKeySet, error) {
	var set jose.JSONWebKeySet
	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]

		switch {
		case vm.PublicKeyJwk != nil:
			key := *vm.PublicKeyJwk
			if key.KeyID == "" {
				key.KeyID = did.Fragment(vm.ID)
			}
			set.Keys = append(set.Keys, key)

		case vm.PublicKeyMultibase != "":
			pub, err := decodeMultibaseKey(vm.PublicKeyMultibase)
			if err != nil {
				return nil, fmt.Errorf("verification method %s: %w", vm.ID, err)
			}
			set.Keys = append(set.Keys, jose.JSONWebKey{
				Key:   pub,
				KeyID: did.Fragment(vm.ID),
				Use:   "sig",
			})
		}
	}

	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("document %s carries no key material", doc.ID)
	}
	return &set, nil
}
