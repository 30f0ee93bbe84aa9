package issuer

import (
	"context"
	"crypto"
	"fmt"

	"badgekeeper/internal/did"
)

// KeyResolver turns a verification method reference into public key material
// by resolving its controlling DID document. It satisfies the proof package's
// resolver contract.
type KeyResolver struct {
	resolver *Resolver
}

// NewKeyResolver wraps a DID resolver for key lookups.
func NewKeyResolver(r *Resolver) *KeyResolver {
	return &KeyResolver{resolver: r}
}

// ResolveKey resolves a verification method reference ("did:..." or
// "did:...#fragment") to a public key. Lookup order: the referenced
// verification method's own material, then the issuer's key set matched by
// key id fragment.
func (k *KeyResolver) ResolveKey(ctx context.Context, ref string) (crypto.PublicKey, error) {
	doc, err := k.resolver.Resolve(ctx, did.Base(ref))
	if err != nil {
		return nil, err
	}

	if vm := doc.FindVerificationMethod(ref); vm != nil {
		if pub, err := keyFromVerificationMethod(vm); err == nil {
			return pub, nil
		}
	}

	set, _, err := k.resolver.FetchJWKS(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("resolve key %s: %w", ref, err)
	}

	if frag := did.Fragment(ref); frag != "" {
		for _, key := range set.Keys {
			if key.KeyID == frag {
				return key.Key, nil
			}
		}
		return nil, fmt.Errorf("resolve key %s: no key with id %q", ref, frag)
	}
	return set.Keys[0].Key, nil
}

func keyFromVerificationMethod(vm *did.VerificationMethod) (crypto.PublicKey, error) {
	switch {
	case vm.PublicKeyJwk != nil:
		return vm.PublicKeyJwk.Key, nil
	case vm.PublicKeyMultibase != "":
		return decodeMultibaseKey(vm.PublicKeyMultibase)
	default:
		return nil, fmt.Errorf("verification method %s carries no key material", vm.ID)
	}
}
