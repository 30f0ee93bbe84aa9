package did

import "github.com/go-jose/go-jose/v3"

// Document is the resolved representation of an issuer's signing identity.
// Only the subset this service consumes is modeled.
type Document struct {
	Context            any                  `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
}

// VerificationMethod describes one key the controller can sign with.
type VerificationMethod struct {
	ID                 string           `json:"id"`
	Type               string           `json:"type"`
	Controller         string           `json:"controller"`
	PublicKeyJwk       *jose.JSONWebKey `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string           `json:"publicKeyMultibase,omitempty"`
}

// Service is a service endpoint entry, used here to locate JWKS endpoints.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// FindVerificationMethod locates a verification method by full reference or
// bare fragment. An empty ref matches the first method, mirroring how issuers
// commonly publish a single key.
func (d *Document) FindVerificationMethod(ref string) *VerificationMethod {
	if len(d.VerificationMethod) == 0 {
		return nil
	}
	if ref == "" || ref == d.ID {
		return &d.VerificationMethod[0]
	}
	frag := Fragment(ref)
	for i := range d.VerificationMethod {
		vm := &d.VerificationMethod[i]
		if vm.ID == ref {
			return vm
		}
		if frag != "" && Fragment(vm.ID) == frag {
			return vm
		}
	}
	return nil
}
