// Package credential models Open-Badges-style verifiable credentials in both
// of their wire shapes: compact signed tokens and JSON-LD documents.
package credential

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Base type labels a credential must declare to be checkable at all.
const (
	TypeVerifiableCredential = "VerifiableCredential"
	TypeOpenBadgeCredential  = "OpenBadgeCredential"
	TypeAchievement          = "AchievementCredential"
)

// Credential is a structured verifiable credential document. Raw preserves the
// document exactly as received; proofs and the fields below are projections of
// it. Verification never mutates Raw.
type Credential struct {
	ID                string
	Types             []string
	Issuer            Issuer
	IssuanceDate      string
	ExpirationDate    string
	CredentialSubject any
	CredentialStatus  *StatusEntry
	CredentialSchema  []SchemaRef
	Proofs            []Proof

	Raw map[string]any
}

// Issuer is the credential issuer: a bare identifier string or an object
// carrying at least an id.
type Issuer struct {
	ID   string
	Name string
}

// Proof is a cryptographic assertion attached to a credential.
type Proof struct {
	Type               string `json:"type" mapstructure:"type"`
	Created            string `json:"created,omitempty" mapstructure:"created"`
	VerificationMethod string `json:"verificationMethod,omitempty" mapstructure:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose,omitempty" mapstructure:"proofPurpose"`
	Cryptosuite        string `json:"cryptosuite,omitempty" mapstructure:"cryptosuite"`
	ProofValue         string `json:"proofValue,omitempty" mapstructure:"proofValue"`
	JWS                string `json:"jws,omitempty" mapstructure:"jws"`
	Challenge          string `json:"challenge,omitempty" mapstructure:"challenge"`
	Domain             string `json:"domain,omitempty" mapstructure:"domain"`
}

// StatusEntry is a credentialStatus block pointing at a revocation list.
type StatusEntry struct {
	ID                   string `json:"id,omitempty" mapstructure:"id"`
	Type                 string `json:"type" mapstructure:"type"`
	StatusPurpose        string `json:"statusPurpose,omitempty" mapstructure:"statusPurpose"`
	StatusListIndex      string `json:"statusListIndex,omitempty" mapstructure:"statusListIndex"`
	StatusListCredential string `json:"statusListCredential,omitempty" mapstructure:"statusListCredential"`
}

// SchemaRef is a credentialSchema block naming a JSON schema to validate against.
type SchemaRef struct {
	ID   string `json:"id" mapstructure:"id"`
	Type string `json:"type" mapstructure:"type"`
}

// Parse decodes a JSON credential document.
func Parse(raw []byte) (*Credential, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return FromMap(m)
}

// FromMap projects a generic document map into a Credential. Shape problems
// (a proof that is neither object nor array, a non-string type entry) are
// errors; missing fields are not — the verification pipeline reports those as
// structured check failures instead.
func FromMap(m map[string]any) (*Credential, error) {
	c := &Credential{Raw: m}

	var err error
	if c.Types, err = stringList(m["type"]); err != nil {
		return nil, fmt.Errorf("credential type: %w", err)
	}

	if id, ok := m["id"].(string); ok {
		c.ID = id
	}
	c.Issuer = parseIssuer(m["issuer"])
	c.IssuanceDate = firstString(m, "issuanceDate", "validFrom")
	c.ExpirationDate = firstString(m, "expirationDate", "validUntil")
	c.CredentialSubject = m["credentialSubject"]

	if raw, ok := m["credentialStatus"]; ok && raw != nil {
		var entry StatusEntry
		if err := mapstructure.Decode(raw, &entry); err != nil {
			return nil, fmt.Errorf("credentialStatus: %w", err)
		}
		c.CredentialStatus = &entry
	}

	if raw, ok := m["credentialSchema"]; ok && raw != nil {
		refs, err := decodeSchemaRefs(raw)
		if err != nil {
			return nil, err
		}
		c.CredentialSchema = refs
	}

	proofs, err := decodeProofs(m["proof"])
	if err != nil {
		return nil, err
	}
	c.Proofs = proofs

	return c, nil
}

// HasBaseType reports whether the declared type vocabulary includes a base
// credential type.
func (c *Credential) HasBaseType() bool {
	for _, t := range c.Types {
		switch t {
		case TypeVerifiableCredential, TypeOpenBadgeCredential, TypeAchievement:
			return true
		}
	}
	return false
}

// MarshalJSON serializes the original document when available so round-trips
// (baking, re-verification) preserve fields this model does not project.
func (c *Credential) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return json.Marshal(c.Raw)
	}
	return nil, fmt.Errorf("credential has no source document")
}

func decodeProofs(raw any) ([]Proof, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		var p Proof
		if err := mapstructure.Decode(v, &p); err != nil {
			return nil, fmt.Errorf("proof: %w", err)
		}
		return []Proof{p}, nil
	case []any:
		proofs := make([]Proof, 0, len(v))
		for i, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("proof[%d]: expected object, got %T", i, entry)
			}
			var p Proof
			if err := mapstructure.Decode(m, &p); err != nil {
				return nil, fmt.Errorf("proof[%d]: %w", i, err)
			}
			proofs = append(proofs, p)
		}
		return proofs, nil
	default:
		return nil, fmt.Errorf("proof: expected object or array, got %T", raw)
	}
}

func decodeSchemaRefs(raw any) ([]SchemaRef, error) {
	switch v := raw.(type) {
	case map[string]any:
		var ref SchemaRef
		if err := mapstructure.Decode(v, &ref); err != nil {
			return nil, fmt.Errorf("credentialSchema: %w", err)
		}
		return []SchemaRef{ref}, nil
	case []any:
		refs := make([]SchemaRef, 0, len(v))
		for i, entry := range v {
			var ref SchemaRef
			if err := mapstructure.Decode(entry, &ref); err != nil {
				return nil, fmt.Errorf("credentialSchema[%d]: %w", i, err)
			}
			refs = append(refs, ref)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("credentialSchema: expected object or array, got %T", raw)
	}
}

func parseIssuer(raw any) Issuer {
	switch v := raw.(type) {
	case string:
		return Issuer{ID: v}
	case map[string]any:
		iss := Issuer{}
		if id, ok := v["id"].(string); ok {
			iss.ID = id
		}
		if name, ok := v["name"].(string); ok {
			iss.Name = name
		}
		return iss
	default:
		return Issuer{}
	}
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d: expected string, got %T", i, entry)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array, got %T", raw)
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
