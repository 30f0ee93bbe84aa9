// Package verify composes schema, proof, issuer, temporal, and revocation
// checks into a single verification decision with a structured audit trail.
package verify

import (
	"time"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/domain"
)

// Status is the overall verification outcome.
type Status string

const (
	// StatusValid: every attempted check passed.
	StatusValid Status = "valid"
	// StatusInvalid: checking completed and at least one check failed.
	StatusInvalid Status = "invalid"
	// StatusIndeterminate: a check could not be completed (endpoint
	// unreachable) and nothing that did complete failed.
	StatusIndeterminate Status = "indeterminate"
	// StatusError: a structural failure prevented meaningful checking.
	StatusError Status = "error"
)

// Checks groups recorded checks by category.
type Checks struct {
	Proof    []domain.Check `json:"proof,omitempty"`
	Status   []domain.Check `json:"status,omitempty"`
	Temporal []domain.Check `json:"temporal,omitempty"`
	Issuer   []domain.Check `json:"issuer,omitempty"`
	Schema   []domain.Check `json:"schema,omitempty"`
	General  []domain.Check `json:"general,omitempty"`
}

// All flattens every recorded check.
func (c *Checks) All() []domain.Check {
	var all []domain.Check
	all = append(all, c.Schema...)
	all = append(all, c.Proof...)
	all = append(all, c.Issuer...)
	all = append(all, c.Temporal...)
	all = append(all, c.Status...)
	all = append(all, c.General...)
	return all
}

// ProofResult reports one proof's outcome on a multi-proof credential.
type ProofResult struct {
	Index              int          `json:"index"`
	Type               string       `json:"type"`
	VerificationMethod string       `json:"verificationMethod,omitempty"`
	Check              domain.Check `json:"check"`
}

// Metadata carries timing and envelope information about the run.
type Metadata struct {
	DurationMS int64                   `json:"durationMs"`
	Envelope   credential.EnvelopeKind `json:"envelope,omitempty"`
}

// Result is the complete verification report.
//
// Invariant: IsValid == (Status == StatusValid).
type Result struct {
	Status             Status        `json:"status"`
	IsValid            bool          `json:"isValid"`
	Checks             Checks        `json:"checks"`
	CredentialID       string        `json:"credentialId,omitempty"`
	Issuer             string        `json:"issuer,omitempty"`
	ProofType          string        `json:"proofType,omitempty"`
	VerificationMethod string        `json:"verificationMethod,omitempty"`
	ProofResults       []ProofResult `json:"proofResults,omitempty"`
	TotalProofs        int           `json:"totalProofs,omitempty"`
	PassedProofs       int           `json:"passedProofs,omitempty"`
	VerifiedAt         time.Time     `json:"verifiedAt"`
	Metadata           Metadata      `json:"metadata"`
	Error              string        `json:"error,omitempty"`
}

// finalize pins the status and keeps the IsValid invariant in one place.
func (r *Result) finalize(status Status) *Result {
	r.Status = status
	r.IsValid = status == StatusValid
	return r
}
