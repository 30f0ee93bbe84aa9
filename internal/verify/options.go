package verify

// ProofPolicy decides how multiple proofs combine into one verdict.
type ProofPolicy string

const (
	// PolicyAll requires every proof to verify.
	PolicyAll ProofPolicy = "all"
	// PolicyAny requires at least one proof to verify.
	PolicyAny ProofPolicy = "any"
)

// Options tune a single verification run. The zero value is the strict
// default: all proofs must pass, no expired or revoked credentials.
type Options struct {
	ProofPolicy           ProofPolicy `json:"proofPolicy,omitempty"`
	SkipProofVerification bool        `json:"skipProofVerification,omitempty"`
	ClockToleranceSeconds int         `json:"clockToleranceSeconds,omitempty"`
	AllowExpired          bool        `json:"allowExpired,omitempty"`
	AllowRevoked          bool        `json:"allowRevoked,omitempty"`
	ValidateSchema        bool        `json:"validateSchema,omitempty"`
	MaxProofAgeSeconds    int         `json:"maxProofAgeSeconds,omitempty"`
}

func (o Options) policy() ProofPolicy {
	if o.ProofPolicy == PolicyAny {
		return PolicyAny
	}
	return PolicyAll
}
