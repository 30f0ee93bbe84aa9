package handler

import (
	"encoding/base64"
	"encoding/json"

	"badgekeeper/internal/credential"
	"badgekeeper/internal/verify"
	dErrors "badgekeeper/pkg/domain-errors"
)

// maxImageBytes caps decoded badge images accepted for baked verification.
const maxImageBytes = 10 << 20

// VerifyRequest is the HTTP request body for POST /credentials/verify.
// The credential is either a compact token (JSON string) or a credential
// document (JSON object).
type VerifyRequest struct {
	Credential json.RawMessage `json:"credential"`
	Options    verify.Options  `json:"options"`

	// Parsed values (populated by Validate)
	envelope credential.Envelope
}

// Validate validates and parses the request.
// Implements the Validator interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Credential) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}

	env, err := credential.ParseEnvelope(r.Credential)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "credential is neither a compact token nor a document")
	}
	r.envelope = env

	return validateOptions(r.Options)
}

// Envelope returns the parsed credential envelope.
func (r *VerifyRequest) Envelope() credential.Envelope {
	return r.envelope
}

// VerifyBakedRequest is the HTTP request body for POST /credentials/verify/baked.
type VerifyBakedRequest struct {
	Image   string         `json:"image"` // base64-encoded badge image
	Options verify.Options `json:"options"`

	imageData []byte
}

// Validate validates and decodes the request.
func (r *VerifyBakedRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Image == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}

	data, err := base64.StdEncoding.DecodeString(r.Image)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "image must be base64 encoded")
	}
	if len(data) > maxImageBytes {
		return dErrors.Newf(dErrors.CodeValidation, "image exceeds the %d byte limit", maxImageBytes)
	}
	r.imageData = data

	return validateOptions(r.Options)
}

// ImageData returns the decoded badge image.
func (r *VerifyBakedRequest) ImageData() []byte {
	return r.imageData
}

func validateOptions(opts verify.Options) error {
	switch opts.ProofPolicy {
	case "", verify.PolicyAll, verify.PolicyAny:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "unknown proof policy %q", opts.ProofPolicy)
	}
	if opts.ClockToleranceSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "clockToleranceSeconds must not be negative")
	}
	if opts.MaxProofAgeSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "maxProofAgeSeconds must not be negative")
	}
	return nil
}
