package handler

import (
	"encoding/base64"
	"encoding/json"

	"badgekeeper/internal/bake"
	dErrors "badgekeeper/pkg/domain-errors"
)

// maxImageBytes caps decoded badge images accepted for baking.
const maxImageBytes = 10 << 20

// BakeRequest is the HTTP request body for POST /credentials/bake.
type BakeRequest struct {
	Image              string          `json:"image"` // base64-encoded badge image
	MimeType           string          `json:"mimeType,omitempty"`
	Credential         json.RawMessage `json:"credential"`
	Compress           bool            `json:"compress,omitempty"`
	ValidateCredential bool            `json:"validateCredential,omitempty"`
	PreserveExisting   bool            `json:"preserveExisting,omitempty"`

	// Parsed values (populated by Validate)
	imageData []byte
	format    bake.Format
}

// Validate validates and decodes the request.
// Implements the Validator interface for httputil.DecodeAndPrepare.
func (r *BakeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Image == "" {
		return dErrors.New(dErrors.CodeValidation, "image is required")
	}
	if len(r.Credential) == 0 {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	if !json.Valid(r.Credential) {
		return dErrors.New(dErrors.CodeValidation, "credential must be valid JSON")
	}

	data, err := base64.StdEncoding.DecodeString(r.Image)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "image must be base64 encoded")
	}
	if len(data) > maxImageBytes {
		return dErrors.Newf(dErrors.CodeValidation, "image exceeds the %d byte limit", maxImageBytes)
	}
	r.imageData = data

	switch r.MimeType {
	case "":
		// Format detection happens in the service.
	case "image/png":
		r.format = bake.FormatPNG
	case "image/svg+xml":
		r.format = bake.FormatSVG
	default:
		return dErrors.Newf(dErrors.CodeUnsupported, "unsupported mime type %q", r.MimeType)
	}

	return nil
}

// ImageData returns the decoded badge image.
func (r *BakeRequest) ImageData() []byte {
	return r.imageData
}

// Format returns the format implied by the declared mime type, or unknown.
func (r *BakeRequest) Format() bake.Format {
	return r.format
}
