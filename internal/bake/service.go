// Package bake embeds credentials into badge images and extracts them again.
// PNG badges carry the credential in an iTXt chunk keyed "openbadges"; SVG
// badges carry it in an openbadges:assertion element.
package bake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"badgekeeper/internal/bake/metrics"
	"badgekeeper/internal/credential"
	dErrors "badgekeeper/pkg/domain-errors"
)

// Format identifies the badge image container.
type Format string

const (
	FormatPNG     Format = "png"
	FormatSVG     Format = "svg"
	FormatUnknown Format = ""
)

// Options controls a bake operation.
type Options struct {
	// Format overrides magic-byte detection when set.
	Format Format

	// Compress stores the PNG payload zlib-compressed. Ignored for SVG.
	Compress bool

	// ValidateCredential rejects payloads that do not parse as a credential
	// with a recognized base type.
	ValidateCredential bool

	// PreserveExisting makes baking an already-baked image an error instead
	// of silently replacing the embedded credential.
	PreserveExisting bool
}

// BakedImage is the result of embedding a credential.
type BakedImage struct {
	Data       []byte
	Format     Format
	Compressed bool
}

// UnbakeResult reports what extraction found. Found is false both for images
// that carry no credential and for images whose embedded data is corrupted;
// Detail distinguishes the two.
type UnbakeResult struct {
	Found         bool
	Credential    *credential.Credential
	RawData       []byte
	Version       string
	SourceFormat  Format
	WasCompressed bool
	VerifyURL     string
	Detail        string
}

// Service bakes and unbakes badge images.
type Service struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService builds a baking service.
func NewService(logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{logger: logger, metrics: m}
}

// DetectFormat sniffs the image container from its leading bytes.
func DetectFormat(image []byte) Format {
	if bytes.HasPrefix(image, pngMagic) {
		return FormatPNG
	}
	// Scan the whole buffer: an SVG may open with an arbitrarily long
	// prolog or comment run before the root element, and the input is
	// already size-capped upstream.
	if bytes.Contains(image, []byte("<svg")) {
		return FormatSVG
	}
	return FormatUnknown
}

// IsBaked reports whether the image already carries an embedded credential.
func IsBaked(image []byte) bool {
	switch DetectFormat(image) {
	case FormatPNG:
		res, err := unbakePNG(image)
		return err == nil && (res.Found || res.Detail != "")
	case FormatSVG:
		res, err := unbakeSVG(image)
		return err == nil && (res.Found || res.Detail != "")
	default:
		return false
	}
}

// Bake embeds the credential JSON into the image without touching the
// picture data.
func (s *Service) Bake(image, credentialJSON []byte, opts Options) (*BakedImage, error) {
	format := opts.Format
	if format == FormatUnknown {
		format = DetectFormat(image)
	}
	if format == FormatUnknown {
		s.metrics.IncrementOperation("bake", "unknown", "error")
		return nil, dErrors.New(dErrors.CodeUnsupported, "image is neither PNG nor SVG")
	}

	if !json.Valid(credentialJSON) {
		s.metrics.IncrementOperation("bake", string(format), "error")
		return nil, dErrors.New(dErrors.CodeValidation, "credential payload is not valid JSON")
	}
	if opts.ValidateCredential {
		cred, err := credential.Parse(credentialJSON)
		if err != nil {
			s.metrics.IncrementOperation("bake", string(format), "error")
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "credential payload does not parse")
		}
		if !cred.HasBaseType() {
			s.metrics.IncrementOperation("bake", string(format), "error")
			return nil, dErrors.New(dErrors.CodeValidation, "credential payload declares no recognized base credential type")
		}
	}

	if opts.PreserveExisting && IsBaked(image) {
		s.metrics.IncrementOperation("bake", string(format), "conflict")
		return nil, dErrors.New(dErrors.CodeConflict, "image already carries an embedded credential")
	}

	var (
		baked []byte
		err   error
	)
	switch format {
	case FormatPNG:
		baked, err = bakePNG(image, credentialJSON, opts.Compress)
	case FormatSVG:
		baked, err = bakeSVG(image, credentialJSON)
	}
	if err != nil {
		s.metrics.IncrementOperation("bake", string(format), "error")
		return nil, err
	}

	s.metrics.IncrementOperation("bake", string(format), "ok")
	s.metrics.ObservePayload(len(credentialJSON))
	return &BakedImage{
		Data:       baked,
		Format:     format,
		Compressed: format == FormatPNG && opts.Compress,
	}, nil
}

// Unbake extracts an embedded credential. A parseable image with nothing
// embedded returns Found=false and a nil error; an unparseable container is
// an error.
func (s *Service) Unbake(image []byte) (*UnbakeResult, error) {
	format := DetectFormat(image)

	var (
		res *UnbakeResult
		err error
	)
	switch format {
	case FormatPNG:
		res, err = unbakePNG(image)
	case FormatSVG:
		res, err = unbakeSVG(image)
	default:
		s.metrics.IncrementOperation("unbake", "unknown", "error")
		return nil, dErrors.New(dErrors.CodeUnsupported, "image is neither PNG nor SVG")
	}
	if err != nil {
		s.metrics.IncrementOperation("unbake", string(format), "error")
		return nil, err
	}
	res.SourceFormat = format

	if res.Found {
		if cred, perr := credential.Parse(res.RawData); perr == nil {
			res.Credential = cred
			res.Version = specVersion(res.RawData)
		} else if decoded, terr := (credential.TokenEnvelope{Token: string(bytes.TrimSpace(res.RawData))}).Decode(); terr == nil {
			// Compact-token embedding exists only in the v3 model.
			res.Credential = decoded.Credential
			res.Version = "3.0"
		} else {
			res.Found = false
			res.Detail = fmt.Sprintf("embedded data is not a credential: %v", perr)
		}
	}

	outcome := "not_found"
	if res.Found {
		outcome = "ok"
	} else if res.Detail != "" {
		outcome = "corrupted"
	}
	s.metrics.IncrementOperation("unbake", string(format), outcome)
	return res, nil
}

const obV3Context = "purl.imsglobal.org/spec/ob/v3p0"

// specVersion reports which Open Badges generation the embedded document
// belongs to, judged by its JSON-LD context.
func specVersion(raw []byte) string {
	var doc struct {
		Context json.RawMessage `json:"@context"`
	}
	if err := json.Unmarshal(raw, &doc); err == nil && bytes.Contains(doc.Context, []byte(obV3Context)) {
		return "3.0"
	}
	return "2.0"
}
