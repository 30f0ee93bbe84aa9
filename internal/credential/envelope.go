package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// EnvelopeKind discriminates the two credential wire shapes.
type EnvelopeKind string

const (
	KindToken    EnvelopeKind = "token"
	KindDocument EnvelopeKind = "document"
)

// Envelope is the tagged union over the two shapes a credential arrives in.
// Downstream code switches on the concrete type rather than re-inspecting the
// raw input.
type Envelope interface {
	Kind() EnvelopeKind
}

// TokenEnvelope carries a compact signed token (three dot-separated base64url
// segments).
type TokenEnvelope struct {
	Token string
}

func (TokenEnvelope) Kind() EnvelopeKind { return KindToken }

// DocumentEnvelope carries a structured credential document.
type DocumentEnvelope struct {
	Credential *Credential
}

func (DocumentEnvelope) Kind() EnvelopeKind { return KindDocument }

// ParseEnvelope classifies raw JSON input: a JSON string is a compact token,
// an object is a structured document. Anything else is rejected.
func ParseEnvelope(raw json.RawMessage) (Envelope, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("empty credential input")
	}

	switch trimmed[0] {
	case '"':
		var token string
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, fmt.Errorf("parse token envelope: %w", err)
		}
		return TokenEnvelope{Token: token}, nil
	case '{':
		cred, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		return DocumentEnvelope{Credential: cred}, nil
	default:
		return nil, fmt.Errorf("credential must be a compact token string or a document object")
	}
}

// DecodedToken is the decoded view of a compact token: protected header,
// payload claims, and the working credential document extracted from them.
type DecodedToken struct {
	Header     map[string]any
	Payload    map[string]any
	Credential *Credential
}

// Algorithm returns the declared signing algorithm, or "".
func (d *DecodedToken) Algorithm() string {
	alg, _ := d.Header["alg"].(string)
	return alg
}

// KeyID returns the protected-header key identifier, or "".
func (d *DecodedToken) KeyID() string {
	kid, _ := d.Header["kid"].(string)
	return kid
}

// Decode splits and decodes the compact token without verifying its signature.
// The payload's embedded vc claim, when present, becomes the working document;
// otherwise the payload itself does.
func (t TokenEnvelope) Decode() (*DecodedToken, error) {
	parts := strings.Split(t.Token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid compact token format: expected 3 segments, got %d", len(parts))
	}

	header, err := decodeSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid token header: %w", err)
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid token payload: %w", err)
	}

	working := payload
	if vc, ok := payload["vc"].(map[string]any); ok {
		working = vc
	}

	cred, err := FromMap(working)
	if err != nil {
		return nil, fmt.Errorf("token credential: %w", err)
	}
	if cred.Issuer.ID == "" {
		if iss, ok := payload["iss"].(string); ok {
			cred.Issuer.ID = iss
		}
	}
	if cred.ID == "" {
		if jti, ok := payload["jti"].(string); ok {
			cred.ID = jti
		}
	}

	return &DecodedToken{Header: header, Payload: payload, Credential: cred}, nil
}

func decodeSegment(seg string) (map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(seg)
	if err != nil {
		return nil, fmt.Errorf("base64url decode: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return m, nil
}
