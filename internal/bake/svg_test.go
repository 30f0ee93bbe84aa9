package bake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "badgekeeper/pkg/domain-errors"
)

const testSVG = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="120" height="120">
  <rect width="120" height="120" fill="#1a7f37"/>
  <text x="10" y="60">badge</text>
</svg>`

func TestBakeSVGRoundTrip(t *testing.T) {
	svc := NewService(testLogger(), nil)

	baked, err := svc.Bake([]byte(testSVG), []byte(testBadgeJSON), Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, baked.Format)
	assert.False(t, baked.Compressed)
	assert.Contains(t, string(baked.Data), `xmlns:openbadges="http://openbadges.org"`)
	assert.Contains(t, string(baked.Data), `verify="urn:uuid:badge-1"`)

	res, err := svc.Unbake(baked.Data)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.JSONEq(t, testBadgeJSON, string(res.RawData))
	assert.Equal(t, FormatSVG, res.SourceFormat)
	assert.Equal(t, "urn:uuid:badge-1", res.VerifyURL)
	assert.Equal(t, "3.0", res.Version)
}

func TestBakeSVGSelfClosingRoot(t *testing.T) {
	svc := NewService(testLogger(), nil)

	baked, err := svc.Bake([]byte(`<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8"/>`),
		[]byte(testBadgeJSON), Options{})
	require.NoError(t, err)

	res, err := svc.Unbake(baked.Data)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.JSONEq(t, testBadgeJSON, string(res.RawData))
}

func TestBakeSVGQuotedAngleBracketAttribute(t *testing.T) {
	svc := NewService(testLogger(), nil)
	source := `<svg xmlns="http://www.w3.org/2000/svg" aria-label="a &gt; b > c"><rect/></svg>`

	baked, err := svc.Bake([]byte(source), []byte(testBadgeJSON), Options{})
	require.NoError(t, err)

	res, err := svc.Unbake(baked.Data)
	require.NoError(t, err)
	assert.True(t, res.Found)
}

func TestBakeSVGReplacesExisting(t *testing.T) {
	svc := NewService(testLogger(), nil)

	first, err := svc.Bake([]byte(testSVG), []byte(`{"id":"urn:first"}`), Options{})
	require.NoError(t, err)
	second, err := svc.Bake(first.Data, []byte(`{"id":"urn:second"}`), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(second.Data), assertionOpenTag))

	res, err := svc.Unbake(second.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"urn:second"}`, string(res.RawData))
}

func TestBakeSVGPreserveExistingConflicts(t *testing.T) {
	svc := NewService(testLogger(), nil)

	baked, err := svc.Bake([]byte(testSVG), []byte(testBadgeJSON), Options{})
	require.NoError(t, err)

	_, err = svc.Bake(baked.Data, []byte(`{"id":"urn:other"}`), Options{PreserveExisting: true})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestBakeSVGEscapesCDATATerminator(t *testing.T) {
	svc := NewService(testLogger(), nil)
	payload := `{"id":"urn:x","note":"tricky ]]> payload"}`

	baked, err := svc.Bake([]byte(testSVG), []byte(payload), Options{})
	require.NoError(t, err)

	res, err := svc.Unbake(baked.Data)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.JSONEq(t, payload, string(res.RawData))
}

func TestUnbakeSVGWithoutAssertion(t *testing.T) {
	svc := NewService(testLogger(), nil)

	res, err := svc.Unbake([]byte(testSVG))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Detail)
	assert.False(t, IsBaked([]byte(testSVG)))
}

func TestUnbakeSVGVerifyOnlyAssertion(t *testing.T) {
	svc := NewService(testLogger(), nil)
	doc := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:openbadges="http://openbadges.org">` +
		`<openbadges:assertion verify="https://badges.example.edu/assertions/9"/></svg>`

	res, err := svc.Unbake([]byte(doc))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, "https://badges.example.edu/assertions/9", res.VerifyURL)
	assert.Contains(t, res.Detail, "verify reference")
}

func TestUnbakeSVGEmptyAssertion(t *testing.T) {
	svc := NewService(testLogger(), nil)
	doc := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:openbadges="http://openbadges.org">` +
		`<openbadges:assertion></openbadges:assertion></svg>`

	res, err := svc.Unbake([]byte(doc))
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Contains(t, res.Detail, "empty")
}

func TestUnbakeSVGUndeclaredPrefix(t *testing.T) {
	svc := NewService(testLogger(), nil)
	doc := `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<openbadges:assertion>{"id":"urn:x"}</openbadges:assertion></svg>`

	res, err := svc.Unbake([]byte(doc))
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.JSONEq(t, `{"id":"urn:x"}`, string(res.RawData))
}

func TestUnbakeMalformedSVG(t *testing.T) {
	svc := NewService(testLogger(), nil)

	_, err := svc.Unbake([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect`))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
