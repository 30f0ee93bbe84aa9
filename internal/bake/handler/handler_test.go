package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgekeeper/internal/bake"
	dErrors "badgekeeper/pkg/domain-errors"
)

type fakeService struct {
	image      []byte
	credential []byte
	opts       bake.Options
	result     *bake.BakedImage
	err        error
}

func (s *fakeService) Bake(image, credentialJSON []byte, opts bake.Options) (*bake.BakedImage, error) {
	s.image = image
	s.credential = credentialJSON
	s.opts = opts
	return s.result, s.err
}

func newTestRouter(svc *fakeService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger).Register(r)
	return r
}

func post(t *testing.T, r chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/credentials/bake", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func bakeBody(t *testing.T, fields map[string]any) string {
	t.Helper()
	body, err := json.Marshal(fields)
	require.NoError(t, err)
	return string(body)
}

func TestHandleBake(t *testing.T) {
	svc := &fakeService{result: &bake.BakedImage{
		Data:       []byte("baked-png"),
		Format:     bake.FormatPNG,
		Compressed: true,
	}}
	r := newTestRouter(svc)

	rec := post(t, r, bakeBody(t, map[string]any{
		"image":            base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		"mimeType":         "image/png",
		"credential":       map[string]any{"id": "urn:uuid:badge-1"},
		"compress":         true,
		"preserveExisting": true,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("png-bytes"), svc.image)
	assert.JSONEq(t, `{"id":"urn:uuid:badge-1"}`, string(svc.credential))
	assert.Equal(t, bake.FormatPNG, svc.opts.Format)
	assert.True(t, svc.opts.Compress)
	assert.True(t, svc.opts.PreserveExisting)

	var res BakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("baked-png")), res.Image)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, "image/png", res.MimeType)
	assert.Equal(t, len("baked-png"), res.Size)
	assert.True(t, res.Compressed)
}

func TestHandleBakeSVGMimeType(t *testing.T) {
	svc := &fakeService{result: &bake.BakedImage{Data: []byte("<svg/>"), Format: bake.FormatSVG}}
	r := newTestRouter(svc)

	rec := post(t, r, bakeBody(t, map[string]any{
		"image":      base64.StdEncoding.EncodeToString([]byte("<svg/>")),
		"mimeType":   "image/svg+xml",
		"credential": map[string]any{"id": "urn:x"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bake.FormatSVG, svc.opts.Format)

	var res BakeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "image/svg+xml", res.MimeType)
}

func TestHandleBakeRejectsBadRequests(t *testing.T) {
	image := base64.StdEncoding.EncodeToString([]byte("png"))
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"not json", `{broken`, http.StatusBadRequest},
		{"missing image", `{"credential": {}}`, http.StatusBadRequest},
		{"missing credential", `{"image": "` + image + `"}`, http.StatusBadRequest},
		{"image not base64", `{"image": "***", "credential": {}}`, http.StatusBadRequest},
		{"unsupported mime type", `{"image": "` + image + `", "mimeType": "image/gif", "credential": {}}`, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			rec := post(t, newTestRouter(svc), tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, svc.image)
		})
	}
}

func TestHandleBakeServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"conflict", dErrors.New(dErrors.CodeConflict, "image already carries an embedded credential"), http.StatusConflict},
		{"unsupported", dErrors.New(dErrors.CodeUnsupported, "image is neither PNG nor SVG"), http.StatusUnsupportedMediaType},
		{"validation", dErrors.New(dErrors.CodeValidation, "credential payload is not valid JSON"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := post(t, newTestRouter(svc), bakeBody(t, map[string]any{
				"image":      base64.StdEncoding.EncodeToString([]byte("png")),
				"credential": map[string]any{},
			}))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
