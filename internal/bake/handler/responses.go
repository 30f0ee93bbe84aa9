package handler

import (
	"encoding/base64"

	"badgekeeper/internal/bake"
)

// BakeResponse is the HTTP response body for POST /credentials/bake.
type BakeResponse struct {
	Image      string `json:"image"` // base64-encoded baked image
	Format     string `json:"format"`
	MimeType   string `json:"mimeType"`
	Size       int    `json:"size"`
	Compressed bool   `json:"compressed"`
}

// FromBaked converts a baked image into its response shape.
func FromBaked(b *bake.BakedImage) BakeResponse {
	mime := "image/png"
	if b.Format == bake.FormatSVG {
		mime = "image/svg+xml"
	}
	return BakeResponse{
		Image:      base64.StdEncoding.EncodeToString(b.Data),
		Format:     string(b.Format),
		MimeType:   mime,
		Size:       len(b.Data),
		Compressed: b.Compressed,
	}
}
