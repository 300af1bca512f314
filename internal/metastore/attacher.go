package metastore

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"

	"solana-token-forge/internal/domain"
	"solana-token-forge/internal/validate"
)

// descriptor is the off-chain token metadata document referenced by
// the on-chain metadata account.
type descriptor struct {
	Name        string               `json:"name"`
	Symbol      string               `json:"symbol"`
	Description string               `json:"description,omitempty"`
	Image       string               `json:"image"`
	Properties  descriptorProperties `json:"properties"`
}

type descriptorProperties struct {
	Files    []descriptorFile `json:"files"`
	Category string           `json:"category"`
}

type descriptorFile struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Attacher produces the content-addressed descriptor for a token.
type Attacher struct {
	store BlobStore
}

// NewAttacher wraps a blob store.
func NewAttacher(store BlobStore) *Attacher {
	return &Attacher{store: store}
}

// imageFilename picks an upload filename; the extension drives the
// content key suffix.
func imageFilename(params *domain.TokenParams) string {
	if params.ImageName != "" {
		return params.ImageName
	}
	exts, err := mime.ExtensionsByType(params.ImageType)
	if err == nil && len(exts) > 0 {
		return "logo" + exts[0]
	}
	return "logo.png"
}

// UploadAndDescribe uploads the image, then a JSON descriptor
// referencing its content address, and returns the descriptor's URI.
// Two uploads, strictly in that order; the descriptor embeds the image
// URI so the image must land first.
func (a *Attacher) UploadAndDescribe(ctx context.Context, params *domain.TokenParams) (string, error) {
	if !params.HasImage() {
		return "", fmt.Errorf("no image supplied")
	}

	imageURI, err := a.store.UploadBlob(ctx, params.Image, imageFilename(params), params.ImageType)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	doc := descriptor{
		Name:        params.Name,
		Symbol:      validate.NormalizeSymbol(params.Symbol),
		Description: params.Description,
		Image:       imageURI,
		Properties: descriptorProperties{
			Files:    []descriptorFile{{URI: imageURI, Type: params.ImageType}},
			Category: "image",
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal descriptor: %w", err)
	}

	uri, err := a.store.UploadBlob(ctx, raw, "metadata.json", "application/json")
	if err != nil {
		return "", fmt.Errorf("upload descriptor: %w", err)
	}
	return uri, nil
}
