// Package client defines the contract shared by the vision-model backends
// and the parsing of their face-detection replies.
package client

import (
	"context"

	"github.com/menta2k/face-cropper/pkg/types"
)

// VisionClient is implemented by every vision-model backend
type VisionClient interface {
	// SimpleQuery sends a free-form prompt with an image and returns the
	// raw text reply.
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// DetectFaces asks the model for face boxes normalized to [0,1].
	DetectFaces(ctx context.Context, model, prompt, imgB64 string) (*types.FaceResult, error)
}
