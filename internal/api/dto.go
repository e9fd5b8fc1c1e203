package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/storygraph/internal/models"
)

// NodeRequest is the request body for creating or updating a node.
// ID is only read by PATCH /nodes, where the id travels in the body.
type NodeRequest struct {
	ID           string  `json:"id,omitempty" example:"0190f0c4-7a1b-7c00-8000-000000000001"`
	Title        string  `json:"title" example:"Start" validate:"required"`
	Text         string  `json:"text" example:"Once upon a time, "`
	Illustration *string `json:"illustration,omitempty" example:"castle.png"`
}

// Validate checks the request shape.
func (r NodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Text, validation.RuneLength(0, models.MaxTextLength)),
	)
}

func (r NodeRequest) draft() models.NodeDraft {
	return models.NodeDraft{Title: r.Title, Text: r.Text, Illustration: r.Illustration}
}

// NodeDetail is the node response type (aliased from the domain layer).
type NodeDetail = models.Node

// EdgeDetail is the edge response type (aliased from the domain layer).
type EdgeDetail = models.Edge

// NodeListResponse wraps title search results.
type NodeListResponse struct {
	Nodes []NodeDetail `json:"nodes" validate:"required"`
}

// EdgeListResponse wraps edge listings.
type EdgeListResponse struct {
	Edges []EdgeDetail `json:"edges" validate:"required"`
}

// IllustrationUploadResponse is returned after a successful illustration upload.
type IllustrationUploadResponse struct {
	Filename string `json:"filename" example:"castle.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	SHA256   string `json:"sha256" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" validate:"required"`
	URL      string `json:"url" example:"/illustrations/castle.png" validate:"required"`
}
