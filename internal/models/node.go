// Package models defines the domain types for the story graph.
package models

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// MaxTextLength bounds Content.Text, counted in characters.
const MaxTextLength = 1000

// Node is a unit of branching narrative content.
type Node struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Content is the payload owned by exactly one node.
type Content struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Illustration string    `json:"illustration,omitempty"`
}

// Edge is a directed, labeled connection from a parent node to a child node.
type Edge struct {
	ID         uuid.UUID `json:"id"`
	ChoiceText string    `json:"choice_text"`
	Parent     Node      `json:"parent"`
	Child      Node      `json:"child"`
}

// NodeDraft carries the caller-supplied fields of a node. Illustration is
// left unchanged by updates when nil.
type NodeDraft struct {
	Title        string
	Text         string
	Illustration *string
}

// Validate checks the draft shape.
func (d NodeDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&d.Text, validation.RuneLength(0, MaxTextLength)),
	)
}

// ValidateChoice checks an edge label.
func ValidateChoice(choice string) error {
	return validation.Validate(choice,
		validation.Required.Error("choice text cannot be blank"),
		validation.By(notBlank),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}
