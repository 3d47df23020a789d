package chat

import (
	"time"

	"github.com/google/uuid"
)

// FAQ is one canned answer matched against visitor questions by keyword.
type FAQ struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question" validate:"required"`
	Answer    string    `json:"answer" validate:"required"`
	Keywords  []string  `json:"keywords" validate:"required,min=1"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// AskInput is a visitor question.
type AskInput struct {
	Question string `json:"question" validate:"required"`
}

// Answer is the reply to a visitor question. Matched is false when no
// FAQ scored and the fallback text was returned.
type Answer struct {
	Answer   string  `json:"answer"`
	Matched  bool    `json:"matched"`
	Category string  `json:"category,omitempty"`
	Score    int     `json:"score,omitempty"`
	FAQID    *string `json:"faqId,omitempty"`
}
