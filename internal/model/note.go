package model

import "time"

// TitleMaxLength is the longest title, in characters, a note may carry.
const TitleMaxLength = 100

// DefaultTitle is stored when a note is created without a title.
const DefaultTitle = "Untitled Note"

type Note struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	MarkdownContent string    `json:"markdownContent"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
