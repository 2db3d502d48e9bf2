package models

import "time"

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Note is a freestanding canvas annotation with no link to the step tree.
type Note struct {
	ID        string    `json:"id"       validate:"required"`
	Content   string    `json:"content"`
	Color     string    `json:"color"`
	Position  Position  `json:"position"`
	Size      Size      `json:"size"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
