package models

// Category represents a category row
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// CategoryRequest is the body accepted by category create and update
type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
