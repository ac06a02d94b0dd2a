package types

import "time"

// Tag is a named, coloured label assignable to clients.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre" validate:"notblank"`
	Color     string    `json:"color" validate:"omitempty,hexcolor"`
	CreatedAt time.Time `json:"fechaCreacion"`
}

// Validate checks the name and, when set, the colour.
func (t *Tag) Validate() error {
	return validateRecord("tag", t)
}

// Clone returns a copy.
func (t *Tag) Clone() *Tag {
	cp := *t
	return &cp
}
