package types

import "time"

// Note is a free-text entry attached to one client.
type Note struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clienteId" validate:"required"`
	Content   string    `json:"contenido" validate:"notblank"`
	CreatedAt time.Time `json:"fecha"`
}

// Validate checks that the note has an owner and content.
func (n *Note) Validate() error {
	return validateRecord("note", n)
}

// Clone returns a copy.
func (n *Note) Clone() *Note {
	cp := *n
	return &cp
}
