package types

import (
	"slices"
	"time"
)

// MergedDocument is a PDF built by concatenating the pages of several Files.
// ClientIDs records which clients the source files belonged to.
type MergedDocument struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre" validate:"notblank"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"fechaCreacion"`
	ClientIDs []string  `json:"clientesIds"`
}

// Validate checks that the document is named.
func (m *MergedDocument) Validate() error {
	return validateRecord("merged document", m)
}

// Normalize de-duplicates ClientIDs and replaces nil with an empty list.
func (m *MergedDocument) Normalize() {
	m.ClientIDs = dedupe(m.ClientIDs)
}

// Clone returns a deep copy.
func (m *MergedDocument) Clone() *MergedDocument {
	cp := *m
	cp.ClientIDs = slices.Clone(m.ClientIDs)
	return &cp
}
