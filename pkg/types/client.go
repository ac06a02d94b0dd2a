package types

import (
	"slices"
	"time"
)

// Client is a business or individual represented by the practice.
// Passwords are stored and exported in clear text.
type Client struct {
	ID             string    `json:"id"`
	TaxID          string    `json:"nitCurCi" validate:"notblank"`
	Email          string    `json:"correo" validate:"notblank"`
	Password       string    `json:"contrasena"`
	LegalName      string    `json:"razonSocial" validate:"notblank"`
	TaxpayerType   string    `json:"tipoContribuyente"`
	EntityType     string    `json:"tipoEntidad"`
	Contact        string    `json:"contacto"`
	Tags           []string  `json:"etiquetas"`
	Administration string    `json:"administracion"`
	Billing        string    `json:"facturacion"`
	Regime         string    `json:"regimen"`
	Activity       string    `json:"actividad"`
	Consolidation  string    `json:"consolidacion"`
	Manager        string    `json:"encargado"`
	Address        string    `json:"direccion"`
	CreatedAt      time.Time `json:"fechaCreacion"`
}

// Validate checks the mandatory fields: tax ID, legal name and email.
func (c *Client) Validate() error {
	return validateRecord("client", c)
}

// Normalize de-duplicates the tag set, keeping first occurrences in order,
// and replaces a nil set with an empty one.
func (c *Client) Normalize() {
	c.Tags = dedupe(c.Tags)
}

// HasTag reports whether the client carries tagID.
func (c *Client) HasTag(tagID string) bool {
	return slices.Contains(c.Tags, tagID)
}

// AddTag appends tagID unless already present. Reports whether it changed.
func (c *Client) AddTag(tagID string) bool {
	if c.HasTag(tagID) {
		return false
	}
	c.Tags = append(c.Tags, tagID)
	return true
}

// RemoveTag drops tagID from the set. Reports whether it changed.
func (c *Client) RemoveTag(tagID string) bool {
	if !c.HasTag(tagID) {
		return false
	}
	c.Tags = slices.DeleteFunc(slices.Clone(c.Tags), func(id string) bool { return id == tagID })
	return true
}

// Clone returns a deep copy.
func (c *Client) Clone() *Client {
	cp := *c
	cp.Tags = slices.Clone(c.Tags)
	return &cp
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
