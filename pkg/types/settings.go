package types

import (
	"fmt"
	"slices"
	"strings"
)

// Credentials is the single username/password pair that gates the
// application. Stored in clear text.
type Credentials struct {
	Username string `json:"usuario" validate:"notblank"`
	Password string `json:"contrasena" validate:"notblank"`
}

// DefaultCredentials returns the pair seeded on first run.
func DefaultCredentials() Credentials {
	return Credentials{Username: "Nestor", Password: "1005"}
}

// Validate checks that both parts are present.
func (c Credentials) Validate() error {
	return validateRecord("credentials", &c)
}

// OptionField names one of the editable option lists.
type OptionField string

// Option list fields, named after their JSON keys.
const (
	OptionTaxpayerType   OptionField = "tipoContribuyente"
	OptionEntityType     OptionField = "tipoEntidad"
	OptionAdministration OptionField = "administracion"
	OptionBilling        OptionField = "facturacion"
	OptionRegime         OptionField = "regimen"
	OptionConsolidation  OptionField = "consolidacion"
	OptionManager        OptionField = "encargado"
)

// OptionFields lists every option field in display order.
var OptionFields = []OptionField{
	OptionTaxpayerType,
	OptionEntityType,
	OptionAdministration,
	OptionBilling,
	OptionRegime,
	OptionConsolidation,
	OptionManager,
}

// ErrUnknownOptionField is returned for a field name outside OptionFields.
var ErrUnknownOptionField = fmt.Errorf("%w: unknown option field", ErrInvalidData)

// OptionLists holds the values offered for each categorical client field.
type OptionLists struct {
	TaxpayerType   []string `json:"tipoContribuyente"`
	EntityType     []string `json:"tipoEntidad"`
	Administration []string `json:"administracion"`
	Billing        []string `json:"facturacion"`
	Regime         []string `json:"regimen"`
	Consolidation  []string `json:"consolidacion"`
	Manager        []string `json:"encargado"`
}

// DefaultOptionLists returns the option lists seeded on first run.
func DefaultOptionLists() OptionLists {
	return OptionLists{
		TaxpayerType:   []string{"Natural", "Jurídica", "Extranjera"},
		EntityType:     []string{"Privada", "Pública", "Mixta", "ONG"},
		Administration: []string{"Centralizada", "Descentralizada", "Autónoma"},
		Billing:        []string{"Electrónica", "Manual", "Computarizada"},
		Regime:         []string{"General", "Simplificado", "Especial"},
		Consolidation:  []string{"Mensual", "Trimestral", "Anual"},
		Manager:        []string{"Contador Principal", "Contador Auxiliar", "Administrador"},
	}
}

// ParseOptionField validates a field name.
func ParseOptionField(name string) (OptionField, error) {
	f := OptionField(name)
	if !slices.Contains(OptionFields, f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownOptionField, name)
	}
	return f, nil
}

func (o *OptionLists) list(field OptionField) (*[]string, error) {
	switch field {
	case OptionTaxpayerType:
		return &o.TaxpayerType, nil
	case OptionEntityType:
		return &o.EntityType, nil
	case OptionAdministration:
		return &o.Administration, nil
	case OptionBilling:
		return &o.Billing, nil
	case OptionRegime:
		return &o.Regime, nil
	case OptionConsolidation:
		return &o.Consolidation, nil
	case OptionManager:
		return &o.Manager, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptionField, field)
	}
}

// Values returns a copy of the values of field.
func (o OptionLists) Values(field OptionField) ([]string, error) {
	l, err := o.list(field)
	if err != nil {
		return nil, err
	}
	return slices.Clone(*l), nil
}

// Add appends a trimmed value to field. Blank values are rejected.
func (o *OptionLists) Add(field OptionField, value string) error {
	l, err := o.list(field)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return &ValidationError{Kind: "option", Fields: []FieldError{{Field: string(field), Rule: "notblank"}}}
	}
	*l = append(slices.Clone(*l), value)
	return nil
}

// Rename replaces the value at index in field.
func (o *OptionLists) Rename(field OptionField, index int, value string) error {
	l, err := o.list(field)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return &ValidationError{Kind: "option", Fields: []FieldError{{Field: string(field), Rule: "notblank"}}}
	}
	if index < 0 || index >= len(*l) {
		return fmt.Errorf("%w: %s index %d", ErrNotFound, field, index)
	}
	cp := slices.Clone(*l)
	cp[index] = value
	*l = cp
	return nil
}

// Remove deletes the value at index in field.
func (o *OptionLists) Remove(field OptionField, index int) error {
	l, err := o.list(field)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(*l) {
		return fmt.Errorf("%w: %s index %d", ErrNotFound, field, index)
	}
	*l = slices.Delete(slices.Clone(*l), index, index+1)
	return nil
}

// Clone returns a deep copy.
func (o OptionLists) Clone() OptionLists {
	return OptionLists{
		TaxpayerType:   slices.Clone(o.TaxpayerType),
		EntityType:     slices.Clone(o.EntityType),
		Administration: slices.Clone(o.Administration),
		Billing:        slices.Clone(o.Billing),
		Regime:         slices.Clone(o.Regime),
		Consolidation:  slices.Clone(o.Consolidation),
		Manager:        slices.Clone(o.Manager),
	}
}
