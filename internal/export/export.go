// Package export writes the client list as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ttacon/libphonenumber"
	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// SheetName is the single worksheet of the export.
const SheetName = "Clientes"

// Header lists the column titles in order.
var Header = []string{
	"NIT/CUR/CI", "Razón social", "Correo", "Tipo de contribuyente", "Tipo de entidad",
	"Contacto", "Administración", "Facturación", "Régimen", "Actividad",
	"Consolidación", "Encargado", "Dirección", "Etiquetas", "Fecha de creación",
}

// ClientsXLSX writes one row per client. Tag IDs are shown by name and
// contacts that parse as valid phone numbers for region are formatted
// internationally. Passwords are never exported.
func ClientsXLSX(w io.Writer, clients []*types.Client, tags []*types.Tag, region string) error {
	names := make(map[string]string, len(tags))
	for _, t := range tags {
		names[t.ID] = t.Name
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, c := range clients {
		var tagNames []string
		for _, id := range c.Tags {
			if n, ok := names[id]; ok {
				tagNames = append(tagNames, n)
			}
		}
		created := ""
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Format("2006-01-02")
		}
		row := []any{
			c.TaxID, c.LegalName, c.Email, c.TaxpayerType, c.EntityType,
			FormatContact(c.Contact, region), c.Administration, c.Billing, c.Regime, c.Activity,
			c.Consolidation, c.Manager, c.Address, strings.Join(tagNames, ", "), created,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing client %s: %w", c.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// FormatContact returns contact in international format when it is a valid
// phone number for region, and unchanged otherwise.
func FormatContact(contact, region string) string {
	trimmed := strings.TrimSpace(contact)
	if trimmed == "" {
		return contact
	}
	p, err := libphonenumber.Parse(trimmed, strings.ToUpper(region))
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return contact
	}
	return libphonenumber.Format(p, libphonenumber.INTERNATIONAL)
}
