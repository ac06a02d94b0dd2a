package types

import "time"

// File is a PDF attachment of a client, tagged with the period it applies to.
// Month is zero based (0 = January). Data is the base64 payload and is never
// interpreted by the store.
type File struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"clienteId" validate:"required"`
	Name       string    `json:"nombre" validate:"notblank"`
	Year       int       `json:"año" validate:"gt=0"`
	Month      int       `json:"mes" validate:"min=0,max=11"`
	Data       string    `json:"data"`
	UploadedAt time.Time `json:"fechaSubida"`
}

// Validate checks owner, name and period.
func (f *File) Validate() error {
	return validateRecord("file", f)
}

// Period returns the (year, month) the file is tagged with.
func (f *File) Period() Period {
	return MonthPeriod(f.Year, f.Month)
}

// Clone returns a copy.
func (f *File) Clone() *File {
	cp := *f
	return &cp
}
