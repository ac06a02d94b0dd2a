package docs

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

func init() {
	// Keep pdfcpu from creating its config directory under the user's home.
	api.DisableConfigDir()
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Merge concatenates the pages of files in order. Inputs that fail to decode
// or validate are skipped and logged.
func Merge(files []*types.File, opts ...Option) ([]byte, error) {
	o := collect(opts)
	conf := pdfConfig()

	var readers []io.ReadSeeker
	for _, f := range files {
		log := o.logger.WithFields(logrus.Fields{"module": "docs", "file_id": f.ID, "name": f.Name})
		data, err := Decode(f.Data)
		if err != nil {
			log.WithError(err).Warn("skipping file with unreadable payload")
			continue
		}
		if err := api.Validate(bytes.NewReader(data), conf); err != nil {
			log.WithError(err).Warn("skipping invalid PDF")
			continue
		}
		readers = append(readers, bytes.NewReader(data))
	}
	if len(readers) == 0 {
		return nil, ErrNothingToMerge
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, conf); err != nil {
		return nil, fmt.Errorf("merging PDFs: %w", err)
	}
	return out.Bytes(), nil
}

// NewMergedDocument merges files into an unsaved MergedDocument named name
// (".pdf" appended when missing) that records clientIDs as provenance.
func NewMergedDocument(name string, files []*types.File, clientIDs []string, opts ...Option) (*types.MergedDocument, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &types.ValidationError{Kind: "merged document", Fields: []types.FieldError{{Field: "nombre", Rule: "notblank"}}}
	}
	if len(files) < 2 {
		return nil, ErrTooFewFiles
	}
	data, err := Merge(files, opts...)
	if err != nil {
		return nil, err
	}
	doc := &types.MergedDocument{
		Name:      PDFName(name),
		Data:      Encode(data),
		ClientIDs: clientIDs,
	}
	doc.Normalize()
	return doc, nil
}

// PageCount returns the number of pages of a stored payload.
func PageCount(payload string) (int, error) {
	data, err := Decode(payload)
	if err != nil {
		return 0, err
	}
	n, err := api.PageCount(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, fmt.Errorf("reading PDF: %w", err)
	}
	return n, nil
}
