// Package docs turns stored PDF attachments into deliverables: merged PDFs
// and per-client ZIP archives.
package docs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNothingToMerge is returned when no input decodes to a valid PDF.
	ErrNothingToMerge = errors.New("no readable PDF to merge")
	// ErrTooFewFiles is returned when fewer than two files are selected.
	ErrTooFewFiles = errors.New("at least two files are required to merge")
	// ErrNoFiles is returned when no file matches the selected period.
	ErrNoFiles = errors.New("no files for the selected period")
)

// Option configures document operations.
type Option func(*options)

type options struct {
	logger *logrus.Logger
}

// WithLogger reports skipped inputs to l.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

func collect(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetOutput(io.Discard)
	}
	return o
}

// Encode returns the base64 payload stored for data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. A data URL prefix ("data:application/pdf;base64,")
// is accepted and dropped.
func Decode(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return data, nil
}

// PDFName trims name and appends .pdf unless it already ends with it.
func PDFName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}
