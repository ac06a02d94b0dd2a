package docs

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// samplePDF renders a PDF with the given number of pages and returns its
// base64 payload.
func samplePDF(t *testing.T, pages int) string {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("Pagina %d", i))
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return Encode(buf.Bytes())
}

func TestEncodeDecode(t *testing.T) {
	data := []byte("%PDF-1.4 contenido")
	payload := Encode(data)

	got, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = Decode("data:application/pdf;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = Decode("###")
	assert.Error(t, err)
}

func TestPDFName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"informe", "informe.pdf"},
		{"  informe.pdf ", "informe.pdf"},
		{"INFORME.PDF", "INFORME.PDF"},
		{"informe.pdf.bak", "informe.pdf.bak.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PDFName(tt.in), tt.in)
	}
}

func TestMerge(t *testing.T) {
	files := []*types.File{
		{ID: "a", Name: "a.pdf", Data: samplePDF(t, 2)},
		{ID: "b", Name: "b.pdf", Data: samplePDF(t, 1)},
		{ID: "c", Name: "c.pdf", Data: samplePDF(t, 3)},
	}
	data, err := Merge(files)
	require.NoError(t, err)

	n, err := PageCount(Encode(data))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestMergeSkipsUnreadable(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	files := []*types.File{
		{ID: "bad-b64", Name: "roto.pdf", Data: "***"},
		{ID: "good", Name: "bueno.pdf", Data: samplePDF(t, 2)},
		{ID: "not-pdf", Name: "texto.pdf", Data: Encode([]byte("hola"))},
	}
	data, err := Merge(files, WithLogger(logger))
	require.NoError(t, err)

	n, err := PageCount(Encode(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "roto.pdf")
	assert.Contains(t, buf.String(), "texto.pdf")

	_, err = Merge(files[:1])
	assert.ErrorIs(t, err, ErrNothingToMerge)
	_, err = Merge(nil)
	assert.ErrorIs(t, err, ErrNothingToMerge)
}

func TestNewMergedDocument(t *testing.T) {
	files := []*types.File{
		{ID: "a", ClientID: "c1", Name: "a.pdf", Data: samplePDF(t, 1)},
		{ID: "b", ClientID: "c2", Name: "b.pdf", Data: samplePDF(t, 1)},
	}

	doc, err := NewMergedDocument("Resumen junio", files, []string{"c1", "c2", "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Resumen junio.pdf", doc.Name)
	assert.Empty(t, doc.ID)
	assert.Equal(t, []string{"c1", "c2"}, doc.ClientIDs)
	n, err := PageCount(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = NewMergedDocument("solo", files[:1], nil)
	assert.ErrorIs(t, err, ErrTooFewFiles)

	_, err = NewMergedDocument("  ", files, nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		out[f.Name] = string(body)
	}
	return out
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestBuildZIP(t *testing.T) {
	clients := []*types.Client{
		{ID: "c1", LegalName: "Acme S.R.L."},
		{ID: "c2", LegalName: "Beta/Gamma"},
		{ID: "c3", LegalName: "Sin archivos"},
	}
	files := []*types.File{
		{ID: "f1", ClientID: "c1", Name: "iva.pdf", Year: 2024, Month: 2, Data: Encode([]byte("uno"))},
		{ID: "f2", ClientID: "c1", Name: "iva.pdf", Year: 2024, Month: 2, Data: Encode([]byte("dos"))},
		{ID: "f3", ClientID: "c2", Name: "it.pdf", Year: 2024, Month: 2, Data: Encode([]byte("tres"))},
		{ID: "f4", ClientID: "c2", Name: "otro.pdf", Year: 2024, Month: 3, Data: Encode([]byte("cuatro"))},
		{ID: "f5", ClientID: "c3", Name: "viejo.pdf", Year: 2023, Month: 2, Data: Encode([]byte("cinco"))},
	}

	t.Run("month", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := BuildZIP(&buf, clients, files, types.MonthPeriod(2024, 2))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		entries := zipEntries(t, buf.Bytes())
		assert.Equal(t, []string{
			"Acme S.R.L./iva (1).pdf",
			"Acme S.R.L./iva.pdf",
			"Beta-Gamma/it.pdf",
		}, keys(entries))
		assert.Equal(t, "uno", entries["Acme S.R.L./iva.pdf"])
		assert.Equal(t, "dos", entries["Acme S.R.L./iva (1).pdf"])
	})

	t.Run("whole year", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := BuildZIP(&buf, clients, files, types.YearPeriod(2024))
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		entries := zipEntries(t, buf.Bytes())
		assert.Contains(t, entries, "Beta-Gamma/Marzo/it.pdf")
		assert.Contains(t, entries, "Beta-Gamma/Abril/otro.pdf")
		assert.Contains(t, entries, "Acme S.R.L./Marzo/iva (1).pdf")
	})

	t.Run("no files", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := BuildZIP(&buf, clients, files, types.MonthPeriod(2022, 0))
		assert.ErrorIs(t, err, ErrNoFiles)
		assert.Zero(t, n)
		assert.Zero(t, buf.Len())
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := BuildZIP(io.Discard, clients, files, types.MonthPeriod(2024, 12))
		assert.ErrorIs(t, err, types.ErrInvalidData)
	})

	t.Run("duplicate legal names get distinct folders", func(t *testing.T) {
		twins := []*types.Client{{ID: "x", LegalName: "Gemela"}, {ID: "y", LegalName: "Gemela"}}
		twinFiles := []*types.File{
			{ID: "1", ClientID: "x", Name: "a.pdf", Year: 2024, Month: 0, Data: Encode([]byte("x"))},
			{ID: "2", ClientID: "y", Name: "a.pdf", Year: 2024, Month: 0, Data: Encode([]byte("y"))},
		}
		var buf bytes.Buffer
		_, err := BuildZIP(&buf, twins, twinFiles, types.MonthPeriod(2024, 0))
		require.NoError(t, err)
		assert.Equal(t, []string{"Gemela (1)/a.pdf", "Gemela/a.pdf"}, keys(zipEntries(t, buf.Bytes())))
	})
}

func TestZIPName(t *testing.T) {
	assert.Equal(t, "Clientes_Nestor_Marzo_2024.zip", ZIPName("Nestor", types.MonthPeriod(2024, 2)))
	assert.Equal(t, "Clientes_Nestor_Gestion_2023.zip", ZIPName("Nestor", types.YearPeriod(2023)))
	assert.Equal(t, "Clientes_usuario_Enero_2024.zip", ZIPName(" ", types.MonthPeriod(2024, 0)))
}
