package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientValidate(t *testing.T) {
	tests := []struct {
		name       string
		client     Client
		wantFields []string
	}{
		{
			name:   "mandatory fields present",
			client: Client{TaxID: "1234567", LegalName: "Acme S.R.L.", Email: "info@acme.bo"},
		},
		{
			name:       "missing legal name",
			client:     Client{TaxID: "1234567", Email: "info@acme.bo"},
			wantFields: []string{"razonSocial"},
		},
		{
			name:       "blank tax ID and email",
			client:     Client{TaxID: "   ", LegalName: "Acme S.R.L."},
			wantFields: []string{"nitCurCi", "correo"},
		},
		{
			name:   "optional fields may be empty",
			client: Client{TaxID: "1", LegalName: "X", Email: "x@y.z", Regime: "", Manager: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Validate()
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData))
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Len(t, ve.Fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.True(t, ve.Has(f), "expected %s to fail", f)
			}
		})
	}
}

func TestClientTags(t *testing.T) {
	c := &Client{Tags: []string{"a", "b", "a", "c", "b"}}
	c.Normalize()
	assert.Equal(t, []string{"a", "b", "c"}, c.Tags)

	assert.False(t, c.AddTag("a"))
	assert.True(t, c.AddTag("d"))
	assert.True(t, c.HasTag("d"))

	assert.True(t, c.RemoveTag("b"))
	assert.False(t, c.RemoveTag("b"))
	assert.Equal(t, []string{"a", "c", "d"}, c.Tags)

	empty := &Client{}
	empty.Normalize()
	assert.NotNil(t, empty.Tags)
	assert.Empty(t, empty.Tags)
}

func TestClientClone(t *testing.T) {
	c := &Client{ID: "c1", Tags: []string{"t1"}}
	cp := c.Clone()
	cp.Tags[0] = "changed"
	assert.Equal(t, "t1", c.Tags[0])
}

func TestRecordValidate(t *testing.T) {
	t.Run("note needs owner and content", func(t *testing.T) {
		err := (&Note{Content: " "}).Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.True(t, ve.Has("clienteId"))
		assert.True(t, ve.Has("contenido"))
	})

	t.Run("file month is zero based", func(t *testing.T) {
		assert.NoError(t, (&File{ClientID: "c", Name: "a.pdf", Year: 2024, Month: 0}).Validate())
		assert.NoError(t, (&File{ClientID: "c", Name: "a.pdf", Year: 2024, Month: 11}).Validate())

		err := (&File{ClientID: "c", Name: "a.pdf", Year: 2024, Month: 12}).Validate()
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.True(t, ve.Has("mes"))
	})

	t.Run("tag colour must be hex when set", func(t *testing.T) {
		assert.NoError(t, (&Tag{Name: "VIP", Color: "#ff0000"}).Validate())
		assert.NoError(t, (&Tag{Name: "VIP"}).Validate())
		assert.ErrorIs(t, (&Tag{Name: "VIP", Color: "red"}).Validate(), ErrInvalidData)
	})

	t.Run("merged document needs a name", func(t *testing.T) {
		assert.ErrorIs(t, (&MergedDocument{}).Validate(), ErrInvalidData)
	})

	t.Run("credentials need both parts", func(t *testing.T) {
		assert.NoError(t, DefaultCredentials().Validate())
		assert.ErrorIs(t, Credentials{Username: "x"}.Validate(), ErrInvalidData)
	})
}
