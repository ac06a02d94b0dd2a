// Package backup serializes the whole store into a single JSON document and
// restores a store from one.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/consultora/pkg/types"
)

// Document versions. 1.0 documents carry no tags.
const (
	Version       = "1.1"
	VersionLegacy = "1.0"
)

// requiredKeys must be present in every document, whatever the version.
var requiredKeys = []string{
	"version", "fecha", "clientes", "notas", "archivos", "pdfsUnidos", "credenciales", "opciones",
}

// Keys whose value must be a JSON array or a JSON object. A null never
// passes: it would decode to an empty collection and wipe the store.
var (
	arrayKeys  = []string{"clientes", "notas", "archivos", "pdfsUnidos", "etiquetas"}
	objectKeys = []string{"credenciales", "opciones"}
)

// Document is the backup file layout.
type Document struct {
	Version         string                  `json:"version"`
	Date            time.Time               `json:"fecha"`
	Clients         []*types.Client         `json:"clientes"`
	Notes           []*types.Note           `json:"notas"`
	Files           []*types.File           `json:"archivos"`
	MergedDocuments []*types.MergedDocument `json:"pdfsUnidos"`
	Credentials     types.Credentials       `json:"credenciales"`
	Options         types.OptionLists       `json:"opciones"`
	// Tags is nil when the document has no etiquetas key.
	Tags []*types.Tag `json:"etiquetas"`
}

// Create reads the full content of store into a Document dated now.
func Create(store types.Store) (*Document, error) {
	return create(store, time.Now())
}

func create(store types.Store, now time.Time) (*Document, error) {
	clients, err := store.Clients().List()
	if err != nil {
		return nil, fmt.Errorf("reading clients: %w", err)
	}
	notes, err := store.Notes().List()
	if err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}
	files, err := store.Files().List()
	if err != nil {
		return nil, fmt.Errorf("reading files: %w", err)
	}
	merged, err := store.MergedDocuments().List()
	if err != nil {
		return nil, fmt.Errorf("reading merged documents: %w", err)
	}
	tags, err := store.Tags().List()
	if err != nil {
		return nil, fmt.Errorf("reading tags: %w", err)
	}
	creds, err := store.Settings().Credentials()
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	opts, err := store.Settings().OptionLists()
	if err != nil {
		return nil, fmt.Errorf("reading option lists: %w", err)
	}

	return &Document{
		Version:         Version,
		Date:            now.UTC(),
		Clients:         orEmpty(clients),
		Notes:           orEmpty(notes),
		Files:           orEmpty(files),
		MergedDocuments: orEmpty(merged),
		Credentials:     creds,
		Options:         listsOrEmpty(opts),
		Tags:            orEmpty(tags),
	}, nil
}

// listsOrEmpty writes every option list as an array so the document parses.
func listsOrEmpty(o types.OptionLists) types.OptionLists {
	return types.OptionLists{
		TaxpayerType:   orEmpty(o.TaxpayerType),
		EntityType:     orEmpty(o.EntityType),
		Administration: orEmpty(o.Administration),
		Billing:        orEmpty(o.Billing),
		Regime:         orEmpty(o.Regime),
		Consolidation:  orEmpty(o.Consolidation),
		Manager:        orEmpty(o.Manager),
	}
}

// orEmpty keeps empty collections as [] rather than null in the output.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Marshal encodes doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	return data, nil
}

// CreateJSON is Create followed by Marshal.
func CreateJSON(store types.Store) ([]byte, error) {
	doc, err := Create(store)
	if err != nil {
		return nil, err
	}
	return Marshal(doc)
}

// Parse decodes and checks a backup document without touching any store.
// Every error wraps types.ErrRestore.
func Parse(data []byte) (*Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %w", types.ErrRestore, err)
	}
	for _, k := range requiredKeys {
		raw, ok := keys[k]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", types.ErrRestore, k)
		}
		if jsonKind(raw) == 'n' {
			return nil, fmt.Errorf("%w: %q is null", types.ErrRestore, k)
		}
	}
	if err := checkShape(keys); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRestore, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRestore, err)
	}
	if doc.Version != Version && doc.Version != VersionLegacy {
		return nil, fmt.Errorf("%w: unsupported version %q", types.ErrRestore, doc.Version)
	}
	if err := doc.check(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRestore, err)
	}
	return &doc, nil
}

// checkShape requires collections to be arrays, credentials and options to be
// objects, and every option list to be present as an array.
func checkShape(keys map[string]json.RawMessage) error {
	for _, k := range arrayKeys {
		raw, ok := keys[k]
		if ok && jsonKind(raw) != '[' {
			return fmt.Errorf("%q must be an array", k)
		}
	}
	for _, k := range objectKeys {
		if jsonKind(keys[k]) != '{' {
			return fmt.Errorf("%q must be an object", k)
		}
	}
	var lists map[string]json.RawMessage
	if err := json.Unmarshal(keys["opciones"], &lists); err != nil {
		return fmt.Errorf("opciones: %w", err)
	}
	for _, f := range types.OptionFields {
		raw, ok := lists[string(f)]
		if !ok {
			return fmt.Errorf("opciones: missing %q", f)
		}
		if jsonKind(raw) != '[' {
			return fmt.Errorf("opciones: %q must be an array", f)
		}
	}
	return nil
}

// jsonKind returns the first non-space byte of raw, or 0 when raw is empty.
func jsonKind(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// check validates every record and rejects missing or repeated IDs.
func (d *Document) check() error {
	type record interface{ Validate() error }
	seen := make(map[string]map[string]bool)
	check := func(kind, id string, r record) error {
		if r == nil {
			return fmt.Errorf("%s: null entry", kind)
		}
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		if seen[kind] == nil {
			seen[kind] = make(map[string]bool)
		}
		if seen[kind][id] {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[kind][id] = true
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
		return nil
	}

	for _, c := range d.Clients {
		if c == nil {
			return check("client", "", nil)
		}
		if err := check("client", c.ID, c); err != nil {
			return err
		}
	}
	for _, n := range d.Notes {
		if n == nil {
			return check("note", "", nil)
		}
		if err := check("note", n.ID, n); err != nil {
			return err
		}
	}
	for _, f := range d.Files {
		if f == nil {
			return check("file", "", nil)
		}
		if err := check("file", f.ID, f); err != nil {
			return err
		}
	}
	for _, m := range d.MergedDocuments {
		if m == nil {
			return check("merged document", "", nil)
		}
		if err := check("merged document", m.ID, m); err != nil {
			return err
		}
	}
	for _, t := range d.Tags {
		if t == nil {
			return check("tag", "", nil)
		}
		if err := check("tag", t.ID, t); err != nil {
			return err
		}
	}
	return d.Credentials.Validate()
}

// Snapshot converts the document into the input of types.Store.Replace.
func (d *Document) Snapshot() *types.Snapshot {
	snap := &types.Snapshot{
		Clients:         slices.Clone(d.Clients),
		Notes:           slices.Clone(d.Notes),
		Files:           slices.Clone(d.Files),
		MergedDocuments: slices.Clone(d.MergedDocuments),
		Credentials:     d.Credentials,
		Options:         d.Options.Clone(),
	}
	if d.Tags != nil {
		snap.Tags = slices.Clone(d.Tags)
	}
	return snap
}

// Restore parses data and replaces the content of store with it. A document
// that fails to parse leaves store untouched and wraps types.ErrRestore; a
// failure while applying wraps types.ErrRestoreIncomplete.
func Restore(store types.Store, data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	if err := store.Replace(doc.Snapshot()); err != nil {
		return fmt.Errorf("%w: %w", types.ErrRestoreIncomplete, err)
	}
	return nil
}
