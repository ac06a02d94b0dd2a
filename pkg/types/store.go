package types

// Store is the records store. Callers attach to a backend, use the table
// accessors, and detach when done. Every operation on a detached store
// returns ErrStoreDetached.
type Store interface {
	// Attach opens the backend described by config, creating its schema and
	// seeding default credentials and option lists when absent.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	Clients() ClientTable
	Notes() NoteTable
	Files() FileTable
	MergedDocuments() MergedDocumentTable
	Tags() TagTable
	Settings() SettingsTable

	// Replace clears the client, note, file and merged document collections,
	// inserts every record of snap, and overwrites the credentials and option
	// lists. Tags are replaced only when snap.Tags is non-nil. Either all of
	// it is applied or, when the medium supports it, none of it.
	Replace(snap *Snapshot) error
}

// Snapshot is the full content of a store.
type Snapshot struct {
	Clients         []*Client
	Notes           []*Note
	Files           []*File
	MergedDocuments []*MergedDocument
	Tags            []*Tag
	Credentials     Credentials
	Options         OptionLists
}

// ClientTable persists clients. Delete cascades to the client's notes and
// files.
type ClientTable interface {
	// List returns every client sorted by legal name.
	List() ([]*Client, error)
	// Get returns ErrNotFound when id is absent.
	Get(id string) (*Client, error)
	// Save validates and upserts c, assigning an ID when empty.
	// Returns the ID used.
	Save(c *Client) (string, error)
	Delete(id string) error
}

// NoteTable persists notes.
type NoteTable interface {
	// List returns every note, newest first.
	List() ([]*Note, error)
	// ListByClient returns the notes of one client, newest first.
	ListByClient(clientID string) ([]*Note, error)
	Get(id string) (*Note, error)
	Save(n *Note) (string, error)
	Delete(id string) error
}

// FileTable persists PDF attachments.
type FileTable interface {
	// List returns every file by period, most recent period first.
	List() ([]*File, error)
	// ListByClient returns the files of one client in List order.
	ListByClient(clientID string) ([]*File, error)
	Get(id string) (*File, error)
	Save(f *File) (string, error)
	Delete(id string) error
}

// MergedDocumentTable persists merged PDFs.
type MergedDocumentTable interface {
	// List returns every merged document, newest first.
	List() ([]*MergedDocument, error)
	Get(id string) (*MergedDocument, error)
	Save(m *MergedDocument) (string, error)
	Delete(id string) error
}

// TagTable persists tags. Delete strips the tag from every client.
type TagTable interface {
	// List returns every tag sorted by name.
	List() ([]*Tag, error)
	Get(id string) (*Tag, error)
	Save(t *Tag) (string, error)
	Delete(id string) error
}

// SettingsTable holds the singleton configuration records. Reads fall back to
// the built-in defaults when the record was never written.
type SettingsTable interface {
	Credentials() (Credentials, error)
	SetCredentials(c Credentials) error
	OptionLists() (OptionLists, error)
	SetOptionLists(o OptionLists) error
}
