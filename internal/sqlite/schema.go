// Package sqlite implements the SQLite storage backend for consultora.
// The schema is created on Attach with IF NOT EXISTS so an existing
// database file is reused across runs.
package sqlite

// Schema DDL for all tables.
const (
	createClients = `CREATE TABLE IF NOT EXISTS clients (
    client_id TEXT PRIMARY KEY,
    tax_id TEXT NOT NULL,
    email TEXT NOT NULL,
    password TEXT NOT NULL,
    legal_name TEXT NOT NULL,
    taxpayer_type TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    contact TEXT NOT NULL,
    administration TEXT NOT NULL,
    billing TEXT NOT NULL,
    regime TEXT NOT NULL,
    activity TEXT NOT NULL,
    consolidation TEXT NOT NULL,
    manager TEXT NOT NULL,
    address TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createClientTags = `CREATE TABLE IF NOT EXISTS client_tags (
    client_id TEXT NOT NULL,
    tag_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (client_id, tag_id)
);`

	createNotes = `CREATE TABLE IF NOT EXISTS notes (
    note_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createFiles = `CREATE TABLE IF NOT EXISTS files (
    file_id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL,
    name TEXT NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    data TEXT NOT NULL,
    uploaded_at TEXT NOT NULL
);`

	createMergedDocuments = `CREATE TABLE IF NOT EXISTS merged_documents (
    document_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createMergedDocumentClients = `CREATE TABLE IF NOT EXISTS merged_document_clients (
    document_id TEXT NOT NULL,
    client_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (document_id, client_id)
);`

	createTags = `CREATE TABLE IF NOT EXISTS tags (
    tag_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createSettings = `CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Index DDL for the lookups the tables perform.
const (
	idxClientTagsTag      = `CREATE INDEX IF NOT EXISTS idx_client_tags_tag ON client_tags(tag_id);`
	idxNotesClient        = `CREATE INDEX IF NOT EXISTS idx_notes_client ON notes(client_id);`
	idxFilesClient        = `CREATE INDEX IF NOT EXISTS idx_files_client ON files(client_id);`
	idxFilesPeriod        = `CREATE INDEX IF NOT EXISTS idx_files_period ON files(year, month);`
	idxMergedDocClientsID = `CREATE INDEX IF NOT EXISTS idx_merged_document_clients_client ON merged_document_clients(client_id);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createClients,
	createClientTags,
	createNotes,
	createFiles,
	createMergedDocuments,
	createMergedDocumentClients,
	createTags,
	createSettings,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxClientTagsTag,
	idxNotesClient,
	idxFilesClient,
	idxFilesPeriod,
	idxMergedDocClientsID,
}

// Settings keys.
const (
	settingCredentials = "credenciales"
	settingOptions     = "opciones"
)
