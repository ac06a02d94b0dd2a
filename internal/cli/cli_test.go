package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/consultora/internal/backup"
	"github.com/mesh-intelligence/consultora/internal/docs"
	"github.com/mesh-intelligence/consultora/internal/paths"
	"github.com/mesh-intelligence/consultora/internal/sqlite"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// harness runs commands against private config and data directories.
type harness struct {
	t         *testing.T
	configDir string
	dataDir   string
	workDir   string
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	if testing.Short() {
		t.Skip("end-to-end CLI run")
	}
	root := t.TempDir()
	return &harness{
		t:         t,
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
		workDir:   filepath.Join(root, "work"),
		now:       time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC),
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut, now: func() time.Time { return h.now }}
	full := append([]string{"--config-dir", h.configDir, "--data-dir", h.dataDir}, args...)
	code := a.run(context.Background(), full)
	return result{stdout: out.String(), stderr: errOut.String(), code: code}
}

// ok runs args and requires success.
func (h *harness) ok(args ...string) string {
	h.t.Helper()
	res := h.run(args...)
	require.Equal(h.t, exitSuccess, res.code, "args %v: stderr %s", args, res.stderr)
	return res.stdout
}

// okJSON runs args with --json and decodes stdout into v.
func (h *harness) okJSON(v any, args ...string) {
	h.t.Helper()
	out := h.ok(append(args, "--json")...)
	require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
}

func (h *harness) addClient(legalName, taxID string, extra ...string) string {
	h.t.Helper()
	var c types.Client
	args := append([]string{"client", "add", "--legal-name", legalName, "--tax-id", taxID, "--email", "info@" + taxID + ".bo"}, extra...)
	h.okJSON(&c, args...)
	require.NotEmpty(h.t, c.ID)
	return c.ID
}

func (h *harness) path(name string) string {
	h.t.Helper()
	require.NoError(h.t, os.MkdirAll(h.workDir, 0o755))
	return filepath.Join(h.workDir, name)
}

// writePDF writes a PDF with the given number of pages and returns its path.
func (h *harness) writePDF(name string, pages int) string {
	h.t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("%s %d", name, i))
	}
	p := h.path(name)
	require.NoError(h.t, pdf.OutputFileAndClose(p))
	return p
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd(io.Discard, io.Discard)
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "version", "client", "note", "file", "merge", "zip", "tag", "settings", "backup", "export"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"config-dir", "data-dir", "json"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out := h.ok("version")
	assert.Contains(t, out, "consultora v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	h := newHarness(t)

	out := h.ok("init")
	configPath := paths.ConfigFile(h.configDir)
	assert.Contains(t, out, "Wrote "+configPath)
	assert.Contains(t, out, h.dataDir)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_dir: "+h.dataDir)
	assert.Contains(t, string(data), "phone_region: BO")
	assert.Contains(t, string(data), "driver: fs")

	_, err = os.Stat(filepath.Join(h.dataDir, sqlite.DBFileName))
	require.NoError(t, err)

	out = h.ok("init")
	assert.NotContains(t, out, "Wrote")
}

func TestConfigFromFileAndEnvironment(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.configDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile(h.configDir), []byte("log_level: verbose\n"), 0o644))

	res := h.run("tag", "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "log level")

	t.Setenv("CONSULTORA_LOG_LEVEL", "debug")
	h.ok("tag", "list")
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	const key = "CONSULTORA_PHONE_REGION"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s set in the environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(paths.EnvFile(dir), []byte(key+"=AR\n"), 0o600))

	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "AR", cfg.GetString(cfgKeyPhoneRegion))
	assert.Equal(t, "fs", cfg.GetString(cfgKeyBackupDriver))
}

func TestClientLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.addClient("Acme S.A.", "1020304", "--regime", "General", "--password", "clave")
	h.addClient("Beta SRL", "5566")

	out := h.ok("client", "list")
	assert.Contains(t, out, "Acme S.A.")
	assert.Contains(t, out, "Page 1 of 1 (2 client(s))")

	var page clientPage
	h.okJSON(&page, "client", "list", "--search", "acme")
	require.Len(t, page.Clients, 1)
	assert.Equal(t, id, page.Clients[0].ID)

	var updated types.Client
	h.okJSON(&updated, "client", "update", id, "--email", "nuevo@acme.bo")
	assert.Equal(t, "nuevo@acme.bo", updated.Email)
	assert.Equal(t, "General", updated.Regime, "unchanged flags keep their values")
	assert.Equal(t, "clave", updated.Password)

	out = h.ok("client", "show", id)
	assert.Contains(t, out, "nuevo@acme.bo")

	res := h.run("client", "delete", id)
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "--yes")

	h.ok("client", "delete", id, "--yes")
	res = h.run("client", "show", id)
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, types.ErrNotFound.Error())
}

func TestClientAddRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing tax ID", []string{"--legal-name", "Acme", "--email", "a@a.bo"}, "nitCurCi"},
		{"value outside option list", []string{"--legal-name", "Acme", "--tax-id", "1", "--email", "a@a.bo", "--regime", "Inventado"}, "regimen"},
		{"unknown tag", []string{"--legal-name", "Acme", "--tax-id", "1", "--email", "a@a.bo", "--tag", "nada"}, "nada"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.run(append([]string{"client", "add"}, tt.args...)...)
			assert.Equal(t, exitUserError, res.code)
			assert.Contains(t, res.stderr, tt.want)
		})
	}
}

func TestClientListPagination(t *testing.T) {
	h := newHarness(t)
	for i := range 7 {
		h.addClient(fmt.Sprintf("Cliente %02d", i), fmt.Sprintf("10%d", i))
	}

	var page clientPage
	h.okJSON(&page, "client", "list", "--page", "2")
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Clients, 2)
	assert.Equal(t, "Cliente 05", page.Clients[0].LegalName)

	h.okJSON(&page, "client", "list", "--all")
	assert.Len(t, page.Clients, 7)

	h.okJSON(&page, "client", "list", "--tax-digit", "3")
	require.Len(t, page.Clients, 1)
	assert.Equal(t, "Cliente 03", page.Clients[0].LegalName)
}

func TestTagsAndClientTagging(t *testing.T) {
	h := newHarness(t)
	id := h.addClient("Acme", "1")
	h.addClient("Beta", "2")

	var tag types.Tag
	h.okJSON(&tag, "tag", "add", "Urgente", "--color", "#e53935")
	require.NotEmpty(t, tag.ID)

	res := h.run("tag", "add", "Mal", "--color", "rojo")
	assert.Equal(t, exitUserError, res.code)

	h.ok("client", "tag", id, "urgente")
	out := h.ok("client", "tag", id, tag.ID)
	assert.Contains(t, out, "already tagged")

	var page clientPage
	h.okJSON(&page, "client", "list", "--tag", "Urgente")
	require.Len(t, page.Clients, 1)
	assert.Equal(t, id, page.Clients[0].ID)

	out = h.ok("tag", "list")
	assert.Contains(t, out, "Urgente")

	var detail clientDetail
	h.okJSON(&detail, "client", "untag", id, "Urgente")
	assert.Empty(t, detail.Tags)
	h.ok("client", "tag", id, "Urgente")

	assert.Equal(t, exitUserError, h.run("tag", "delete", "Urgente").code)
	h.ok("tag", "delete", "Urgente", "--yes")

	detail = clientDetail{}
	h.okJSON(&detail, "client", "show", id)
	assert.Empty(t, detail.Tags)
	assert.Equal(t, exitUserError, h.run("client", "tag", id, "Urgente").code)
}

func TestNotes(t *testing.T) {
	h := newHarness(t)
	id := h.addClient("Acme", "1")

	var note types.Note
	h.okJSON(&note, "note", "add", id, "Llamar", "el", "lunes")
	assert.Equal(t, "Llamar el lunes", note.Content)

	h.okJSON(&note, "note", "edit", note.ID, "Llamar el martes")
	assert.Equal(t, "Llamar el martes", note.Content)

	var notes []*types.Note
	h.okJSON(&notes, "note", "list", id)
	require.Len(t, notes, 1)
	assert.Equal(t, "Llamar el martes", notes[0].Content)

	assert.Equal(t, exitUserError, h.run("note", "add", "no-such-client", "hola").code)
	assert.Equal(t, exitUserError, h.run("note", "add", id).code)

	h.ok("note", "delete", note.ID)
	assert.Equal(t, exitUserError, h.run("note", "delete", note.ID).code)
}

func TestFilesMergeAndZip(t *testing.T) {
	h := newHarness(t)
	acme := h.addClient("Acme S.A.", "1")
	beta := h.addClient("Beta", "2")

	var first, second, other fileSummary
	h.okJSON(&first, "file", "add", acme, h.writePDF("iva.pdf", 2), "--year", "2024", "--month", "3")
	h.okJSON(&second, "file", "add", acme, h.writePDF("it.pdf", 1), "--year", "2024", "--month", "3", "--name", "Transacciones")
	h.okJSON(&other, "file", "add", beta, h.writePDF("rc.pdf", 1))
	assert.Equal(t, 2, first.Month, "months are stored zero based")
	assert.Equal(t, "Transacciones.pdf", second.Name)
	assert.Equal(t, 2024, other.Year)
	assert.Equal(t, 2, other.Month, "defaults to the current month")

	notPDF := h.path("notas.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hola"), 0o644))
	res := h.run("file", "add", acme, notPDF)
	assert.Equal(t, exitUserError, res.code)
	assert.Equal(t, exitUserError, h.run("file", "add", acme, notPDF, "--month", "13").code)

	var files []fileSummary
	h.okJSON(&files, "file", "list", "--client", acme)
	assert.Len(t, files, 2)
	h.okJSON(&files, "file", "list", "--year", "2024", "--month", "3")
	assert.Len(t, files, 3)
	h.okJSON(&files, "file", "list", "--month", "3")
	assert.Len(t, files, 3, "month without year matches every year")
	h.okJSON(&files, "file", "list", "--month", "4")
	assert.Empty(t, files)
	h.okJSON(&files, "file", "list", "--year", "2024")
	assert.Len(t, files, 3)
	assert.Equal(t, exitUserError, h.run("file", "list", "--month", "0").code)

	copyPath := h.path("copia.pdf")
	h.ok("file", "get", first.ID, "-o", copyPath)
	data, err := os.ReadFile(copyPath)
	require.NoError(t, err)
	pages, err := docs.PageCount(docs.Encode(data))
	require.NoError(t, err)
	assert.Equal(t, 2, pages)

	var merged mergedSummary
	h.okJSON(&merged, "merge", "create", "--name", "Resumen marzo", first.ID, second.ID)
	assert.Equal(t, "Resumen marzo.pdf", merged.Name)
	assert.Equal(t, []string{acme}, merged.ClientIDs)

	mergedPath := h.path("resumen.pdf")
	h.ok("merge", "get", merged.ID, "-o", mergedPath)
	data, err = os.ReadFile(mergedPath)
	require.NoError(t, err)
	pages, err = docs.PageCount(docs.Encode(data))
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	res = h.run("merge", "create", "--name", "Solo", first.ID)
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, docs.ErrTooFewFiles.Error())

	h.okJSON(&merged, "merge", "create", "--name", "Gestion", "--client", acme, "--year", "2024")
	assert.Equal(t, "Gestion.pdf", merged.Name)

	var all []mergedSummary
	h.okJSON(&all, "merge", "list")
	assert.Len(t, all, 2)

	zipPath := h.path("marzo.zip")
	h.ok("zip", "--year", "2024", "--month", "3", "-o", zipPath)
	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	zr.Close()
	sort.Strings(names)
	assert.Equal(t, []string{"Acme S.A./Transacciones.pdf", "Acme S.A./iva.pdf", "Beta/rc.pdf"}, names)

	res = h.run("zip", "--year", "2023", "-o", h.path("vacio.zip"))
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, docs.ErrNoFiles.Error())
	assert.Equal(t, exitUserError, h.run("zip", "--month", "3").code)

	h.ok("merge", "delete", merged.ID)
	h.ok("file", "delete", other.ID)
	h.okJSON(&files, "file", "list")
	assert.Len(t, files, 2)
}

func TestSettings(t *testing.T) {
	h := newHarness(t)

	var creds types.Credentials
	h.okJSON(&creds, "settings", "credentials")
	assert.Equal(t, types.DefaultCredentials(), creds)

	h.okJSON(&creds, "settings", "credentials", "--username", "Ana")
	assert.Equal(t, "Ana", creds.Username)
	assert.Equal(t, types.DefaultCredentials().Password, creds.Password)
	assert.Equal(t, exitUserError, h.run("settings", "credentials", "--password", "").code)

	var values []string
	h.okJSON(&values, "settings", "options", "add", "regimen", "Régimen", "Nuevo")
	assert.Equal(t, "Régimen Nuevo", values[len(values)-1])

	h.okJSON(&values, "settings", "options", "rename", "regimen", "1", "Ordinario")
	assert.Equal(t, "Ordinario", values[0])

	h.okJSON(&values, "settings", "options", "remove", "regimen", "2")
	assert.Equal(t, []string{"Ordinario", "Especial", "Régimen Nuevo"}, values)

	h.okJSON(&values, "settings", "options", "list", "regimen")
	assert.Equal(t, []string{"Ordinario", "Especial", "Régimen Nuevo"}, values)

	out := h.ok("settings", "options", "list")
	assert.Contains(t, out, "encargado")

	assert.Equal(t, exitUserError, h.run("settings", "options", "remove", "regimen", "0").code)
	assert.Equal(t, exitUserError, h.run("settings", "options", "remove", "regimen", "9").code)
	assert.Equal(t, exitUserError, h.run("settings", "options", "add", "colores", "rojo").code)

	h.addClient("Acme", "1", "--regime", "Ordinario")
}

func TestBackupCreateListRestore(t *testing.T) {
	h := newHarness(t)
	h.addClient("Acme", "1")

	out := h.ok("backup", "create")
	key := backup.KeyFor(h.now)
	assert.Contains(t, out, key)
	_, err := os.Stat(filepath.Join(h.dataDir, paths.BackupDirName, filepath.FromSlash(key)))
	require.NoError(t, err)

	out = h.ok("backup", "list")
	assert.Contains(t, out, key)

	h.addClient("Beta", "2")

	res := h.run("backup", "restore", key)
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "--yes")

	h.ok("backup", "restore", key, "--yes")
	var page clientPage
	h.okJSON(&page, "client", "list")
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Acme", page.Clients[0].LegalName)

	res = h.run("backup", "restore", "backups/missing.json", "--yes")
	assert.Equal(t, exitUserError, res.code)
}

func TestBackupCreateTwiceKeepsBoth(t *testing.T) {
	h := newHarness(t)
	h.addClient("Acme", "1")

	var first, second struct {
		Key string `json:"key"`
	}
	h.okJSON(&first, "backup", "create")
	h.okJSON(&second, "backup", "create")
	assert.NotEqual(t, first.Key, second.Key)

	var infos []struct {
		Key string `json:"key"`
	}
	h.okJSON(&infos, "backup", "list")
	assert.Len(t, infos, 2)
}

func TestBackupRootFromEnvironment(t *testing.T) {
	h := newHarness(t)
	root := filepath.Join(t.TempDir(), "copias")
	t.Setenv("CONSULTORA_BACKUP_FS_ROOT", root)

	h.ok("backup", "create")
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(backup.KeyFor(h.now))))
	require.NoError(t, err)
}

func TestBackupLocalFile(t *testing.T) {
	h := newHarness(t)
	h.addClient("Acme", "1")

	file := h.path("copia.json")
	h.ok("backup", "create", "-o", file)
	h.addClient("Beta", "2")
	h.ok("backup", "restore", "--file", file, "--yes")

	var page clientPage
	h.okJSON(&page, "client", "list")
	assert.Equal(t, 1, page.Total)

	corrupt := h.path("rota.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"version":"9.9"}`), 0o644))
	res := h.run("backup", "restore", "--file", corrupt, "--yes")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, types.ErrRestore.Error())

	h.okJSON(&page, "client", "list")
	assert.Equal(t, 1, page.Total, "rejected backup leaves records unchanged")
}

func TestExportClients(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(h.configDir, 0o755))
	require.NoError(t, os.WriteFile(paths.ConfigFile(h.configDir), []byte("phone_region: US\n"), 0o644))
	h.addClient("Acme", "1", "--contact", "6502530000")
	h.addClient("Beta", "2")

	file := h.path("clientes.xlsx")
	out := h.ok("export", "clients", "-o", file, "--search", "acme")
	assert.Contains(t, out, "1 client(s)")

	f, err := excelize.OpenFile(file)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Clientes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[1][1])
	assert.Equal(t, "+1 650-253-0000", rows[1][5])
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"nonsense"}},
		{"unknown flag", []string{"client", "list", "--bogus"}},
		{"missing argument", []string{"client", "show"}},
		{"too many arguments", []string{"note", "delete", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.run(tt.args...)
			assert.Equal(t, exitUserError, res.code)
			assert.Contains(t, res.stderr, "consultora: ")
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitSuccess},
		{"usage", usageErrorf("bad"), exitUserError},
		{"not found", fmt.Errorf("client x: %w", types.ErrNotFound), exitUserError},
		{"validation", &types.ValidationError{Kind: "client"}, exitUserError},
		{"restore rejected", fmt.Errorf("%w: bad", types.ErrRestore), exitUserError},
		{"nothing to merge", docs.ErrNothingToMerge, exitUserError},
		{"restore incomplete", fmt.Errorf("%w: disk", types.ErrRestoreIncomplete), exitSysError},
		{"restore incomplete on invalid record", fmt.Errorf("%w: %w", types.ErrRestoreIncomplete, &types.ValidationError{Kind: "client"}), exitSysError},
		{"storage", types.NewStorageError("querying clients", errors.New("disk I/O error")), exitSysError},
		{"other", errors.New("boom"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
