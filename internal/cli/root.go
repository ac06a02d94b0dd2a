// Package cli implements the consultora command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/consultora/internal/blob"
	"github.com/mesh-intelligence/consultora/internal/docs"
	"github.com/mesh-intelligence/consultora/internal/logging"
	"github.com/mesh-intelligence/consultora/internal/paths"
	"github.com/mesh-intelligence/consultora/internal/sqlite"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries what one invocation shares between commands: resolved
// directories, configuration, the logger and the lazily attached store.
type app struct {
	flags  rootFlags
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time

	configDir string
	dataDir   string
	cfg       *viper.Viper
	logger    *logrus.Logger
	store     *sqlite.Backend
}

// usageError marks failures caused by how the command was invoked.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// NewRootCmd creates the top-level "consultora" command with global flags
// and all subcommands registered.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   paths.AppName,
		Short: "Client records for an accounting practice",
		Long: "consultora keeps the practice's clients, their notes and PDF files,\n" +
			"merges and packages those files, and backs everything up.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: ./.consultora-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newClientCmd(a),
		newNoteCmd(a),
		newFileCmd(a),
		newMergeCmd(a),
		newZipCmd(a),
		newTagCmd(a),
		newSettingsCmd(a),
		newBackupCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup resolves directories, loads configuration and builds the logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.configDir = configDir

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.GetString(cfgKeyLogLevel), cfg.GetString(cfgKeyLogFormat), a.stderr)
	if err != nil {
		return &usageError{msg: "config: " + err.Error()}
	}
	a.logger = logger

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	a.dataDir = dataDir
	return nil
}

// openStore attaches the SQLite store on first use.
func (a *app) openStore() (types.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: a.dataDir}); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	a.store = backend
	return backend, nil
}

// openBlobs opens the backup destination named by the backup section of the
// configuration. Keys are read one by one so environment overrides of nested
// keys apply.
func (a *app) openBlobs(ctx context.Context) (blob.Store, error) {
	bc := blob.Config{
		Driver: blob.Driver(a.cfg.GetString(cfgKeyBackupDriver)),
		FSRoot: a.cfg.GetString(cfgKeyBackupFSRoot),
		S3: blob.S3Config{
			Bucket:    a.cfg.GetString(cfgKeyS3Bucket),
			Region:    a.cfg.GetString(cfgKeyS3Region),
			Endpoint:  a.cfg.GetString(cfgKeyS3Endpoint),
			PathStyle: a.cfg.GetBool(cfgKeyS3PathStyle),
		},
	}
	root, err := paths.ResolveBackupRoot(a.dataDir, bc.FSRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve backup root: %w", err)
	}
	bc.FSRoot = root
	store, err := blob.Open(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("open backup destination: %w", err)
	}
	return store, nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Detach(); err != nil && a.logger != nil {
		logging.LogError(a.logger, "cli", "detach", err)
	}
	a.store = nil
}

// Run executes the command line in args and returns the process exit code.
// Failures are printed as one line on stderr.
func Run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, now: time.Now}
	return a.run(context.Background(), args)
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	a.close()
	if err == nil {
		return exitSuccess
	}
	if a.logger != nil {
		if cmd == nil {
			cmd = root
		}
		a.logger.WithFields(logrus.Fields{
			"module": "cli",
			"op":     cmd.CommandPath(),
			"exit":   exitCode(err),
		}).WithError(err).Debug("command failed")
	}
	fmt.Fprintf(a.stderr, "%s: %s\n", paths.AppName, err)
	return exitCode(err)
}

// Execute runs the root command against the process arguments and exits with
// the appropriate code.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitCode classifies err: caller mistakes exit 1, everything else exits 2.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if isUserError(err) {
		return exitUserError
	}
	return exitSysError
}

var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrRestore,
	docs.ErrNothingToMerge,
	docs.ErrTooFewFiles,
	docs.ErrNoFiles,
	blob.ErrNotFound,
	blob.ErrInvalidKey,
}

func isUserError(err error) bool {
	if errors.Is(err, types.ErrRestoreIncomplete) {
		return false
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	// cobra reports unknown subcommands and bad arguments as plain errors.
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires at least")
}

// requireYes gates destructive commands.
func requireYes(yes bool, action string) error {
	if !yes {
		return usageErrorf("refusing to %s without --yes", action)
	}
	return nil
}
