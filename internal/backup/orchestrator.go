package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/consultora/internal/blob"
	"github.com/mesh-intelligence/consultora/pkg/types"
)

// KeyPrefix is where backup documents live inside a blob store.
const KeyPrefix = "backups/"

// Orchestrator moves backup documents between a store and a blob
// destination.
type Orchestrator struct {
	store  types.Store
	blobs  blob.Store
	logger *logrus.Logger
	now    func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used to date and name backups.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires store and blobs together.
func NewOrchestrator(store types.Store, blobs blob.Store, logger *logrus.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, blobs: blobs, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

const keyExt = ".json"

// KeyFor names the backup taken at t, to the millisecond.
func KeyFor(t time.Time) string {
	return KeyPrefix + "backup_consultora_" + t.UTC().Format("2006-01-02_150405.000") + keyExt
}

// freeKey returns KeyFor(t), or the first of its "_2", "_3"... variants that
// no stored backup uses yet.
func (o *Orchestrator) freeKey(ctx context.Context, t time.Time) (string, error) {
	key := KeyFor(t)
	base := strings.TrimSuffix(key, keyExt)
	infos, err := o.blobs.List(ctx, base)
	if err != nil {
		return "", fmt.Errorf("listing backups: %w", err)
	}
	taken := make(map[string]bool, len(infos))
	for _, i := range infos {
		taken[i.Key] = true
	}
	for n := 2; taken[key]; n++ {
		key = fmt.Sprintf("%s_%d%s", base, n, keyExt)
	}
	return key, nil
}

// Save writes a backup of the store to the blob destination.
func (o *Orchestrator) Save(ctx context.Context) (blob.Info, error) {
	now := o.now()
	doc, err := create(o.store, now)
	if err != nil {
		return blob.Info{}, err
	}
	data, err := Marshal(doc)
	if err != nil {
		return blob.Info{}, err
	}
	key, err := o.freeKey(ctx, now)
	if err != nil {
		return blob.Info{}, err
	}
	info, err := o.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("storing backup: %w", err)
	}
	o.log("save").WithFields(logrus.Fields{
		"key":     info.Key,
		"bytes":   info.Size,
		"driver":  o.blobs.Driver(),
		"clients": len(doc.Clients),
		"files":   len(doc.Files),
	}).Info("backup stored")
	return info, nil
}

// List returns stored backups, newest first.
func (o *Orchestrator) List(ctx context.Context) ([]blob.Info, error) {
	infos, err := o.blobs.List(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	infos = slices.DeleteFunc(infos, func(i blob.Info) bool { return !strings.HasSuffix(i.Key, keyExt) })
	slices.Reverse(infos)
	return infos, nil
}

// RestoreKey loads the backup stored under key and restores the store from
// it. Errors follow Restore.
func (o *Orchestrator) RestoreKey(ctx context.Context, key string) error {
	log := o.log("restore").WithField("key", key)

	rc, err := o.blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrRestore, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", types.ErrRestore, key, err)
	}

	log.Debug("validating backup")
	doc, err := Parse(data)
	if err != nil {
		log.WithError(err).Warn("backup rejected")
		return err
	}

	log.WithFields(logrus.Fields{
		"version": doc.Version,
		"clients": len(doc.Clients),
		"tags":    doc.Tags != nil,
	}).Debug("applying backup")
	if err := o.store.Replace(doc.Snapshot()); err != nil {
		log.WithError(err).Error("restore failed while applying")
		return fmt.Errorf("%w: %w", types.ErrRestoreIncomplete, err)
	}
	log.Info("backup restored")
	return nil
}

func (o *Orchestrator) log(op string) *logrus.Entry {
	return o.logger.WithFields(logrus.Fields{"module": "backup", "op": op})
}
