package health

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"stockwatch/internal/types"
)

// AlertArchiveStore is the alert persistence surface retention needs.
type AlertArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]*types.Alert, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// Archiver moves alerts past the retention horizon out of the hot table into
// gzip-compressed JSONL files, one file per cleanup pass. Rows are deleted
// only after the archive file is flushed and closed, so a crash mid-pass
// duplicates archive entries rather than losing rows.
type Archiver struct {
	alerts    AlertArchiveStore
	dir       string
	retention time.Duration
	batchSize int
	clock     types.Clock
	logger    types.Logger
}

// NewArchiver creates an alert retention archiver writing into dir.
func NewArchiver(alerts AlertArchiveStore, dir string, retention time.Duration, batchSize int, clock types.Clock, logger types.Logger) *Archiver {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Archiver{
		alerts:    alerts,
		dir:       dir,
		retention: retention,
		batchSize: batchSize,
		clock:     clock,
		logger:    logger,
	}
}

// ArchiveExpired archives and deletes all alerts older than the retention
// horizon, in batches. Returns the number archived and the number deleted.
// With no expired alerts it returns (0, 0) without touching the filesystem.
func (a *Archiver) ArchiveExpired(ctx context.Context) (archived int, deleted int, err error) {
	cutoff := a.clock.Now().Add(-a.retention)

	for {
		batch, err := a.alerts.ListBefore(ctx, cutoff, a.batchSize)
		if err != nil {
			return archived, deleted, fmt.Errorf("list expired alerts: %w", err)
		}
		if len(batch) == 0 {
			return archived, deleted, nil
		}

		if err := a.writeArchive(batch); err != nil {
			return archived, deleted, err
		}
		archived += len(batch)

		ids := make([]string, len(batch))
		for i, alert := range batch {
			ids[i] = alert.ID
		}
		n, err := a.alerts.DeleteByIDs(ctx, ids)
		if err != nil {
			return archived, deleted, fmt.Errorf("delete archived alerts: %w", err)
		}
		deleted += int(n)

		if len(batch) < a.batchSize {
			return archived, deleted, nil
		}
	}
}

// writeArchive writes one batch as gzip JSONL, fsynced before returning.
func (a *Archiver) writeArchive(batch []*types.Alert) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	name := fmt.Sprintf("alerts-%s-%s.jsonl.gz",
		a.clock.Now().Format("20060102T150405"), batch[0].ID)
	path := filepath.Join(a.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, alert := range batch {
		if err := enc.Encode(alert); err != nil {
			return fmt.Errorf("encode alert %s: %w", alert.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush archive %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync archive %s: %w", path, err)
	}

	a.logger.Info("alert archive written", "path", path, "alerts", len(batch))
	return nil
}
