package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

// ItemArchiveStore provides the read access the archiver needs. The Postgres
// KVStore satisfies it; the archiver never requires the full store surface
// and never mutates lifecycle state.
type ItemArchiveStore interface {
	// ListTerminalItems returns every sold or unlisted item.
	ListTerminalItems(ctx context.Context) ([]domain.Item, error)
}

// ArchiveImpl implements domain.Archiver by snapshotting terminal items to
// JSONL in blob storage. Terminal items never transition again, so a
// snapshot taken at any time is final for the items it contains. Removal of
// archived rows from the primary store is a separate, explicit step to be
// executed only after the archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	items  ItemArchiveStore
}

// NewArchiver creates an ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, items ItemArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		items:  items,
	}
}

// ArchiveTerminalItems snapshots all terminal items to
// archive/items/YYYY-MM.jsonl and returns the number of archived records.
func (a *ArchiveImpl) ArchiveTerminalItems(ctx context.Context, now time.Time) (int64, error) {
	items, err := a.items.ListTerminalItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive items query: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(items)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive items marshal: %w", err)
	}

	path := archivePath("items", now)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive items upload: %w", err)
	}
	return int64(len(items)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the snapshot time, e.g. archive/items/2026-08.jsonl.
func archivePath(kind string, at time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, at.Format("2006-01"))
}

// marshalJSONL renders items as newline-delimited JSON.
func marshalJSONL(items []domain.Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
