package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

type captureWriter struct {
	path        string
	contentType string
	data        []byte
	calls       int
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	w.calls++
	w.path = path
	w.contentType = contentType
	var err error
	w.data, err = io.ReadAll(data)
	return err
}

type staticStore struct {
	items []domain.Item
}

func (s staticStore) ListTerminalItems(context.Context) ([]domain.Item, error) {
	return s.items, nil
}

func TestArchiveTerminalItems(t *testing.T) {
	buyer := domain.Identity("0xbuyer")
	items := []domain.Item{
		{ID: 1, Seller: "0xseller", Price: 100, Status: domain.ItemStatusSold, Buyer: &buyer},
		{ID: 2, Seller: "0xseller", Price: 50, Status: domain.ItemStatusUnlisted},
	}
	writer := &captureWriter{}
	archiver := NewArchiver(writer, staticStore{items: items})

	now := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	n, err := archiver.ArchiveTerminalItems(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "archive/items/2026-08.jsonl", writer.path)
	assert.Equal(t, "application/x-ndjson", writer.contentType)

	// One JSON document per line, decodable back into items.
	lines := bytes.Split(bytes.TrimSpace(writer.data), []byte("\n"))
	require.Len(t, lines, 2)
	var first domain.Item
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, items[0], first)
}

func TestArchiveTerminalItemsEmptySkipsUpload(t *testing.T) {
	writer := &captureWriter{}
	archiver := NewArchiver(writer, staticStore{})

	n, err := archiver.ArchiveTerminalItems(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, writer.calls)
}
