// SPDX-License-Identifier: MIT
package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"eeg/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMigrates(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "nested"))
	require.NoError(t, err)

	v, err := userVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
	require.NoError(t, s.Close())

	// Reopening an existing database is a no-op migration.
	s, err = Open(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestInsertAndGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rec := &Record{
		DominantBand:  "Alpha",
		InferredState: "Relaxed, calm, or in a meditative state",
		AvgPower:      1.2346,
		FileName:      "morning.csv",
	}
	require.NoError(t, s.Insert(ctx, rec))
	assert.Len(t, rec.ID, 26)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)
}

func TestGetMissing(t *testing.T) {
	s := openTest(t)

	_, err := s.Get(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		require.NoError(t, s.Insert(ctx, &Record{DominantBand: "Beta", InferredState: "x", FileName: name}))
	}

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.csv", all[0].FileName)
	assert.Equal(t, "a.csv", all[2].FileName)

	page, err := s.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b.csv", page[0].FileName)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListEmpty(t *testing.T) {
	s := openTest(t)

	records, err := s.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
