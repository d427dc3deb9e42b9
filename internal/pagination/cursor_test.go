package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 123456000, time.UTC)
	encoded := EncodeCursor("6f2d9e70-5b0a-4a5d-9f73-3a2e3c6e1a01", ts)
	require.NotEmpty(t, encoded)

	cursor, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "6f2d9e70-5b0a-4a5d-9f73-3a2e3c6e1a01", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!"},
		{"missing separator", "bm9zZXBhcmF0b3I="},         // "noseparator"
		{"bad timestamp", "aWR8bm90LWEtdGltZXN0YW1w"},      // "id|not-a-timestamp"
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.cursor)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

type pagedItem struct {
	ID        string
	CreatedAt time.Time
}

func TestCreateNextCursor(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	items := []pagedItem{
		{ID: "a", CreatedAt: ts},
		{ID: "b", CreatedAt: ts.Add(time.Minute)},
	}
	getID := func(i pagedItem) string { return i.ID }
	getTS := func(i pagedItem) time.Time { return i.CreatedAt }

	// A full page yields a cursor pointing at its last item.
	next := CreateNextCursor(items, 2, getID, getTS)
	require.NotEmpty(t, next)
	cursor, err := DecodeCursor(next)
	require.NoError(t, err)
	assert.Equal(t, "b", cursor.LastID)

	// A short page means there is nothing after it.
	assert.Empty(t, CreateNextCursor(items, 3, getID, getTS))
	assert.Empty(t, CreateNextCursor(nil, 2, getID, getTS))
}
