package paylog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	csv := strings.Join([]string{
		"timestamp,reservation_code,received_at,raw_subject",
		"2026-08-01T10:00:00Z,123-456-789,2026-08-01T10:00:00Z,Pre-authorisation confirmed - 123-456-789",
		"2026-08-02T10:00:00Z,555-555-555,2026-08-02T10:00:00Z,Pre-authorisation confirmed - 555-555-555",
		"2026-08-03T10:00:00Z,,2026-08-03T10:00:00Z,empty ref row",
	}, "\n")

	set, err := Read(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("123-456-789"))
	assert.True(t, set.Contains("555-555-555"))
	assert.False(t, set.Contains("999-999-999"))
}

func TestRead_NoReferenceColumn(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2"))
	assert.Error(t, err)
}

func TestRead_Empty(t *testing.T) {
	set, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestLoad_MissingFileIsEmptySet(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Empty(t, set)
}
