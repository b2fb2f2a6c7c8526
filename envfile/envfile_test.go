package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllMissingFile(t *testing.T) {
	lines, err := ReadAll(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err, "a missing file reads as empty, not as an error")
	assert.Empty(t, lines)
}

func TestReadAllNormalizesLineEndings(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("A=1\r\nB=2\nC=3\n"), 0600))

	lines, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, lines)
}

func TestReadWriteRoundTripPreservesLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	original := []string{
		"# database settings",
		"DB_HOST=localhost",
		"",
		"DB_PASSWORD=secret",
		"not a variable line",
	}

	require.NoError(t, WriteAll(path, original))
	lines, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, original, lines)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestExtractVariables(t *testing.T) {
	lines := []string{
		"# comment line",
		"",
		"   ",
		"PLAIN=value",
		"WITH_EQUALS=a=b=c",
		"  PADDED = spaced value",
		"NOVALUE=",
		"=missing name",
		"no equals sign",
	}

	vars := ExtractVariables(lines)
	assert.Equal(t, "value", vars["PLAIN"])
	assert.Equal(t, "a=b=c", vars["WITH_EQUALS"], "values split at the first equals only")
	assert.Equal(t, " spaced value", vars["PADDED"])
	assert.Equal(t, "", vars["NOVALUE"])
	assert.Len(t, vars, 4, "comments, blanks and malformed lines are skipped")
}

func TestUpdateManyPreservesUntouchedLines(t *testing.T) {
	lines := []string{
		"# header",
		"A=old",
		"B=keep",
		"",
		"C=也old",
	}

	updated := UpdateMany(lines, map[string]string{"A": "new", "C": "new-c"})
	assert.Equal(t, []string{
		"# header",
		"A=new",
		"B=keep",
		"",
		"C=new-c",
	}, updated)

	// The input slice is not mutated.
	assert.Equal(t, "A=old", lines[1])
}

func TestStoreAppendsAndUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, Store(path, "KEY", "first", false))
	value, found, err := GetValue(path, "KEY")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", value)

	// skipIfExists leaves the existing value alone.
	require.NoError(t, Store(path, "KEY", "second", true))
	value, _, _ = GetValue(path, "KEY")
	assert.Equal(t, "first", value)

	// A plain store overwrites in place.
	require.NoError(t, Store(path, "KEY", "third", false))
	value, _, _ = GetValue(path, "KEY")
	assert.Equal(t, "third", value)

	lines, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, lines, 1, "updates must not duplicate the variable line")
}

func TestGetValueMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, Store(path, "PRESENT", "x", false))

	_, found, err := GetValue(path, "ABSENT")
	require.NoError(t, err)
	assert.False(t, found)
}
