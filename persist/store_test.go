package persist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDocument stands in for the lifecycle documents the engine persists.
type testDocument struct {
	Name      string    `json:"name"`
	Counter   int       `json:"counter"`
	UpdatedAt time.Time `json:"updated_at"`
	Entries   []string  `json:"entries"`
}

// testStoreImplementation exercises the behavior every Store backend must
// share.
func testStoreImplementation(t *testing.T, store Store) {
	doc := testDocument{
		Name:      "key-metadata",
		Counter:   3,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
		Entries:   []string{"a", "b"},
	}

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(), "store should be reachable")
	})

	t.Run("GetType", func(t *testing.T) {
		assert.NotEmpty(t, store.GetType())
	})

	t.Run("LoadAbsentDocument", func(t *testing.T) {
		var into testDocument
		found, err := store.Load("never-saved", &into)
		require.NoError(t, err, "an absent document is not an error")
		assert.False(t, found)
		assert.Zero(t, into, "the default value must be untouched")
	})

	t.Run("ExistsBeforeSave", func(t *testing.T) {
		exists, err := store.Exists("lifecycle-doc")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, store.Save("lifecycle-doc", &doc))

		var loaded testDocument
		found, err := store.Load("lifecycle-doc", &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, doc.Name, loaded.Name)
		assert.Equal(t, doc.Counter, loaded.Counter)
		assert.Equal(t, doc.Entries, loaded.Entries)
		assert.True(t, doc.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("ExistsAfterSave", func(t *testing.T) {
		exists, err := store.Exists("lifecycle-doc")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("SaveReplacesDocument", func(t *testing.T) {
		updated := doc
		updated.Counter = 4
		updated.Entries = []string{"c"}
		require.NoError(t, store.Save("lifecycle-doc", &updated))

		var loaded testDocument
		found, err := store.Load("lifecycle-doc", &loaded)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 4, loaded.Counter)
		assert.Equal(t, []string{"c"}, loaded.Entries)
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreImplementation(t, NewMemoryStore())
}

func TestMemoryStoreClose(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("doc", &testDocument{Name: "x"}))
	require.NoError(t, store.Close())

	var into testDocument
	_, err := store.Load("doc", &into)
	assert.Error(t, err, "a closed store must reject reads")
	assert.Error(t, store.Save("doc", &testDocument{}), "a closed store must reject writes")
}

func TestNewStoreFactory(t *testing.T) {
	store, err := NewStore(StoreConfig{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.Equal(t, string(StoreTypeMemory), store.GetType())

	store, err = NewStore(StoreConfig{
		Type:   StoreTypeFileSystem,
		Config: map[string]interface{}{"base_path": t.TempDir()},
	})
	require.NoError(t, err)
	assert.Equal(t, string(StoreTypeFileSystem), store.GetType())

	_, err = NewStore(StoreConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)
}
