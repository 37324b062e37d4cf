package metadata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadgerInMemory()
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"badger": b,
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			_, err := s.Get("file:///a.txt")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put("file:///a.txt", []byte(`{"locale":"fr"}`)))
			require.NoError(t, s.Put("file:///b.txt", []byte(`{}`)))
			require.NoError(t, s.Put("untitled:1", []byte(`{}`)))

			got, err := s.Get("file:///a.txt")
			require.NoError(t, err)
			assert.JSONEq(t, `{"locale":"fr"}`, string(got))

			require.NoError(t, s.Put("file:///a.txt", []byte(`{"locale":"de"}`)))
			got, _ = s.Get("file:///a.txt")
			assert.JSONEq(t, `{"locale":"de"}`, string(got))

			uris, err := s.URIs("file://")
			require.NoError(t, err)
			assert.Equal(t, []string{"file:///a.txt", "file:///b.txt"}, uris)

			all, err := s.URIs("")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, s.Delete("file:///a.txt"))
			require.NoError(t, s.Delete("file:///a.txt"))
			_, err = s.Get("file:///a.txt")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemoryStore()
	data := []byte(`{"a":1}`)
	require.NoError(t, s.Put("u", data))
	data[2] = 'b'

	got, _ := s.Get("u")
	assert.Equal(t, `{"a":1}`, string(got))
	got[2] = 'c'
	again, _ := s.Get("u")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestStore_Closed(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Close())
			_, err := s.Get("u")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Put("u", nil), ErrClosed)
		})
	}
}

func TestBadgerStore_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "meta")
	s, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Put("file:///x", []byte(`{"ignored":{"rules":["esp"]}}`)))
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("file:///x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ignored":{"rules":["esp"]}}`, string(got))
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}
