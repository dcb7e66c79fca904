package record_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtrack/internal/record"
	"mtrack/internal/service"
)

func books() []service.Category {
	return []service.Category{
		{ID: 1, Name: "Books"},
		{ID: 2, Name: "Films"},
		{ID: 3, Name: "Games"},
	}
}

func TestStore_LoadAndMutate(t *testing.T) {
	s := record.New[service.Category]()
	assert.False(t, s.Loaded())

	s.Load(books())
	assert.True(t, s.Loaded())
	assert.Equal(t, 3, s.Len())

	s.Insert(service.Category{ID: 4, Name: "Music"})
	assert.True(t, s.Replace(2, service.Category{ID: 2, Name: "Movies"}))
	assert.True(t, s.Remove(1))

	want := []service.Category{{ID: 2, Name: "Movies"}, {ID: 3, Name: "Games"}, {ID: 4, Name: "Music"}}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("master list mismatch (-want +got):\n%s", diff)
	}

	got, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Games", got.Name)
}

func TestStore_MissingIDsAreNoOps(t *testing.T) {
	s := record.New[service.Category]()
	s.Load(books())
	v := s.Version()

	assert.False(t, s.Replace(99, service.Category{ID: 99}))
	assert.False(t, s.Remove(99))
	_, ok := s.Get(99)
	assert.False(t, ok)

	assert.Equal(t, v, s.Version())
	assert.Equal(t, books(), s.All())
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := record.New[service.Category]()
	s.Load(books())

	all := s.All()
	all[0].Name = "changed"
	assert.Equal(t, "Books", s.All()[0].Name)
}

func TestStore_VersionBumps(t *testing.T) {
	s := record.New[service.Category]()
	v0 := s.Version()
	s.Load(nil)
	v1 := s.Version()
	s.Insert(service.Category{ID: 1})
	v2 := s.Version()

	assert.Less(t, v0, v1)
	assert.Less(t, v1, v2)

	items, v := s.Snapshot()
	assert.Len(t, items, 1)
	assert.Equal(t, v2, v)
}

func TestStore_LatestLoadWins(t *testing.T) {
	s := record.New[service.Category]()

	first := s.BeginLoad()
	second := s.BeginLoad()

	// The later load finishes first.
	assert.True(t, s.Commit(second, []service.Category{{ID: 2, Name: "fresh"}}))
	assert.False(t, s.Commit(first, []service.Category{{ID: 1, Name: "stale"}}))
	assert.False(t, s.Current(first))
	assert.True(t, s.Current(second))

	assert.Equal(t, []service.Category{{ID: 2, Name: "fresh"}}, s.All())
}

func TestStore_LoadSupersedesPendingTicket(t *testing.T) {
	s := record.New[service.Category]()
	pending := s.BeginLoad()
	s.Load(books())

	assert.False(t, s.Commit(pending, nil))
	assert.Equal(t, 3, s.Len())
}
