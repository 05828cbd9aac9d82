package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitted(t *testing.T) *iforest.Forest {
	t.Helper()
	f, err := iforest.Fit([][]float64{{1}, {2}, {3}, {40}}, iforest.DefaultParams())
	require.NoError(t, err)
	return f
}

type failingStore struct {
	models map[string]*iforest.Forest
	err    error
}

func (s *failingStore) Get(key string) (*iforest.Forest, bool) {
	f, ok := s.models[key]
	return f, ok
}

func (s *failingStore) Put(key string, f *iforest.Forest) error {
	if s.err != nil {
		return s.err
	}
	s.models[key] = f
	return nil
}

func TestMemory(t *testing.T) {
	m := NewMemory(4, time.Hour)
	_, ok := m.Get("k")
	assert.False(t, ok)

	f := fitted(t)
	require.NoError(t, m.Put("k", f))
	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestTieredBackfillsLocal(t *testing.T) {
	local := NewMemory(4, 0)
	remote := &failingStore{models: map[string]*iforest.Forest{}}
	tiered := NewTiered(local, remote)

	f := fitted(t)
	remote.models["k"] = f

	got, ok := tiered.Get("k")
	require.True(t, ok)
	assert.Same(t, f, got)

	delete(remote.models, "k")
	got, ok = tiered.Get("k")
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestTieredPutReportsRemoteFailure(t *testing.T) {
	local := NewMemory(4, 0)
	remote := &failingStore{models: map[string]*iforest.Forest{}, err: errors.New("down")}
	tiered := NewTiered(local, remote)

	err := tiered.Put("k", fitted(t))
	require.Error(t, err)

	_, ok := local.Get("k")
	assert.True(t, ok)
}

func TestRedisUnreachableIsMiss(t *testing.T) {
	r := NewRedis("127.0.0.1:1", time.Minute)
	r.timeout = 200 * time.Millisecond
	defer r.Close()

	_, ok := r.Get("k")
	assert.False(t, ok)
	assert.Error(t, r.Put("k", fitted(t)))
}

func TestDecodeModel(t *testing.T) {
	raw, err := json.Marshal(fitted(t))
	require.NoError(t, err)
	forest, err := decodeModel(raw)
	require.NoError(t, err)
	assert.Len(t, forest.Trees, iforest.DefaultParams().Trees)

	_, err = decodeModel([]byte("not json"))
	assert.Error(t, err)

	_, err = decodeModel([]byte(`{"psi":9,"trees":[{"nodes":[]}]}`))
	assert.ErrorIs(t, err, iforest.ErrCorrupt)
}
