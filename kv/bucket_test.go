// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/kv"
	"github.com/stakedash/stakedash/lvldb"
)

func newStore(t *testing.T) kv.Store {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, db.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, db.Put([]byte("x1"), []byte("v3")))
	return db
}

func TestBucket_Get(t *testing.T) {
	src := newStore(t)

	tests := []struct {
		b    kv.Bucket
		key  string
		want string
	}{
		{kv.Bucket(""), "k1", "v1"},
		{kv.Bucket(""), "k2", "v2"},
		{kv.Bucket("k"), "k1", ""},
		{kv.Bucket("k"), "1", "v1"},
		{kv.Bucket("k"), "2", "v2"},
		{kv.Bucket("k1"), "", "v1"},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			store := tt.b.NewStore(src)
			got, err := store.Get([]byte(tt.key))
			if tt.want == "" {
				assert.True(t, store.IsNotFound(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			has, err := store.Has([]byte(tt.key))
			assert.NoError(t, err)
			assert.True(t, has)
		})
	}
}

func TestBucket_PutDelete(t *testing.T) {
	src := newStore(t)
	store := kv.Bucket("b/").NewStore(src)

	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	got, err := src.Get([]byte("b/a"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	require.NoError(t, store.Delete([]byte("a")))
	has, err := src.Has([]byte("b/a"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBucket_Batch(t *testing.T) {
	src := newStore(t)
	store := kv.Bucket("b/").NewStore(src)

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	assert.Equal(t, 2, batch.Len())

	has, err := store.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, has, "batch must not be visible before write")

	require.NoError(t, batch.Write())
	got, err := src.Get([]byte("b/b"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestBucket_Iterate(t *testing.T) {
	src := newStore(t)
	store := kv.Bucket("k").NewStore(src)

	it := store.Iterate(kv.Range{})
	defer it.Release()

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"1", "2"}, keys)
	assert.Equal(t, []string{"v1", "v2"}, values)
}
