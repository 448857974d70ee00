// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides logical bucket for kv store.
type Bucket string

// Key returns the full key of k inside the bucket.
func (b Bucket) Key(k []byte) []byte {
	return append(append(make([]byte, 0, len(b)+len(k)), b...), k...)
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) {
	buf := bufPool.Get().(*buf)
	defer bufPool.Put(buf)
	buf.k = append(append(buf.k[:0], s.b...), key...)

	return s.src.Get(buf.k)
}

func (s *bucketStore) Has(key []byte) (bool, error) {
	buf := bufPool.Get().(*buf)
	defer bufPool.Put(buf)
	buf.k = append(append(buf.k[:0], s.b...), key...)

	return s.src.Has(buf.k)
}

func (s *bucketStore) IsNotFound(err error) bool {
	return s.src.IsNotFound(err)
}

func (s *bucketStore) Put(key, val []byte) error {
	buf := bufPool.Get().(*buf)
	defer bufPool.Put(buf)
	buf.k = append(append(buf.k[:0], s.b...), key...)

	return s.src.Put(buf.k, val)
}

func (s *bucketStore) Delete(key []byte) error {
	buf := bufPool.Get().(*buf)
	defer bufPool.Put(buf)
	buf.k = append(append(buf.k[:0], s.b...), key...)

	return s.src.Delete(buf.k)
}

func (s *bucketStore) NewBatch() Batch {
	return &bucketBatch{s.b, s.src.NewBatch()}
}

func (s *bucketStore) Iterate(r Range) Iterator {
	// the source store may keep the range keys, so they are never pooled
	r.Start = s.b.Key(r.Start)
	if len(r.Limit) == 0 {
		r.Limit = util.BytesPrefix([]byte(s.b)).Limit
	} else {
		r.Limit = s.b.Key(r.Limit)
	}
	return &bucketIter{s.src.Iterate(r), len(s.b)}
}

type bucketBatch struct {
	b Bucket
	Batch
}

// batch ops are deferred, so keys are copied rather than pooled
func (bb *bucketBatch) Put(key, val []byte) error {
	return bb.Batch.Put(bb.b.Key(key), val)
}

func (bb *bucketBatch) Delete(key []byte) error {
	return bb.Batch.Delete(bb.b.Key(key))
}

type bucketIter struct {
	Iterator
	prefixLen int
}

// Key strips the bucket.
func (it *bucketIter) Key() []byte {
	return it.Iterator.Key()[it.prefixLen:]
}

type buf struct {
	k []byte
}

var bufPool = sync.Pool{
	New: func() any {
		return &buf{}
	},
}
