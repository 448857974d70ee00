// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package record

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/stakedash/stakedash/cache"
	"github.com/stakedash/stakedash/kv"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/types"
)

var logger = log.WithContext("pkg", "record")

const (
	liveBucket    = kv.Bucket("stake/")
	historyBucket = kv.Bucket("stake-history/")

	defaultCacheSize = 1024
)

// Repository persists the live record of every operator, plus the records
// that were cancelled or superseded by a new delegation.
type Repository struct {
	src     kv.Store
	live    kv.Store
	history kv.Store
	cache   *cache.LRU[types.Address, *Record]
}

// NewRepository creates a repository over the given store. A non-positive
// cacheSize selects the default.
func NewRepository(store kv.Store, cacheSize int) (*Repository, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := cache.NewLRU[types.Address, *Record](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create record cache")
	}
	return &Repository{
		src:     store,
		live:    liveBucket.NewStore(store),
		history: historyBucket.NewStore(store),
		cache:   c,
	}, nil
}

// Get returns a copy of the live record of the operator, or nil if there is none.
func (r *Repository) Get(operator types.Address) (*Record, error) {
	rec, err := r.cache.GetOrLoad(operator, r.load)
	if err != nil {
		return nil, err
	}
	if changed, hit, miss := r.cache.Stats(); changed {
		logger.Debug("record cache stats", "hit", hit, "miss", miss)
	}
	return rec.Clone(), nil
}

func (r *Repository) load(operator types.Address) (*Record, error) {
	data, err := r.live.Get(operator.Bytes())
	if err != nil {
		if r.live.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get record")
	}
	var rec Record
	if err := rlp.DecodeBytes(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode record")
	}
	return &rec, nil
}

// Put stores rec as the live record of its operator.
func (r *Repository) Put(rec *Record) error {
	if rec.IsEmpty() {
		return errors.New("empty record")
	}
	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}
	if err := r.live.Put(rec.Operator().Bytes(), data); err != nil {
		return errors.Wrap(err, "failed to put record")
	}
	r.cache.Add(rec.Operator(), rec.Clone())
	return nil
}

// Archive appends rec to the history of its operator and frees the live slot.
func (r *Repository) Archive(rec *Record) error {
	if rec.IsEmpty() {
		return errors.New("empty record")
	}
	operator := rec.Operator()

	seq, err := r.historyLen(operator)
	if err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}

	batch := r.src.NewBatch()
	if err := batch.Delete(liveBucket.Key(operator.Bytes())); err != nil {
		return err
	}
	if err := batch.Put(historyBucket.Key(historyKey(operator, seq)), data); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "failed to archive record")
	}
	r.cache.Remove(operator)
	return nil
}

// History returns the archived records of the operator, oldest first.
func (r *Repository) History(operator types.Address) ([]*Record, error) {
	it := r.history.Iterate(operatorRange(operator))
	defer it.Release()

	var recs []*Record
	for it.Next() {
		var rec Record
		if err := rlp.DecodeBytes(it.Value(), &rec); err != nil {
			return nil, errors.Wrap(err, "failed to decode record")
		}
		recs = append(recs, &rec)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate history")
	}
	return recs, nil
}

// Operators returns every operator holding a live record, in key order.
func (r *Repository) Operators() ([]types.Address, error) {
	it := r.live.Iterate(kv.Range{})
	defer it.Release()

	var ops []types.Address
	for it.Next() {
		ops = append(ops, types.BytesToAddress(it.Key()))
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate records")
	}
	return ops, nil
}

func (r *Repository) historyLen(operator types.Address) (uint64, error) {
	it := r.history.Iterate(operatorRange(operator))
	defer it.Release()

	var n uint64
	for it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return 0, errors.Wrap(err, "failed to iterate history")
	}
	return n, nil
}

// history key: ( operator | big endian sequence )
func historyKey(operator types.Address, seq uint64) []byte {
	k := make([]byte, types.AddressLength+8)
	copy(k, operator[:])
	binary.BigEndian.PutUint64(k[types.AddressLength:], seq)
	return k
}

func operatorRange(operator types.Address) kv.Range {
	r := util.BytesPrefix(operator.Bytes())
	return kv.Range{Start: r.Start, Limit: r.Limit}
}

// Walk calls fn with every archived record, then every live record, each in
// key order. It stops at the first error fn returns.
func (r *Repository) Walk(fn func(rec *Record, live bool) error) error {
	for _, src := range []struct {
		store kv.Store
		live  bool
	}{{r.history, false}, {r.live, true}} {
		if err := walk(src.store, func(rec *Record) error { return fn(rec, src.live) }); err != nil {
			return err
		}
	}
	return nil
}

func walk(store kv.Store, fn func(rec *Record) error) error {
	it := store.Iterate(kv.Range{})
	defer it.Release()

	for it.Next() {
		var rec Record
		if err := rlp.DecodeBytes(it.Value(), &rec); err != nil {
			return errors.Wrap(err, "failed to decode record")
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return errors.Wrap(it.Error(), "failed to iterate records")
}
