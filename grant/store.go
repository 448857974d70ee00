// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grant

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/kv"
	"github.com/stakedash/stakedash/types"
)

var (
	grantBucket    = kv.Bucket("grant/")
	operatorBucket = kv.Bucket("grant-operator/")
	seqKey         = []byte("grant-seq")
)

type storage struct {
	db kv.GetPutter
}

func idKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// getGrant returns nil if the grant does not exist.
func (s *storage) getGrant(id uint64) (*Grant, error) {
	data, err := s.db.Get(grantBucket.Key(idKey(id)))
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get grant")
	}
	var b body
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return nil, errors.Wrap(err, "failed to decode grant")
	}
	return &Grant{body: &b}, nil
}

func (s *storage) setGrant(g *Grant) error {
	data, err := rlp.EncodeToBytes(g.body)
	if err != nil {
		return errors.Wrap(err, "failed to encode grant")
	}
	if err := s.db.Put(grantBucket.Key(idKey(g.body.ID)), data); err != nil {
		return errors.Wrap(err, "failed to set grant")
	}
	return nil
}

// grantOf returns the grant staked to the operator, zero if none.
func (s *storage) grantOf(operator types.Address) (uint64, error) {
	data, err := s.db.Get(operatorBucket.Key(operator.Bytes()))
	if err != nil {
		if s.db.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to get operator grant")
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *storage) setOperator(operator types.Address, id uint64) error {
	if err := s.db.Put(operatorBucket.Key(operator.Bytes()), idKey(id)); err != nil {
		return errors.Wrap(err, "failed to set operator grant")
	}
	return nil
}

func (s *storage) deleteOperator(operator types.Address) error {
	if err := s.db.Delete(operatorBucket.Key(operator.Bytes())); err != nil {
		return errors.Wrap(err, "failed to delete operator grant")
	}
	return nil
}

// nextID allocates a grant id, starting from 1.
func (s *storage) nextID() (uint64, error) {
	var seq uint64
	data, err := s.db.Get(seqKey)
	if err != nil {
		if !s.db.IsNotFound(err) {
			return 0, errors.Wrap(err, "failed to get grant sequence")
		}
	} else {
		seq = binary.BigEndian.Uint64(data)
	}
	seq++
	if err := s.db.Put(seqKey, idKey(seq)); err != nil {
		return 0, errors.Wrap(err, "failed to set grant sequence")
	}
	return seq, nil
}
