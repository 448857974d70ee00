// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dkg

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/kv"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/types"
)

var (
	ErrNotEligible       = errors.New("participant is not eligible")
	ErrInvalidMisbehaved = errors.New("invalid misbehaved members")
	ErrGroupExists       = errors.New("group already registered")
	ErrGroupNotFound     = errors.New("group not found")
)

var (
	logger      = log.WithContext("pkg", "dkg")
	groupBucket = kv.Bucket("group/")
)

// Stakes reports the stake backing an operator.
type Stakes interface {
	MinimumStake(now uint64) *big.Int
	EligibleStake(operator, contract types.Address, now uint64) (*big.Int, error)
}

// Registry records the members of groups produced by key generation rounds.
// Members flagged as misbehaved in the result are left out of the group.
type Registry struct {
	stakes   Stakes
	contract types.Address
	store    kv.Store
	mu       sync.Mutex
}

// NewRegistry creates a registry whose participants are checked against the
// stake they authorized to the operator contract.
func NewRegistry(db kv.Store, stakes Stakes, operatorContract types.Address) *Registry {
	return &Registry{
		stakes:   stakes,
		contract: operatorContract,
		store:    groupBucket.NewStore(db),
	}
}

// OperatorContract returns the contract participants must have authorized.
func (r *Registry) OperatorContract() types.Address {
	return r.contract
}

// RegisterGroup registers the participants of a round, minus the misbehaved
// ones, as the members of the group identified by pubKey.
func (r *Registry) RegisterGroup(participants []types.Address, pubKey, misbehaved []byte, now uint64) ([]types.Address, error) {
	if len(pubKey) == 0 {
		return nil, errors.New("empty group public key")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := groupKey(pubKey)
	if has, err := r.store.Has(key); err != nil {
		return nil, errors.Wrap(err, "failed to check group")
	} else if has {
		return nil, ErrGroupExists
	}

	indices, err := DecodeMisbehaved(misbehaved, len(participants))
	if err != nil {
		return nil, err
	}

	minimum := r.stakes.MinimumStake(now)
	for _, p := range participants {
		eligible, err := r.stakes.EligibleStake(p, r.contract, now)
		if err != nil {
			return nil, err
		}
		if eligible.Cmp(minimum) < 0 {
			return nil, errors.Wrapf(ErrNotEligible, "operator %v has %v, minimum %v", p, eligible, minimum)
		}
	}

	excluded := make(map[int]bool, len(indices))
	for _, i := range indices {
		excluded[int(i)-1] = true
	}
	members := make([]types.Address, 0, len(participants)-len(indices))
	for i, p := range participants {
		if !excluded[i] {
			members = append(members, p)
		}
	}

	data, err := rlp.EncodeToBytes(members)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode group")
	}
	if err := r.store.Put(key, data); err != nil {
		return nil, errors.Wrap(err, "failed to save group")
	}

	logger.Info("group registered",
		"group", common.BytesToHash(key),
		"participants", len(participants),
		"members", len(members),
		"hash", ResultHash(pubKey, misbehaved))
	return members, nil
}

// GroupMembers returns the registered members of the group.
func (r *Registry) GroupMembers(pubKey []byte) ([]types.Address, error) {
	data, err := r.store.Get(groupKey(pubKey))
	if err != nil {
		if r.store.IsNotFound(err) {
			return nil, ErrGroupNotFound
		}
		return nil, errors.Wrap(err, "failed to get group")
	}
	var members []types.Address
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, errors.Wrap(err, "failed to decode group")
	}
	return members, nil
}

// IsMember reports whether the operator is a member of the group.
func (r *Registry) IsMember(pubKey []byte, operator types.Address) (bool, error) {
	members, err := r.GroupMembers(pubKey)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == operator {
			return true, nil
		}
	}
	return false, nil
}

func groupKey(pubKey []byte) []byte {
	return crypto.Keccak256(pubKey)
}
