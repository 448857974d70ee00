// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dkg

import (
	"bytes"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// MemberIndex is the 1-based position of a member in the selected participants.
type MemberIndex uint8

// Result of a distributed key generation round.
type Result struct {
	GroupPublicKey []byte
	Disqualified   []MemberIndex
	Inactive       []MemberIndex
}

// Equals checks if two results are equal. Member slices must have the same order.
func (r *Result) Equals(r2 *Result) bool {
	if r == nil || r2 == nil {
		return r == r2
	}
	return bytes.Equal(r.GroupPublicKey, r2.GroupPublicKey) &&
		indicesEqual(r.Disqualified, r2.Disqualified) &&
		indicesEqual(r.Inactive, r2.Inactive)
}

// Misbehaved returns disqualified and inactive members, sorted and deduplicated.
func (r *Result) Misbehaved() []MemberIndex {
	seen := make(map[MemberIndex]struct{}, len(r.Disqualified)+len(r.Inactive))
	out := make([]MemberIndex, 0, len(r.Disqualified)+len(r.Inactive))
	for _, set := range [][]MemberIndex{r.Disqualified, r.Inactive} {
		for _, i := range set {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EncodeMisbehaved packs the misbehaved members one byte per index,
// e.g. members 3 and 5 encode to 0x0305.
func EncodeMisbehaved(r *Result) ([]byte, error) {
	indices := r.Misbehaved()
	out := make([]byte, 0, len(indices))
	for _, i := range indices {
		if i == 0 {
			return nil, errors.Wrap(ErrInvalidMisbehaved, "member index 0")
		}
		out = append(out, byte(i))
	}
	return out, nil
}

// DecodeMisbehaved unpacks misbehaved member indices for a group of the
// given size. Indices must be within [1, groupSize] and must not repeat.
func DecodeMisbehaved(b []byte, groupSize int) ([]MemberIndex, error) {
	if groupSize > math.MaxUint8 {
		return nil, errors.Errorf("group size %d exceeds %d", groupSize, math.MaxUint8)
	}
	seen := make(map[byte]struct{}, len(b))
	out := make([]MemberIndex, 0, len(b))
	for _, v := range b {
		if v == 0 || int(v) > groupSize {
			return nil, errors.Wrapf(ErrInvalidMisbehaved, "member index %d out of range [1, %d]", v, groupSize)
		}
		if _, ok := seen[v]; ok {
			return nil, errors.Wrapf(ErrInvalidMisbehaved, "member index %d repeated", v)
		}
		seen[v] = struct{}{}
		out = append(out, MemberIndex(v))
	}
	return out, nil
}

// ResultHash is the hash members sign to approve a result.
func ResultHash(pubKey, misbehaved []byte) common.Hash {
	return crypto.Keccak256Hash(pubKey, misbehaved)
}

func indicesEqual(a, b []MemberIndex) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
