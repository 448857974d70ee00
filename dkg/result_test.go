// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dkg

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Equals(t *testing.T) {
	r := &Result{GroupPublicKey: []byte{1, 2}, Disqualified: []MemberIndex{3}, Inactive: []MemberIndex{5}}

	tests := []struct {
		name  string
		other *Result
		want  bool
	}{
		{"same", &Result{GroupPublicKey: []byte{1, 2}, Disqualified: []MemberIndex{3}, Inactive: []MemberIndex{5}}, true},
		{"other key", &Result{GroupPublicKey: []byte{1, 3}, Disqualified: []MemberIndex{3}, Inactive: []MemberIndex{5}}, false},
		{"other disqualified", &Result{GroupPublicKey: []byte{1, 2}, Inactive: []MemberIndex{5}}, false},
		{"swapped", &Result{GroupPublicKey: []byte{1, 2}, Disqualified: []MemberIndex{5}, Inactive: []MemberIndex{3}}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Equals(tt.other))
		})
	}

	var nilResult *Result
	assert.True(t, nilResult.Equals(nil))
}

func TestEncodeMisbehaved(t *testing.T) {
	r := &Result{Disqualified: []MemberIndex{3}, Inactive: []MemberIndex{5}}
	b, err := EncodeMisbehaved(r)
	require.NoError(t, err)
	assert.Equal(t, "0x0305", hexutil.Encode(b))

	r = &Result{Disqualified: []MemberIndex{5, 3}, Inactive: []MemberIndex{3, 1}}
	b, err = EncodeMisbehaved(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 3, 5}, b)

	b, err = EncodeMisbehaved(&Result{})
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = EncodeMisbehaved(&Result{Inactive: []MemberIndex{0}})
	assert.True(t, errors.Is(err, ErrInvalidMisbehaved))
}

func TestDecodeMisbehaved(t *testing.T) {
	indices, err := DecodeMisbehaved(hexutil.MustDecode("0x0305"), 5)
	require.NoError(t, err)
	assert.Equal(t, []MemberIndex{3, 5}, indices)

	for _, b := range [][]byte{{0}, {6}, {3, 3}} {
		_, err := DecodeMisbehaved(b, 5)
		assert.True(t, errors.Is(err, ErrInvalidMisbehaved), "%x", b)
	}

	_, err = DecodeMisbehaved(nil, 300)
	assert.Error(t, err)
}

func TestResultHash(t *testing.T) {
	pubKey := hexutil.MustDecode("0x1000000000000000000000000000000000000000000000000000000000000000")
	misbehaved := hexutil.MustDecode("0x0305")

	want := crypto.Keccak256Hash(append(append([]byte{}, pubKey...), misbehaved...))
	assert.Equal(t, want, ResultHash(pubKey, misbehaved))
	assert.NotEqual(t, want, ResultHash(pubKey, nil))
}
