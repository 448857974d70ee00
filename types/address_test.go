// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"with prefix", "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", false},
		{"upper prefix", "0X7567d83b7b8d80addcb281a71d54fc7b3364ffed", false},
		{"no prefix", "7567d83b7b8d80addcb281a71d54fc7b3364ffed", false},
		{"bad prefix", "1x7567d83b7b8d80addcb281a71d54fc7b3364ffed", true},
		{"short", "0x7567d83b", true},
		{"not hex", "0xzz67d83b7b8d80addcb281a71d54fc7b3364ffed", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())
		})
	}
}

func TestAddressJSON(t *testing.T) {
	addr := BytesToAddress([]byte("operator"))

	data, err := json.Marshal(&addr)
	require.NoError(t, err)
	assert.Equal(t, `"`+addr.String()+`"`, string(data))

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)
	assert.False(t, decoded.IsZero())
	assert.True(t, Address{}.IsZero())
}

func TestTokens(t *testing.T) {
	assert.Equal(t, "100000000000000000000000", Tokens(100000).String())
	assert.Equal(t, big.NewInt(100000), WholeTokens(Tokens(100000)))
	assert.Equal(t, big.NewInt(0), WholeTokens(nil))

	orig := big.NewInt(5)
	cpy := Copy(orig)
	cpy.SetInt64(6)
	assert.Equal(t, int64(5), orig.Int64())
}
