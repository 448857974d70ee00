// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package types

import "math/big"

// Decimals of the staked token.
const Decimals = 18

var tokenUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Tokens returns n whole tokens in base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), tokenUnit)
}

// WholeTokens truncates an amount of base units to whole tokens, for logging.
func WholeTokens(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Div(amount, tokenUnit)
}

// Copy returns a copy of the amount, treating nil as zero.
func Copy(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}
