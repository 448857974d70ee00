// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/types"
)

// AddressVar parses the named path variable as an address.
func AddressVar(req *http.Request, name string) (types.Address, error) {
	addr, err := types.ParseAddress(mux.Vars(req)[name])
	if err != nil {
		return types.Address{}, BadRequest(errors.WithMessage(err, name))
	}
	return *addr, nil
}

// Uint64Var parses the named path variable as a decimal or hex integer.
func Uint64Var(req *http.Request, name string) (uint64, error) {
	v, ok := math.ParseUint64(mux.Vars(req)[name])
	if !ok {
		return 0, BadRequest(errors.Errorf("%s: invalid number", name))
	}
	return v, nil
}

// Uint64Query parses an optional query value, def when absent.
func Uint64Query(req *http.Request, name string, def uint64) (uint64, error) {
	s := req.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, ok := math.ParseUint64(s)
	if !ok {
		return 0, BadRequest(errors.Errorf("%s: invalid number", name))
	}
	return v, nil
}

// AddressQuery parses an optional query value, nil when absent.
func AddressQuery(req *http.Request, name string) (*types.Address, error) {
	s := req.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return nil, BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

// Amount converts an amount for JSON output.
func Amount(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(v)
}

// RequireAmount converts a JSON amount, which must be set.
func RequireAmount(v *math.HexOrDecimal256, name string) (*big.Int, error) {
	if v == nil {
		return nil, BadRequest(errors.Errorf("%s: required", name))
	}
	return (*big.Int)(v), nil
}
