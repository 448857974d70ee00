// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grants

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/grant"
	"github.com/stakedash/stakedash/types"
)

type Grant struct {
	ID           uint64                `json:"id"`
	Grantor      types.Address         `json:"grantor"`
	Grantee      types.Address         `json:"grantee"`
	Amount       *math.HexOrDecimal256 `json:"amount"`
	Start        uint64                `json:"start"`
	Cliff        uint64                `json:"cliff"`
	Duration     uint64                `json:"duration"`
	Revocable    bool                  `json:"revocable"`
	Withdrawn    *math.HexOrDecimal256 `json:"withdrawn"`
	Operator     *types.Address        `json:"operator"`
	Staked       *math.HexOrDecimal256 `json:"staked"`
	Unlocked     *math.HexOrDecimal256 `json:"unlocked"`
	Available    *math.HexOrDecimal256 `json:"available"`
	Withdrawable *math.HexOrDecimal256 `json:"withdrawable"`
}

func convertGrant(g *grant.Grant, now uint64, available, withdrawable *big.Int) *Grant {
	return &Grant{
		ID:           g.ID(),
		Grantor:      g.Grantor(),
		Grantee:      g.Grantee(),
		Amount:       utils.Amount(g.Amount()),
		Start:        g.Start(),
		Cliff:        g.Cliff(),
		Duration:     g.Duration(),
		Revocable:    g.Revocable(),
		Withdrawn:    utils.Amount(g.Withdrawn()),
		Operator:     g.Operator(),
		Staked:       utils.Amount(g.Staked()),
		Unlocked:     utils.Amount(g.Unlocked(now)),
		Available:    utils.Amount(available),
		Withdrawable: utils.Amount(withdrawable),
	}
}

type CreateRequest struct {
	Grantor   types.Address         `json:"grantor"`
	Grantee   types.Address         `json:"grantee"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	Start     uint64                `json:"start"`
	Cliff     uint64                `json:"cliff"`
	Duration  uint64                `json:"duration"`
	Revocable bool                  `json:"revocable"`
}

type StakeRequest struct {
	Caller      types.Address         `json:"caller"`
	Contract    types.Address         `json:"contract"`
	Operator    types.Address         `json:"operator"`
	Beneficiary *types.Address        `json:"beneficiary"`
	Authorizer  *types.Address        `json:"authorizer"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

type CallerRequest struct {
	Caller types.Address `json:"caller"`
}

type AmountResponse struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}
