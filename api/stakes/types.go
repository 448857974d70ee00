// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/types"
)

type Stake struct {
	Operator      types.Address         `json:"operator"`
	Owner         types.Address         `json:"owner"`
	Beneficiary   types.Address         `json:"beneficiary"`
	Authorizer    types.Address         `json:"authorizer"`
	Amount        *math.HexOrDecimal256 `json:"amount"`
	CreatedAt     uint64                `json:"createdAt"`
	UndelegatedAt *uint64               `json:"undelegatedAt"`
	RecoveredAt   *uint64               `json:"recoveredAt"`
	Cancelled     bool                  `json:"cancelled"`
	Grant         *uint64               `json:"grant"`
	Authorized    []types.Address       `json:"authorized"`
	Status        string                `json:"status"`
	Balance       *math.HexOrDecimal256 `json:"balance"`
}

func convertStake(rec *record.Record, status record.Status) *Stake {
	authorized := rec.Authorized()
	if authorized == nil {
		authorized = []types.Address{}
	}
	return &Stake{
		Operator:      rec.Operator(),
		Owner:         rec.Owner(),
		Beneficiary:   rec.Beneficiary(),
		Authorizer:    rec.Authorizer(),
		Amount:        utils.Amount(rec.Amount()),
		CreatedAt:     rec.CreatedAt(),
		UndelegatedAt: rec.UndelegatedAt(),
		RecoveredAt:   rec.RecoveredAt(),
		Cancelled:     rec.Cancelled(),
		Grant:         rec.Grant(),
		Authorized:    authorized,
		Status:        status.String(),
		Balance:       utils.Amount(rec.Locked()),
	}
}

type DelegateRequest struct {
	Operator    types.Address         `json:"operator"`
	Owner       types.Address         `json:"owner"`
	Beneficiary *types.Address        `json:"beneficiary"`
	Authorizer  *types.Address        `json:"authorizer"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

type CallerRequest struct {
	Caller types.Address `json:"caller"`
}

type AuthorizeRequest struct {
	Caller   types.Address `json:"caller"`
	Contract types.Address `json:"contract"`
}

type AmountResponse struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type Eligibility struct {
	Eligible *math.HexOrDecimal256 `json:"eligible"`
	Minimum  *math.HexOrDecimal256 `json:"minimum"`
	Ok       bool                  `json:"ok"`
}
