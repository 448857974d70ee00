// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/types"
)

// Event is a staker event as served by the api, stored or live.
type Event struct {
	Seq      uint64                `json:"seq,omitempty"`
	Kind     staker.Kind           `json:"kind"`
	Operator types.Address         `json:"operator"`
	Owner    types.Address         `json:"owner"`
	Caller   types.Address         `json:"caller"`
	Amount   *math.HexOrDecimal256 `json:"amount"`
	Time     uint64                `json:"time"`
	Grant    *uint64               `json:"grant"`
	Contract *types.Address        `json:"contract"`
}

func ConvertStored(ev *eventdb.Event) *Event {
	return &Event{
		Seq:      ev.Seq,
		Kind:     ev.Kind,
		Operator: ev.Operator,
		Owner:    ev.Owner,
		Caller:   ev.Caller,
		Amount:   utils.Amount(ev.Amount),
		Time:     ev.Time,
		Grant:    ev.Grant,
		Contract: ev.Contract,
	}
}

func ConvertLive(ev *staker.Event) *Event {
	return &Event{
		Kind:     ev.Kind,
		Operator: ev.Operator,
		Owner:    ev.Owner,
		Caller:   ev.Caller,
		Amount:   utils.Amount(types.Copy(ev.Amount)),
		Time:     ev.Time,
		Grant:    ev.Grant,
		Contract: ev.Contract,
	}
}
