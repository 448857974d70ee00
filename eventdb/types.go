// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"math/big"

	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/types"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds event time, inclusive. A To below From leaves the range open.
type Range struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects stored events. Nil fields match everything.
type Filter struct {
	Operator *types.Address
	Kinds    []staker.Kind
	Grant    *uint64
	Range    *Range
	Order    Order // default asc
	Options  *Options
}

// Event is a stored staker event.
type Event struct {
	Seq      uint64
	Kind     staker.Kind
	Operator types.Address
	Owner    types.Address
	Caller   types.Address
	Amount   *big.Int
	Time     uint64
	Grant    *uint64
	Contract *types.Address
}

// NewEvent converts a staker event for storage.
func NewEvent(ev *staker.Event) *Event {
	return &Event{
		Kind:     ev.Kind,
		Operator: ev.Operator,
		Owner:    ev.Owner,
		Caller:   ev.Caller,
		Amount:   types.Copy(ev.Amount),
		Time:     ev.Time,
		Grant:    ev.Grant,
		Contract: ev.Contract,
	}
}
