// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math/big"

	"github.com/ethereum/go-ethereum/event"

	"github.com/stakedash/stakedash/types"
)

type Kind string

const (
	KindDelegated   Kind = "delegated"
	KindCancelled   Kind = "cancelled"
	KindUndelegated Kind = "undelegated"
	KindRecovered   Kind = "recovered"
	KindAuthorized  Kind = "authorized"
)

// Event describes a successful transition.
type Event struct {
	Kind     Kind
	Operator types.Address
	Owner    types.Address
	Caller   types.Address
	Amount   *big.Int
	Time     uint64
	Grant    *uint64
	Contract *types.Address // set for authorizations only
}

// Listener is notified of every event, in transition order. It runs on the
// goroutine of the transition and must not call back into the staker.
type Listener func(ev *Event)

// SubscribeEvents registers ch to receive every event. Delivery is ordered,
// so a subscriber that stops draining ch stalls later transitions.
func (s *Staker) SubscribeEvents(ch chan<- *Event) event.Subscription {
	return s.feed.Subscribe(ch)
}

func (s *Staker) emit(ev *Event) {
	for _, l := range s.listeners {
		l(ev)
	}
	s.feed.Send(ev)
}
