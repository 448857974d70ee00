// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grant

import (
	"math/big"

	"github.com/stakedash/stakedash/types"
)

// Grant is a vesting token allocation from a grantor to a grantee.
type Grant struct {
	body *body
}

type body struct {
	ID        uint64
	Grantor   types.Address
	Grantee   types.Address
	Amount    *big.Int // principal
	Start     uint64   // unlocking start
	Cliff     uint64   // seconds after start before anything unlocks
	Duration  uint64   // seconds after start when everything is unlocked
	Revocable bool
	Withdrawn *big.Int

	// stake link, zero operator when the grant is not staked
	Operator        types.Address
	StakingContract types.Address
	Staked          *big.Int
	StakedAt        uint64
}

func (g *Grant) ID() uint64 {
	return g.body.ID
}

func (g *Grant) Grantor() types.Address {
	return g.body.Grantor
}

func (g *Grant) Grantee() types.Address {
	return g.body.Grantee
}

func (g *Grant) Amount() *big.Int {
	return types.Copy(g.body.Amount)
}

func (g *Grant) Start() uint64 {
	return g.body.Start
}

func (g *Grant) Cliff() uint64 {
	return g.body.Cliff
}

func (g *Grant) Duration() uint64 {
	return g.body.Duration
}

func (g *Grant) Revocable() bool {
	return g.body.Revocable
}

func (g *Grant) Withdrawn() *big.Int {
	return types.Copy(g.body.Withdrawn)
}

// Operator returns the operator the grant is staked to, nil if none.
func (g *Grant) Operator() *types.Address {
	if g.body.Operator.IsZero() {
		return nil
	}
	op := g.body.Operator
	return &op
}

func (g *Grant) StakingContract() types.Address {
	return g.body.StakingContract
}

// Staked returns the amount delegated to the linked operator.
func (g *Grant) Staked() *big.Int {
	return types.Copy(g.body.Staked)
}

func (g *Grant) StakedAt() uint64 {
	return g.body.StakedAt
}

// Unlocked returns the part of the principal vested at now: nothing before
// the cliff, linear between start and start+duration, everything after.
func (g *Grant) Unlocked(now uint64) *big.Int {
	if now < g.body.Start {
		return new(big.Int)
	}
	elapsed := now - g.body.Start
	switch {
	case elapsed < g.body.Cliff:
		return new(big.Int)
	case elapsed >= g.body.Duration:
		return types.Copy(g.body.Amount)
	}
	unlocked := new(big.Int).SetUint64(elapsed)
	unlocked.Mul(unlocked, g.body.Amount)
	return unlocked.Div(unlocked, new(big.Int).SetUint64(g.body.Duration))
}

func (g *Grant) link(operator, contract types.Address, amount *big.Int, now uint64) {
	g.body.Operator = operator
	g.body.StakingContract = contract
	g.body.Staked = types.Copy(amount)
	g.body.StakedAt = now
}

func (g *Grant) unlink() {
	g.body.Operator = types.Address{}
	g.body.StakingContract = types.Address{}
	g.body.Staked = new(big.Int)
	g.body.StakedAt = 0
}
