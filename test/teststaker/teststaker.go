// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package teststaker wires an in-memory staker, grant manager and event db for tests.
package teststaker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/grant"
	"github.com/stakedash/stakedash/lvldb"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/staker/schedule"
	"github.com/stakedash/stakedash/test/datagen"
	"github.com/stakedash/stakedash/types"
)

const (
	ScheduleStart        = 1000
	ScheduleDuration     = 10000
	ScheduleSteps        = 10
	InitializationPeriod = 100
	UndelegationPeriod   = 500
)

var (
	StartMinimum = types.Tokens(100000)
	EndMinimum   = types.Tokens(10000)
)

// Env is a staker with its collaborators.
type Env struct {
	DB       *lvldb.LevelDB
	Events   *eventdb.EventDB
	Staker   *staker.Staker
	Grants   *grant.Manager
	Clock    *clock.Manual
	Contract types.Address // staking contract address grants use
	Owner    types.Address // owner of the grant manager
}

// New creates an env whose clock starts at the schedule start.
func New(t testing.TB) *Env {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	events, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	repo, err := record.NewRepository(db, 0)
	require.NoError(t, err)
	sched, err := schedule.New(ScheduleStart, ScheduleDuration, ScheduleSteps, StartMinimum, EndMinimum)
	require.NoError(t, err)

	owner := datagen.RandAddress()
	grants := grant.New(db, datagen.RandAddress(), owner)

	s, err := staker.New(repo, sched, staker.Params{
		InitializationPeriod: InitializationPeriod,
		UndelegationPeriod:   UndelegationPeriod,
	}, staker.WithListener(events.Listener()), staker.WithGrantees(grants))
	require.NoError(t, err)

	contract := datagen.RandAddress()
	require.NoError(t, grants.AuthorizeStakingContract(owner, contract, s))

	return &Env{
		DB:       db,
		Events:   events,
		Staker:   s,
		Grants:   grants,
		Clock:    clock.NewManual(ScheduleStart),
		Contract: contract,
		Owner:    owner,
	}
}

// Delegate stakes the current minimum for a fresh operator owned by owner.
func (e *Env) Delegate(t testing.TB, owner types.Address) types.Address {
	operator := datagen.RandAddress()
	now := e.Clock.Now()
	require.NoError(t, e.Staker.Delegate(staker.DelegateRequest{
		Operator: operator,
		Owner:    owner,
		Amount:   e.Staker.MinimumStake(now),
	}, now))
	return operator
}
