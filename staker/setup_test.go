// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/lvldb"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/staker/schedule"
	"github.com/stakedash/stakedash/types"
)

const (
	scheduleStart    = uint64(1_000)
	scheduleDuration = uint64(10_000)
	initPeriod       = uint64(100)
	undelegPeriod    = uint64(500)
)

var testParams = Params{
	InitializationPeriod: initPeriod,
	UndelegationPeriod:   undelegPeriod,
}

func newTestStaker(t *testing.T, opts ...Option) *Staker {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := record.NewRepository(db, 16)
	require.NoError(t, err)

	sched, err := schedule.New(scheduleStart, scheduleDuration, 10, types.Tokens(100000), types.Tokens(10000))
	require.NoError(t, err)

	s, err := New(repo, sched, testParams, opts...)
	require.NoError(t, err)
	return s
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	staker *Staker

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(staker *Staker) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), staker: staker}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) Delegate(operator, owner types.Address, amount *big.Int, now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		err := st.staker.Delegate(DelegateRequest{Operator: operator, Owner: owner, Amount: amount}, now)
		if err != nil {
			t.Fatalf("failed to delegate to %s: %v", operator, err)
		}
		t.Logf("delegated %s to %s", amount, operator)
	})
}

func (st *TestSequence) Cancel(operator, caller types.Address, now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.staker.CancelStake(operator, caller, now)
		if err != nil {
			t.Fatalf("failed to cancel stake of %s: %v", operator, err)
		}
		t.Logf("cancelled %s from %s", amount, operator)
	})
}

func (st *TestSequence) Undelegate(operator, caller types.Address, now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.staker.Undelegate(operator, caller, now); err != nil {
			t.Fatalf("failed to undelegate %s: %v", operator, err)
		}
		t.Logf("undelegated %s", operator)
	})
}

func (st *TestSequence) Recover(operator, caller types.Address, now uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		amount, err := st.staker.RecoverStake(operator, caller, now)
		if err != nil {
			t.Fatalf("failed to recover stake of %s: %v", operator, err)
		}
		t.Logf("recovered %s from %s", amount, operator)
	})
}

// Fails adds a step expected to fail with target.
func (st *TestSequence) Fails(target error, fn func(s *Staker) error) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		err := fn(st.staker)
		if !errors.Is(err, target) {
			t.Fatalf("expected %v, got %v", target, err)
		}
		t.Logf("failed as expected: %v", err)
	})
}

func (st *TestSequence) Assert(a *StakeAssertions) *TestSequence {
	return st.AddFunc(a.Assert)
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}
	assertSingleLiveRecord(t, st.staker)

	t.Logf("All test functions executed successfully")
}

type StakeAssertions struct {
	staker   *Staker
	operator types.Address
	now      uint64

	status  *record.Status
	balance *big.Int
	history *int
}

func AssertStake(staker *Staker, operator types.Address, now uint64) *StakeAssertions {
	return &StakeAssertions{staker: staker, operator: operator, now: now}
}

func (sa *StakeAssertions) Status(expected record.Status) *StakeAssertions {
	sa.status = &expected
	return sa
}

func (sa *StakeAssertions) Balance(expected *big.Int) *StakeAssertions {
	sa.balance = expected
	return sa
}

func (sa *StakeAssertions) History(expected int) *StakeAssertions {
	sa.history = &expected
	return sa
}

func (sa *StakeAssertions) Assert(t *testing.T) {
	if sa.status != nil {
		status, err := sa.staker.Status(sa.operator, sa.now)
		assert.NoError(t, err, "failed to get status of %s", sa.operator)
		assert.Equal(t, *sa.status, status, "operator %s status mismatch", sa.operator)
	}

	if sa.balance != nil {
		balance, err := sa.staker.BalanceOf(sa.operator)
		assert.NoError(t, err, "failed to get balance of %s", sa.operator)
		assert.Equal(t, sa.balance, balance, "operator %s balance mismatch", sa.operator)
	}

	if sa.history != nil {
		history, err := sa.staker.History(sa.operator)
		assert.NoError(t, err, "failed to get history of %s", sa.operator)
		assert.Len(t, history, *sa.history, "operator %s history mismatch", sa.operator)
	}
}

// assertSingleLiveRecord checks that every archived record is inert, so the
// live record is the only one that can still hold stake.
func assertSingleLiveRecord(t *testing.T, s *Staker) {
	ops, err := s.Operators()
	require.NoError(t, err)
	for _, op := range ops {
		history, err := s.History(op)
		require.NoError(t, err)
		for _, rec := range history {
			assert.True(t, rec.Cancelled() || rec.RecoveredAt() != nil,
				"archived record of %s still holds stake", op)
		}
	}
}
