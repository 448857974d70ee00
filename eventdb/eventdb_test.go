// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/lvldb"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/staker/schedule"
	"github.com/stakedash/stakedash/test/datagen"
	"github.com/stakedash/stakedash/types"
)

func newEventDB(t *testing.T) *eventdb.EventDB {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func randEvents(n int, operators []types.Address) []*eventdb.Event {
	kinds := []staker.Kind{staker.KindDelegated, staker.KindUndelegated, staker.KindRecovered}
	events := make([]*eventdb.Event, 0, n)
	for i := range n {
		ev := &eventdb.Event{
			Kind:     kinds[i%len(kinds)],
			Operator: operators[i%len(operators)],
			Owner:    datagen.RandAddress(),
			Caller:   datagen.RandAddress(),
			Amount:   datagen.RandTokens(10000, 100000),
			Time:     uint64(i * 10),
		}
		if i%4 == 0 {
			id := uint64(i/4 + 1)
			ev.Grant = &id
		}
		events = append(events, ev)
	}
	return events
}

func TestEventDB_InsertAndFilter(t *testing.T) {
	db := newEventDB(t)
	operators := datagen.RandAddresses(2)
	events := randEvents(30, operators)
	require.NoError(t, db.Insert(events))

	all, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, len(events))
	for i, ev := range all {
		assert.Equal(t, uint64(i+1), ev.Seq)
		assert.Equal(t, events[i].Kind, ev.Kind)
		assert.Equal(t, events[i].Operator, ev.Operator)
		assert.Equal(t, events[i].Owner, ev.Owner)
		assert.Equal(t, events[i].Caller, ev.Caller)
		assert.Zero(t, events[i].Amount.Cmp(ev.Amount))
		assert.Equal(t, events[i].Time, ev.Time)
		assert.Equal(t, events[i].Grant, ev.Grant)
		assert.Nil(t, ev.Contract)
	}
}

func TestEventDB_Filter(t *testing.T) {
	db := newEventDB(t)
	operators := datagen.RandAddresses(2)
	require.NoError(t, db.Insert(randEvents(30, operators)))

	grant := uint64(2)
	hugeGrant := uint64(math.MaxUint64)
	tests := []struct {
		name   string
		filter *eventdb.Filter
		check  func(t *testing.T, events []*eventdb.Event)
	}{
		{
			"operator",
			&eventdb.Filter{Operator: &operators[0]},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Len(t, events, 15)
				for _, ev := range events {
					assert.Equal(t, operators[0], ev.Operator)
				}
			},
		},
		{
			"kinds",
			&eventdb.Filter{Kinds: []staker.Kind{staker.KindDelegated, staker.KindRecovered}},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Len(t, events, 20)
				for _, ev := range events {
					assert.NotEqual(t, staker.KindUndelegated, ev.Kind)
				}
			},
		},
		{
			"grant",
			&eventdb.Filter{Grant: &grant},
			func(t *testing.T, events []*eventdb.Event) {
				require.Len(t, events, 1)
				assert.Equal(t, uint64(40), events[0].Time)
			},
		},
		{
			"range",
			&eventdb.Filter{Range: &eventdb.Range{From: 100, To: 150}},
			func(t *testing.T, events []*eventdb.Event) {
				require.Len(t, events, 6)
				assert.Equal(t, uint64(100), events[0].Time)
				assert.Equal(t, uint64(150), events[5].Time)
			},
		},
		{
			"open range",
			&eventdb.Filter{Range: &eventdb.Range{From: 250}},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Len(t, events, 5)
			},
		},
		{
			"range to max time",
			&eventdb.Filter{Range: &eventdb.Range{From: 0, To: math.MaxUint64}},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Len(t, events, 30)
			},
		},
		{
			"open range past signed times",
			&eventdb.Filter{Range: &eventdb.Range{From: math.MaxInt64 + 1}},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Empty(t, events)
			},
		},
		{
			"grant past signed ids",
			&eventdb.Filter{Grant: &hugeGrant},
			func(t *testing.T, events []*eventdb.Event) {
				assert.Empty(t, events)
			},
		},
		{
			"desc with options",
			&eventdb.Filter{Order: eventdb.DESC, Options: &eventdb.Options{Offset: 1, Limit: 3}},
			func(t *testing.T, events []*eventdb.Event) {
				require.Len(t, events, 3)
				assert.Equal(t, uint64(29), events[0].Seq)
				assert.Equal(t, uint64(27), events[2].Seq)
			},
		},
		{
			"combined",
			&eventdb.Filter{
				Operator: &operators[1],
				Kinds:    []staker.Kind{staker.KindUndelegated},
				Range:    &eventdb.Range{From: 0, To: 100},
			},
			func(t *testing.T, events []*eventdb.Event) {
				// i = 1, 7 match operator 1 and undelegated kind within time 100
				require.Len(t, events, 2)
				assert.Equal(t, uint64(10), events[0].Time)
				assert.Equal(t, uint64(70), events[1].Time)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := db.Filter(context.Background(), tt.filter)
			require.NoError(t, err)
			tt.check(t, events)
		})
	}
}

func TestEventDB_Listener(t *testing.T) {
	db := newEventDB(t)

	store, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	repo, err := record.NewRepository(store, 0)
	require.NoError(t, err)
	sched, err := schedule.New(0, 1000, 10, types.Tokens(100), types.Tokens(10))
	require.NoError(t, err)
	s, err := staker.New(repo, sched, staker.Params{InitializationPeriod: 10, UndelegationPeriod: 50}, staker.WithListener(db.Listener()))
	require.NoError(t, err)

	operator, owner, contract := datagen.RandAddress(), datagen.RandAddress(), datagen.RandAddress()
	require.NoError(t, s.Delegate(staker.DelegateRequest{Operator: operator, Owner: owner, Amount: types.Tokens(100)}, 1))
	require.NoError(t, s.AuthorizeOperatorContract(operator, owner, contract, 2))
	require.NoError(t, s.Undelegate(operator, owner, 20))
	_, err = s.RecoverStake(operator, datagen.RandAddress(), 71)
	require.NoError(t, err)

	events, err := db.Filter(context.Background(), &eventdb.Filter{Operator: &operator})
	require.NoError(t, err)
	require.Len(t, events, 4)

	var kinds []staker.Kind
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []staker.Kind{staker.KindDelegated, staker.KindAuthorized, staker.KindUndelegated, staker.KindRecovered}, kinds)
	assert.Equal(t, &contract, events[1].Contract)
	assert.Equal(t, types.Tokens(100), events[3].Amount)
	assert.Equal(t, uint64(71), events[3].Time)
}

func TestEventDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := eventdb.New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	assert.NotEmpty(t, db.DriverVersion())
	require.NoError(t, db.Insert(randEvents(3, datagen.RandAddresses(1))))
	require.NoError(t, db.Close())

	db, err = eventdb.New(path)
	require.NoError(t, err)
	defer db.Close()

	events, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.NoError(t, db.Insert(nil))
}
