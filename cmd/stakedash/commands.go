// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/types"
)

const rebuildBatchSize = 1024

var dumpConfig = spew.ConfigState{
	Indent:                  "    ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// inspection is what inspect prints for an operator.
type inspection struct {
	Operator types.Address
	Time     uint64
	Status   string
	Balance  *big.Int
	Minimum  *big.Int
	Record   *record.Record
	History  []*record.Record
}

func atOrNow(ctx *cli.Context) uint64 {
	if at := ctx.Uint64(atFlag.Name); at != 0 {
		return at
	}
	return clock.System{}.Now()
}

func inspectAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	operator, err := types.ParseAddress(ctx.String(operatorFlag.Name))
	if err != nil {
		return errors.WithMessage(err, operatorFlag.Name)
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	db, err := openMainDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	repo, err := record.NewRepository(db, 0)
	if err != nil {
		return err
	}
	sched, err := cfg.Staking.Schedule.Build()
	if err != nil {
		return err
	}
	s, err := staker.New(repo, sched, cfg.Staking.Params())
	if err != nil {
		return err
	}

	in, err := inspect(s, *operator, atOrNow(ctx))
	if err != nil {
		return err
	}
	dumpConfig.Fdump(os.Stdout, in)
	return nil
}

func inspect(s *staker.Staker, operator types.Address, now uint64) (*inspection, error) {
	rec, err := s.Get(operator)
	if err != nil {
		return nil, err
	}
	status, err := s.Status(operator, now)
	if err != nil {
		return nil, err
	}
	balance, err := s.BalanceOf(operator)
	if err != nil {
		return nil, err
	}
	history, err := s.History(operator)
	if err != nil {
		return nil, err
	}
	in := &inspection{
		Operator: operator,
		Time:     now,
		Status:   status.String(),
		Balance:  balance,
		Minimum:  s.MinimumStake(now),
		History:  history,
	}
	if !rec.IsEmpty() {
		in.Record = rec
	}
	return in, nil
}

func minimumStakeAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	minimum, err := cfg.Staking.Schedule.MinimumAt(atOrNow(ctx))
	if err != nil {
		return err
	}
	fmt.Println(minimum)
	return nil
}

func rebuildEventsAction(ctx *cli.Context) error {
	if _, err := initLogger(ctx); err != nil {
		return err
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	db, err := openMainDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	repo, err := record.NewRepository(db, 0)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.DataDir, eventDBName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove event database [%v]", path)
	}
	eventDB, err := openEventDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer eventDB.Close()

	fmt.Println(">> Rebuilding event db <<")
	n, err := rebuildEvents(repo, eventDB, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("event db rebuilt", "events", n)
	return nil
}

// rebuildEvents writes the events recoverable from the stored records into
// eventDB and returns how many were written.
func rebuildEvents(repo *record.Repository, eventDB *eventdb.EventDB, out io.Writer) (int, error) {
	var total int64
	if err := repo.Walk(func(*record.Record, bool) error {
		total++
		return nil
	}); err != nil {
		return 0, err
	}

	bar := pb.New64(total).SetMaxWidth(90)
	bar.Output = out
	bar.Start()
	defer func() { bar.NotPrint = true }()

	var events []*eventdb.Event
	if err := repo.Walk(func(rec *record.Record, _ bool) error {
		events = append(events, historyEvents(rec)...)
		bar.Add64(1)
		return nil
	}); err != nil {
		return 0, err
	}
	bar.Finish()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	for i := 0; i < len(events); i += rebuildBatchSize {
		end := min(i+rebuildBatchSize, len(events))
		if err := eventDB.Insert(events[i:end]); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

// historyEvents derives the events of a record. Records keep no callers nor
// the time of cancellations and authorizations: the owner stands for the
// caller, the authorizer for authorizations, and the creation time for the
// missing times.
func historyEvents(rec *record.Record) []*eventdb.Event {
	newEvent := func(kind staker.Kind, caller types.Address, at uint64) *eventdb.Event {
		return &eventdb.Event{
			Kind:     kind,
			Operator: rec.Operator(),
			Owner:    rec.Owner(),
			Caller:   caller,
			Amount:   rec.Amount(),
			Time:     at,
			Grant:    rec.Grant(),
		}
	}

	events := []*eventdb.Event{newEvent(staker.KindDelegated, rec.Owner(), rec.CreatedAt())}
	for _, contract := range rec.Authorized() {
		ev := newEvent(staker.KindAuthorized, rec.Authorizer(), rec.CreatedAt())
		ev.Contract = &contract
		events = append(events, ev)
	}
	if rec.Cancelled() {
		return append(events, newEvent(staker.KindCancelled, rec.Owner(), rec.CreatedAt()))
	}
	if at := rec.UndelegatedAt(); at != nil {
		events = append(events, newEvent(staker.KindUndelegated, rec.Owner(), *at))
	}
	if at := rec.RecoveredAt(); at != nil {
		events = append(events, newEvent(staker.KindRecovered, rec.Owner(), *at))
	}
	return events
}
