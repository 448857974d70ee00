// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"database/sql"
	"math"
	"math/big"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/types"
)

const memPath = ":memory:"

var logger = log.WithContext("pkg", "eventdb")

const insertEvent = "INSERT INTO event(kind, operator, owner, caller, amount, time, grantID, contract) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

// EventDB keeps the history of staker events.
type EventDB struct {
	path          string
	db            *sql.DB
	stmtCache     *stmtCache
	driverVersion string
}

// New create or open event db at given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if path == memPath {
		// every connection opens its own in-memory database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create event table")
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		stmtCache:     newStmtCache(db),
		driverVersion: driverVer,
	}, nil
}

// NewMem create an event db in ram.
func NewMem() (*EventDB, error) {
	return New(memPath)
}

func (db *EventDB) Path() string {
	return db.path
}

func (db *EventDB) DriverVersion() string {
	return db.driverVersion
}

// Close close the event db.
func (db *EventDB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

// Insert stores events in one transaction.
func (db *EventDB) Insert(events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := db.stmtCache.Prepare(insertEvent)
	if err != nil {
		return err
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	txStmt := tx.Stmt(stmt)
	for _, ev := range events {
		var (
			grant    any
			contract []byte
		)
		if ev.Grant != nil {
			grant = int64(*ev.Grant)
		}
		if ev.Contract != nil {
			contract = ev.Contract.Bytes()
		}
		amount := "0"
		if ev.Amount != nil {
			amount = ev.Amount.String()
		}
		if _, err := txStmt.Exec(
			string(ev.Kind),
			ev.Operator.Bytes(),
			ev.Owner.Bytes(),
			ev.Caller.Bytes(),
			amount,
			int64(ev.Time),
			grant,
			contract,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	metricInsertCounter().Add(int64(len(events)))
	return nil
}

// Listener returns a staker listener that stores every event. Store
// failures are logged, the transition already happened.
func (db *EventDB) Listener() staker.Listener {
	return func(ev *staker.Event) {
		if err := db.Insert([]*Event{NewEvent(ev)}); err != nil {
			logger.Error("failed to store event", "kind", ev.Kind, "operator", ev.Operator, "err", err)
		}
	}
}

// Filter returns events matching the filter, ordered by insertion.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	const query = "SELECT seq, kind, operator, owner, caller, amount, time, grantID, contract FROM event"
	if filter == nil {
		return db.query(ctx, query+" ORDER BY seq ASC")
	}
	metricsHandleFilter(filter)

	var args []any
	stmt := query + " WHERE 1"
	if filter.Range != nil {
		args = append(args, clampInt64(filter.Range.From))
		stmt += " AND time >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, clampInt64(filter.Range.To))
			stmt += " AND time <= ?"
		}
	}
	if filter.Operator != nil {
		args = append(args, filter.Operator.Bytes())
		stmt += " AND operator = ?"
	}
	if filter.Grant != nil {
		args = append(args, clampInt64(*filter.Grant))
		stmt += " AND grantID = ?"
	}
	if len(filter.Kinds) > 0 {
		stmt += " AND kind IN (?" + strings.Repeat(", ?", len(filter.Kinds)-1) + ")"
		for _, k := range filter.Kinds {
			args = append(args, string(k))
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, clampInt64(filter.Options.Offset), clampInt64(filter.Options.Limit))
	}
	return db.query(ctx, stmt, args...)
}

// clampInt64 maps v onto the signed range sqlite stores integers in.
func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func (db *EventDB) query(ctx context.Context, query string, args ...any) ([]*Event, error) {
	stmt, err := db.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			seq      int64
			kind     string
			operator []byte
			owner    []byte
			caller   []byte
			amount   string
			time     int64
			grant    sql.NullInt64
			contract []byte
		)
		if err := rows.Scan(&seq, &kind, &operator, &owner, &caller, &amount, &time, &grant, &contract); err != nil {
			return nil, err
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, errors.Errorf("invalid amount %q at seq %d", amount, seq)
		}
		event := &Event{
			Seq:      uint64(seq),
			Kind:     staker.Kind(kind),
			Operator: types.BytesToAddress(operator),
			Owner:    types.BytesToAddress(owner),
			Caller:   types.BytesToAddress(caller),
			Amount:   value,
			Time:     uint64(time),
		}
		if grant.Valid {
			id := uint64(grant.Int64)
			event.Grant = &id
		}
		if len(contract) > 0 {
			addr := types.BytesToAddress(contract)
			event.Contract = &addr
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
