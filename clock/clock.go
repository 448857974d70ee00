// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/log"
)

const DefaultNTPServer = "pool.ntp.org"

var logger = log.WithContext("pkg", "clock")

// ErrClockDrift is returned when the host clock is off by more than allowed.
var ErrClockDrift = errors.New("clock drift exceeds limit")

// Clock supplies the current time in unix seconds.
type Clock interface {
	Now() uint64
}

// System reads the host clock.
type System struct{}

func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a clock that only moves when told to.
type Manual struct {
	now atomic.Uint64
}

func NewManual(now uint64) *Manual {
	m := &Manual{}
	m.now.Store(now)
	return m
}

func (m *Manual) Now() uint64 {
	return m.now.Load()
}

func (m *Manual) Set(now uint64) {
	m.now.Store(now)
}

// Advance moves the clock forward by d seconds and returns the new time.
func (m *Manual) Advance(d uint64) uint64 {
	return m.now.Add(d)
}

var queryNTP = func(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}

// CheckDrift queries the NTP server and fails if the host clock is off by
// more than limit in either direction.
func CheckDrift(ctx context.Context, server string, limit time.Duration) (time.Duration, error) {
	type result struct {
		offset time.Duration
		err    error
	}
	query := queryNTP
	ch := make(chan result, 1)
	go func() {
		offset, err := query(server)
		ch <- result{offset, err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return 0, errors.Wrapf(r.err, "query ntp server %s", server)
		}
		offset := r.offset
		if offset < 0 {
			offset = -offset
		}
		if offset > limit {
			logger.Warn("clock offset detected", "server", server, "offset", common.PrettyDuration(r.offset))
			return r.offset, errors.Wrapf(ErrClockDrift, "offset %v, limit %v", r.offset, limit)
		}
		logger.Debug("clock checked", "server", server, "offset", common.PrettyDuration(r.offset))
		return r.offset, nil
	}
}
