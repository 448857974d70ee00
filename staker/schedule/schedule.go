// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schedule

import (
	"math/big"

	"github.com/stakedash/stakedash/staker/reverts"
	"github.com/stakedash/stakedash/types"
)

const (
	// DefaultDuration of the minimum stake schedule, two years.
	DefaultDuration = uint64(2 * 365 * 24 * 60 * 60)
	// DefaultSteps in which the minimum stake decreases.
	DefaultSteps = uint64(10)
)

// Schedule is a minimum stake threshold which decreases from startValue to
// endValue in equal steps over the duration.
type Schedule struct {
	start      uint64
	duration   uint64
	steps      uint64
	startValue *big.Int
	endValue   *big.Int
}

// New creates a schedule starting at start (unix seconds).
func New(start, duration, steps uint64, startValue, endValue *big.Int) (*Schedule, error) {
	if steps == 0 {
		return nil, reverts.New(reverts.CodeInvalidConfig, "minimum stake steps must be positive")
	}
	if duration == 0 {
		return nil, reverts.New(reverts.CodeInvalidConfig, "minimum stake schedule duration must be positive")
	}
	if startValue == nil || endValue == nil {
		return nil, reverts.New(reverts.CodeInvalidConfig, "minimum stake values must be set")
	}
	if endValue.Sign() < 0 || startValue.Cmp(endValue) < 0 {
		return nil, reverts.New(reverts.CodeInvalidConfig, "minimum stake must not increase",
			"start", startValue, "end", endValue)
	}
	return &Schedule{
		start:      start,
		duration:   duration,
		steps:      steps,
		startValue: new(big.Int).Set(startValue),
		endValue:   new(big.Int).Set(endValue),
	}, nil
}

// Default returns the 100000 to 10000 tokens schedule in 10 steps over two years.
func Default(start uint64) *Schedule {
	s, err := New(start, DefaultDuration, DefaultSteps, types.Tokens(100000), types.Tokens(10000))
	if err != nil {
		panic(err)
	}
	return s
}

// Start returns the time the schedule starts.
func (s *Schedule) Start() uint64 {
	return s.start
}

// Duration returns the length of the schedule.
func (s *Schedule) Duration() uint64 {
	return s.duration
}

// Steps returns the number of equal steps the schedule is divided into.
func (s *Schedule) Steps() uint64 {
	return s.steps
}

func (s *Schedule) StartValue() *big.Int {
	return new(big.Int).Set(s.startValue)
}

func (s *Schedule) EndValue() *big.Int {
	return new(big.Int).Set(s.endValue)
}

// MinimumStake returns the threshold in force at now. The duration is split
// into equal steps; the threshold is held during a step and drops at each step
// boundary by an equal amount, so that the last step already sits at the end
// value. With 100000 to 10000 in 10 steps the threshold is 90000 after the
// first step and 50000 half way.
func (s *Schedule) MinimumStake(now uint64) *big.Int {
	if now <= s.start {
		return new(big.Int).Set(s.startValue)
	}
	if now-s.start >= s.duration {
		return new(big.Int).Set(s.endValue)
	}
	if s.steps == 1 {
		return new(big.Int).Set(s.startValue)
	}

	completed := s.completedSteps(now)

	// startValue - (startValue - endValue) * completed / (steps - 1)
	decrease := new(big.Int).Sub(s.startValue, s.endValue)
	decrease.Mul(decrease, completed)
	decrease.Div(decrease, new(big.Int).SetUint64(s.steps-1))
	return decrease.Sub(s.startValue, decrease)
}

// NextStep returns the time of the next threshold drop after now. ok is false
// once the threshold can no longer decrease.
func (s *Schedule) NextStep(now uint64) (at uint64, ok bool) {
	if s.startValue.Cmp(s.endValue) == 0 {
		return 0, false
	}
	if now < s.start {
		now = s.start
	}
	if now-s.start >= s.duration {
		return 0, false
	}
	if s.steps == 1 {
		return s.start + s.duration, true
	}

	next := new(big.Int).Add(s.completedSteps(now), big.NewInt(1))
	if next.Uint64() >= s.steps {
		return 0, false
	}

	// first elapsed time t with floor(t * steps / duration) >= next,
	// i.e. ceil(next * duration / steps)
	steps := new(big.Int).SetUint64(s.steps)
	elapsed := next.Mul(next, new(big.Int).SetUint64(s.duration))
	elapsed.Add(elapsed, new(big.Int).Sub(steps, big.NewInt(1)))
	elapsed.Div(elapsed, steps)
	return s.start + elapsed.Uint64(), true
}

// completedSteps computes floor((now - start) * steps / duration) without
// overflowing uint64.
func (s *Schedule) completedSteps(now uint64) *big.Int {
	completed := new(big.Int).SetUint64(now - s.start)
	completed.Mul(completed, new(big.Int).SetUint64(s.steps))
	return completed.Div(completed, new(big.Int).SetUint64(s.duration))
}
