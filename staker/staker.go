// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/staker/reverts"
	"github.com/stakedash/stakedash/staker/schedule"
	"github.com/stakedash/stakedash/types"
)

const (
	DefaultInitializationPeriod = uint64(12 * 60 * 60)      // 12 hours
	DefaultUndelegationPeriod   = uint64(60 * 24 * 60 * 60) // 60 days
)

var logger = log.WithContext("pkg", "staker")

// Params are the time windows of the lifecycle, in seconds.
type Params struct {
	InitializationPeriod uint64
	UndelegationPeriod   uint64
}

// DefaultParams returns the default windows.
func DefaultParams() Params {
	return Params{
		InitializationPeriod: DefaultInitializationPeriod,
		UndelegationPeriod:   DefaultUndelegationPeriod,
	}
}

type Option func(*Staker)

// WithListener registers a listener notified after every transition.
func WithListener(l Listener) Option {
	return func(s *Staker) {
		s.listeners = append(s.listeners, l)
	}
}

// WithGrantees grants the grantee role to the grantee of a record's grant.
func WithGrantees(r GranteeResolver) Option {
	return func(s *Staker) {
		s.grantees = r
	}
}

// DelegateRequest describes a new delegation. Beneficiary and authorizer
// default to the owner.
type DelegateRequest struct {
	Operator    types.Address
	Owner       types.Address
	Beneficiary types.Address
	Authorizer  types.Address
	Amount      *big.Int
	Grant       *uint64
}

// Staker tracks the stake of every operator from delegation to recovery.
type Staker struct {
	repo     *record.Repository
	schedule *schedule.Schedule
	params   Params
	grantees GranteeResolver

	mu     sync.Mutex // serializes transitions and reads
	emitMu sync.Mutex // keeps events in transition order

	listeners []Listener // fixed after New
	feed      event.Feed
}

// New creates a staker over the repository.
func New(repo *record.Repository, sched *schedule.Schedule, params Params, opts ...Option) (*Staker, error) {
	if repo == nil {
		return nil, reverts.New(reverts.CodeInvalidConfig, "record repository required")
	}
	if sched == nil {
		return nil, reverts.New(reverts.CodeInvalidConfig, "minimum stake schedule required")
	}
	s := &Staker{
		repo:     repo,
		schedule: sched,
		params:   params,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetGrantees sets the grantee resolver after construction.
func (s *Staker) SetGrantees(r GranteeResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grantees = r
}

func (s *Staker) Params() Params {
	return s.params
}

func (s *Staker) Schedule() *schedule.Schedule {
	return s.schedule
}

//
// Getters - no state change
//

// MinimumStake returns the threshold a delegation must meet at now.
func (s *Staker) MinimumStake(now uint64) *big.Int {
	return s.schedule.MinimumStake(now)
}

// Get returns a copy of the live record of the operator, nil if there is none.
func (s *Staker) Get(operator types.Address) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.Get(operator)
}

// Status returns the status of the operator's stake at now.
func (s *Staker) Status(operator types.Address, now uint64) (record.Status, error) {
	rec, err := s.Get(operator)
	if err != nil {
		return record.StatusUninitialized, err
	}
	return rec.Status(now, s.params.InitializationPeriod), nil
}

// BalanceOf returns the amount locked by the operator's stake, zero once
// recovered or when there is no stake.
func (s *Staker) BalanceOf(operator types.Address) (*big.Int, error) {
	rec, err := s.Get(operator)
	if err != nil {
		return nil, err
	}
	return rec.Locked(), nil
}

// History returns the archived records of the operator, oldest first.
func (s *Staker) History(operator types.Address) ([]*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.History(operator)
}

// Operators returns every operator with a live record.
func (s *Staker) Operators() ([]types.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.Operators()
}

// IsAuthorized returns whether the operator's authorizer approved the contract.
func (s *Staker) IsAuthorized(operator, contract types.Address) (bool, error) {
	rec, err := s.Get(operator)
	if err != nil {
		return false, err
	}
	return !rec.IsEmpty() && rec.IsAuthorized(contract), nil
}

// EligibleStake returns the stake the operator can use on the contract at
// now: the full amount once active and authorized, otherwise zero.
func (s *Staker) EligibleStake(operator, contract types.Address, now uint64) (*big.Int, error) {
	rec, err := s.Get(operator)
	if err != nil {
		return nil, err
	}
	if rec.Status(now, s.params.InitializationPeriod) != record.StatusActive || !rec.IsAuthorized(contract) {
		return new(big.Int), nil
	}
	return rec.Amount(), nil
}

//
// Transitions
//

// Delegate creates a stake for the operator. The operator slot must be free,
// i.e. never used, cancelled or recovered.
func (s *Staker) Delegate(req DelegateRequest, now uint64) error {
	logger.Debug("delegating", "operator", req.Operator, "owner", req.Owner, "amount", types.WholeTokens(req.Amount), "now", now)

	ev, err := s.locked(func() (*Event, error) {
		return s.delegate(req, now)
	})
	if err != nil {
		logger.Info("delegate failed", "operator", req.Operator, "error", err)
		s.failed("delegate", err)
		return err
	}

	logger.Info("delegated", "operator", req.Operator, "amount", types.WholeTokens(req.Amount))
	return s.done(ev)
}

func (s *Staker) delegate(req DelegateRequest, now uint64) (*Event, error) {
	if req.Operator.IsZero() || req.Owner.IsZero() {
		return nil, reverts.New(reverts.CodeInvalidState, "operator and owner required")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, reverts.New(reverts.CodeInsufficientStake, "stake amount must be positive")
	}

	prev, err := s.repo.Get(req.Operator)
	if err != nil {
		return nil, err
	}
	status := prev.Status(now, s.params.InitializationPeriod)
	if status != record.StatusUninitialized && status != record.StatusRecovered {
		return nil, reverts.New(reverts.CodeInvalidState, "operator already in use",
			"operator", req.Operator, "status", status)
	}
	if minimum := s.schedule.MinimumStake(now); req.Amount.Cmp(minimum) < 0 {
		return nil, reverts.New(reverts.CodeInsufficientStake, "stake below minimum",
			"amount", req.Amount, "required", minimum)
	}

	// the recovered record stays readable in the history
	if !prev.IsEmpty() {
		if err := s.repo.Archive(prev); err != nil {
			return nil, err
		}
	}

	beneficiary, authorizer := req.Beneficiary, req.Authorizer
	if beneficiary.IsZero() {
		beneficiary = req.Owner
	}
	if authorizer.IsZero() {
		authorizer = req.Owner
	}
	rec := record.New(req.Operator, req.Owner, beneficiary, authorizer, req.Amount, now)
	if req.Grant != nil {
		rec.WithGrant(*req.Grant)
	}
	if err := s.repo.Put(rec); err != nil {
		return nil, err
	}
	metricLockedStakeGauge().Add(types.WholeTokens(req.Amount).Int64())

	return &Event{
		Kind:     KindDelegated,
		Operator: req.Operator,
		Owner:    req.Owner,
		Caller:   req.Owner,
		Amount:   rec.Amount(),
		Time:     now,
		Grant:    rec.Grant(),
	}, nil
}

// CancelStake discards a stake still in its initialization period and
// returns the released amount. The slot is free immediately.
func (s *Staker) CancelStake(operator, caller types.Address, now uint64) (*big.Int, error) {
	logger.Debug("cancelling stake", "operator", operator, "caller", caller, "now", now)

	ev, err := s.locked(func() (*Event, error) {
		rec, err := s.live(operator, now)
		if err != nil {
			return nil, err
		}
		if err := s.checkPermission(OpCancel, rec, caller); err != nil {
			return nil, err
		}
		switch status := rec.Status(now, s.params.InitializationPeriod); status {
		case record.StatusInitializing:
		case record.StatusActive:
			return nil, reverts.New(reverts.CodeWindowClosed, "initialization period is over",
				"operator", operator, "createdAt", rec.CreatedAt(), "initializationPeriod", s.params.InitializationPeriod, "now", now)
		default:
			return nil, reverts.New(reverts.CodeInvalidState, "stake can not be cancelled",
				"operator", operator, "status", status)
		}

		rec.Cancel()
		if err := s.repo.Archive(rec); err != nil {
			return nil, err
		}
		metricLockedStakeGauge().Add(-types.WholeTokens(rec.Amount()).Int64())

		return &Event{
			Kind:     KindCancelled,
			Operator: operator,
			Owner:    rec.Owner(),
			Caller:   caller,
			Amount:   rec.Amount(),
			Time:     now,
			Grant:    rec.Grant(),
		}, nil
	})
	if err != nil {
		logger.Info("cancel stake failed", "operator", operator, "error", err)
		s.failed("cancel", err)
		return nil, err
	}

	logger.Info("cancelled stake", "operator", operator, "amount", types.WholeTokens(ev.Amount))
	return ev.Amount, s.done(ev)
}

// Undelegate starts the undelegation period of an active stake.
func (s *Staker) Undelegate(operator, caller types.Address, now uint64) error {
	logger.Debug("undelegating", "operator", operator, "caller", caller, "now", now)

	ev, err := s.locked(func() (*Event, error) {
		rec, err := s.live(operator, now)
		if err != nil {
			return nil, err
		}
		if err := s.checkPermission(OpUndelegate, rec, caller); err != nil {
			return nil, err
		}
		switch status := rec.Status(now, s.params.InitializationPeriod); status {
		case record.StatusActive:
		case record.StatusUndelegating, record.StatusRecovered:
			return nil, reverts.New(reverts.CodeAlreadyUndelegating, "stake already undelegated",
				"operator", operator, "status", status, "undelegatedAt", *rec.UndelegatedAt())
		default:
			return nil, reverts.New(reverts.CodeInvalidState, "stake is not active",
				"operator", operator, "status", status, "activeAt", saturatingAdd(rec.CreatedAt(), s.params.InitializationPeriod), "now", now)
		}

		rec.Undelegate(now)
		if err := s.repo.Put(rec); err != nil {
			return nil, err
		}

		return &Event{
			Kind:     KindUndelegated,
			Operator: operator,
			Owner:    rec.Owner(),
			Caller:   caller,
			Amount:   rec.Amount(),
			Time:     now,
			Grant:    rec.Grant(),
		}, nil
	})
	if err != nil {
		logger.Info("undelegate failed", "operator", operator, "error", err)
		s.failed("undelegate", err)
		return err
	}

	logger.Info("undelegated", "operator", operator, "recoverableAt", saturatingAdd(now, s.params.UndelegationPeriod))
	return s.done(ev)
}

// RecoverStake releases an undelegated stake to its owner once the
// undelegation period has elapsed. Anyone may call it.
func (s *Staker) RecoverStake(operator, caller types.Address, now uint64) (*big.Int, error) {
	logger.Debug("recovering stake", "operator", operator, "caller", caller, "now", now)

	ev, err := s.locked(func() (*Event, error) {
		rec, err := s.repo.Get(operator)
		if err != nil {
			return nil, err
		}
		if status := rec.Status(now, s.params.InitializationPeriod); status != record.StatusUndelegating {
			return nil, reverts.New(reverts.CodeNoUndelegationInFlight, "no undelegation in flight",
				"operator", operator, "status", status)
		}
		if err := s.checkPermission(OpRecover, rec, caller); err != nil {
			return nil, err
		}
		if !rec.Recoverable(now, s.params.UndelegationPeriod) {
			return nil, reverts.New(reverts.CodeWindowNotElapsed, "undelegation period has not elapsed",
				"operator", operator, "undelegatedAt", *rec.UndelegatedAt(), "undelegationPeriod", s.params.UndelegationPeriod, "now", now)
		}

		rec.Recover(now)
		if err := s.repo.Put(rec); err != nil {
			return nil, err
		}
		metricLockedStakeGauge().Add(-types.WholeTokens(rec.Amount()).Int64())

		return &Event{
			Kind:     KindRecovered,
			Operator: operator,
			Owner:    rec.Owner(),
			Caller:   caller,
			Amount:   rec.Amount(),
			Time:     now,
			Grant:    rec.Grant(),
		}, nil
	})
	if err != nil {
		logger.Info("recover stake failed", "operator", operator, "error", err)
		s.failed("recover", err)
		return nil, err
	}

	logger.Info("recovered stake", "operator", operator, "owner", ev.Owner, "amount", types.WholeTokens(ev.Amount))
	return ev.Amount, s.done(ev)
}

// AuthorizeOperatorContract lets the authorizer approve a contract to use
// the operator's stake.
func (s *Staker) AuthorizeOperatorContract(operator, caller, contract types.Address, now uint64) error {
	logger.Debug("authorizing operator contract", "operator", operator, "caller", caller, "contract", contract)

	ev, err := s.locked(func() (*Event, error) {
		rec, err := s.live(operator, now)
		if err != nil {
			return nil, err
		}
		if err := s.checkPermission(OpAuthorize, rec, caller); err != nil {
			return nil, err
		}
		if status := rec.Status(now, s.params.InitializationPeriod); status == record.StatusRecovered {
			return nil, reverts.New(reverts.CodeInvalidState, "stake already recovered", "operator", operator)
		}
		if !rec.Authorize(contract) {
			// already authorized, nothing to emit
			return nil, nil
		}
		if err := s.repo.Put(rec); err != nil {
			return nil, err
		}

		return &Event{
			Kind:     KindAuthorized,
			Operator: operator,
			Owner:    rec.Owner(),
			Caller:   caller,
			Amount:   rec.Amount(),
			Time:     now,
			Grant:    rec.Grant(),
			Contract: &contract,
		}, nil
	})
	if err != nil {
		logger.Info("authorize operator contract failed", "operator", operator, "error", err)
		s.failed("authorize", err)
		return err
	}

	logger.Info("authorized operator contract", "operator", operator, "contract", contract)
	return s.done(ev)
}

// live returns the live record of the operator, failing when there is none.
func (s *Staker) live(operator types.Address, now uint64) (*record.Record, error) {
	rec, err := s.repo.Get(operator)
	if err != nil {
		return nil, err
	}
	if rec.Status(now, s.params.InitializationPeriod) == record.StatusUninitialized {
		return nil, reverts.New(reverts.CodeInvalidState, "no stake for operator", "operator", operator)
	}
	return rec, nil
}

func (s *Staker) rolesOf(rec *record.Record, caller types.Address) Role {
	roles := RoleOf(rec, caller)
	if grant := rec.Grant(); grant != nil && s.grantees != nil {
		if grantee, ok := s.grantees.GranteeOf(*grant); ok && grantee == caller {
			roles |= RoleGrantee
		}
	}
	return roles
}

func (s *Staker) checkPermission(op Operation, rec *record.Record, caller types.Address) error {
	roles := s.rolesOf(rec, caller)
	if !Permitted(op, roles) {
		return reverts.New(reverts.CodeNotPermitted, "caller not permitted",
			"operation", op, "caller", caller, "roles", roles, "operator", rec.Operator())
	}
	return nil
}

// locked runs fn under the transition lock and hands the event ordering over
// to the emit lock before releasing it.
func (s *Staker) locked(fn func() (*Event, error)) (*Event, error) {
	s.mu.Lock()
	ev, err := fn()
	if err != nil || ev == nil {
		s.mu.Unlock()
		return ev, err
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	return ev, nil
}

// done emits ev and releases the emit lock taken by locked.
func (s *Staker) done(ev *Event) error {
	if ev == nil {
		return nil
	}
	defer s.emitMu.Unlock()

	metricTransitionCounter().AddWithLabel(1, map[string]string{"kind": string(ev.Kind)})
	s.emit(ev)
	return nil
}

func (s *Staker) failed(op string, err error) {
	code := "internal"
	if reverts.IsRevertErr(err) {
		code = reverts.CodeOf(err).String()
	}
	metricFailureCounter().AddWithLabel(1, map[string]string{"op": op, "code": code})
}

// initMetrics seeds the locked stake gauge from the stored records.
func (s *Staker) initMetrics() error {
	ops, err := s.repo.Operators()
	if err != nil {
		return errors.Wrap(err, "load operators")
	}
	total := new(big.Int)
	for _, op := range ops {
		rec, err := s.repo.Get(op)
		if err != nil {
			return errors.Wrap(err, "load record")
		}
		total.Add(total, rec.Locked())
	}
	metricLockedStakeGauge().Set(types.WholeTokens(total).Int64())
	return nil
}

// saturatingAdd returns t+period, capped at the largest representable time.
func saturatingAdd(t, period uint64) uint64 {
	if t > math.MaxUint64-period {
		return math.MaxUint64
	}
	return t + period
}
