// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grant

import (
	"math"
	"math/big"
	"sync"

	"github.com/stakedash/stakedash/kv"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/staker/reverts"
	"github.com/stakedash/stakedash/types"
)

var logger = log.WithContext("pkg", "grant")

// Staking is the lifecycle manager grants are staked through.
type Staking interface {
	Delegate(req staker.DelegateRequest, now uint64) error
	CancelStake(operator, caller types.Address, now uint64) (*big.Int, error)
	Undelegate(operator, caller types.Address, now uint64) error
	RecoverStake(operator, caller types.Address, now uint64) (*big.Int, error)
	Get(operator types.Address) (*record.Record, error)
}

// CreateRequest describes a new grant.
type CreateRequest struct {
	Grantor   types.Address
	Grantee   types.Address
	Amount    *big.Int
	Start     uint64
	Cliff     uint64
	Duration  uint64
	Revocable bool
}

// StakeRequest describes a delegation of grant tokens.
type StakeRequest struct {
	GrantID     uint64
	Caller      types.Address
	Contract    types.Address
	Operator    types.Address
	Beneficiary types.Address
	Authorizer  types.Address
	Amount      *big.Int
}

// Manager holds grants and stakes them on behalf of their grantees. It is the
// owner of every stake record it creates.
type Manager struct {
	address types.Address // identity used as the stake owner
	owner   types.Address // may authorize staking contracts

	mu        sync.Mutex
	storage   *storage
	contracts map[types.Address]Staking
}

// New creates a manager acting as address on the staking contracts.
func New(db kv.GetPutter, address, owner types.Address) *Manager {
	return &Manager{
		address:   address,
		owner:     owner,
		storage:   &storage{db: db},
		contracts: make(map[types.Address]Staking),
	}
}

// Address returns the identity the manager stakes as.
func (m *Manager) Address() types.Address {
	return m.address
}

// AuthorizeStakingContract allows grants to be staked through s, known as addr.
func (m *Manager) AuthorizeStakingContract(caller, addr types.Address, s Staking) error {
	if caller != m.owner {
		return reverts.New(reverts.CodeNotPermitted, "only the owner can authorize staking contracts", "caller", caller)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.contracts[addr] = s
	logger.Info("authorized staking contract", "contract", addr)
	return nil
}

// GranteeOf returns the grantee of a grant. It reads the store directly and
// is safe to call while a manager operation is in progress.
func (m *Manager) GranteeOf(id uint64) (types.Address, bool) {
	g, err := m.storage.getGrant(id)
	if err != nil || g == nil {
		return types.Address{}, false
	}
	return g.Grantee(), true
}

// CreateGrant registers a grant and returns its id.
func (m *Manager) CreateGrant(req CreateRequest) (uint64, error) {
	if req.Grantee.IsZero() {
		return 0, reverts.New(reverts.CodeInvalidConfig, "grantee required")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return 0, reverts.New(reverts.CodeInvalidConfig, "grant amount must be positive")
	}
	if req.Duration == 0 || req.Cliff > req.Duration {
		return 0, reverts.New(reverts.CodeInvalidConfig, "invalid unlocking schedule",
			"cliff", req.Cliff, "duration", req.Duration)
	}
	if req.Start > math.MaxUint64-req.Duration {
		return 0, reverts.New(reverts.CodeInvalidConfig, "unlocking ends past the time range",
			"start", req.Start, "duration", req.Duration)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.storage.nextID()
	if err != nil {
		return 0, err
	}
	g := &Grant{body: &body{
		ID:        id,
		Grantor:   req.Grantor,
		Grantee:   req.Grantee,
		Amount:    types.Copy(req.Amount),
		Start:     req.Start,
		Cliff:     req.Cliff,
		Duration:  req.Duration,
		Revocable: req.Revocable,
		Withdrawn: new(big.Int),
		Staked:    new(big.Int),
	}}
	if err := m.storage.setGrant(g); err != nil {
		return 0, err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "create"})
	logger.Info("created grant", "id", id, "grantee", req.Grantee, "amount", types.WholeTokens(req.Amount))
	return id, nil
}

// Grant returns the grant with id.
func (m *Manager) Grant(id uint64) (*Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.grant(id)
}

func (m *Manager) grant(id uint64) (*Grant, error) {
	g, err := m.storage.getGrant(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, reverts.New(reverts.CodeNotFound, "grant not found", "id", id)
	}
	return g, nil
}

// Stake delegates grant tokens to an operator. Only the grantee can stake,
// and a grant backs at most one live stake at a time.
func (m *Manager) Stake(req StakeRequest, now uint64) error {
	logger.Debug("staking grant", "id", req.GrantID, "operator", req.Operator, "amount", types.WholeTokens(req.Amount))

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.stake(req, now)
	if err != nil {
		logger.Info("stake grant failed", "id", req.GrantID, "error", err)
		return err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "stake"})
	logger.Info("staked grant", "id", req.GrantID, "operator", req.Operator)
	return nil
}

func (m *Manager) stake(req StakeRequest, now uint64) error {
	g, err := m.grant(req.GrantID)
	if err != nil {
		return err
	}
	if req.Caller != g.Grantee() {
		return reverts.New(reverts.CodeNotPermitted, "only grantee of the grant can stake it",
			"id", req.GrantID, "caller", req.Caller)
	}
	s, ok := m.contracts[req.Contract]
	if !ok {
		return reverts.New(reverts.CodeNotPermitted, "staking contract is not authorized", "contract", req.Contract)
	}
	if err := m.reconcile(g); err != nil {
		return err
	}
	if op := g.Operator(); op != nil {
		return reverts.New(reverts.CodeOperatorInUse, "grant already staked",
			"id", req.GrantID, "operator", *op)
	}
	if err := m.reconcileOperator(req.Operator); err != nil {
		return err
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return reverts.New(reverts.CodeInsufficientStake, "stake amount must be positive")
	}
	available, err := m.available(g)
	if err != nil {
		return err
	}
	if req.Amount.Cmp(available) > 0 {
		return reverts.New(reverts.CodeInsufficientBalance, "amount exceeds available grant balance",
			"id", req.GrantID, "amount", req.Amount, "available", available)
	}

	beneficiary, authorizer := req.Beneficiary, req.Authorizer
	if beneficiary.IsZero() {
		beneficiary = g.Grantee()
	}
	if authorizer.IsZero() {
		authorizer = g.Grantee()
	}
	id := g.ID()
	if err := s.Delegate(staker.DelegateRequest{
		Operator:    req.Operator,
		Owner:       m.address,
		Beneficiary: beneficiary,
		Authorizer:  authorizer,
		Amount:      req.Amount,
		Grant:       &id,
	}, now); err != nil {
		return err
	}

	g.link(req.Operator, req.Contract, req.Amount, now)
	if err := m.storage.setGrant(g); err != nil {
		return err
	}
	return m.storage.setOperator(req.Operator, id)
}

// CancelStake cancels a grant stake still in its initialization period.
func (m *Manager) CancelStake(operator, caller types.Address, now uint64) (*big.Int, error) {
	logger.Debug("cancelling grant stake", "operator", operator, "caller", caller)

	m.mu.Lock()
	defer m.mu.Unlock()

	g, s, err := m.linked(operator)
	if err != nil {
		return nil, err
	}
	if caller != g.Grantee() && caller != operator {
		return nil, reverts.New(reverts.CodeNotPermitted, "only operator or grantee can cancel the delegation",
			"operator", operator, "caller", caller)
	}
	amount, err := s.CancelStake(operator, m.address, now)
	if err != nil {
		logger.Info("cancel grant stake failed", "operator", operator, "error", err)
		return nil, err
	}
	if err := m.release(g); err != nil {
		return nil, err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "cancel"})
	logger.Info("cancelled grant stake", "id", g.ID(), "operator", operator)
	return amount, nil
}

// Undelegate starts the undelegation of a grant stake.
func (m *Manager) Undelegate(operator, caller types.Address, now uint64) error {
	logger.Debug("undelegating grant stake", "operator", operator, "caller", caller)

	m.mu.Lock()
	defer m.mu.Unlock()

	g, s, err := m.linked(operator)
	if err != nil {
		return err
	}
	if caller != g.Grantee() && caller != operator {
		return reverts.New(reverts.CodeNotPermitted, "only operator or grantee can undelegate",
			"operator", operator, "caller", caller)
	}
	if err := s.Undelegate(operator, m.address, now); err != nil {
		logger.Info("undelegate grant stake failed", "operator", operator, "error", err)
		return err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "undelegate"})
	logger.Info("undelegated grant stake", "id", g.ID(), "operator", operator)
	return nil
}

// RecoverStake recovers a grant stake and returns the amount back in the
// grant. A stake already recovered on the staking contract directly is
// reconciled without error.
func (m *Manager) RecoverStake(operator, caller types.Address, now uint64) (*big.Int, error) {
	logger.Debug("recovering grant stake", "operator", operator, "caller", caller)

	m.mu.Lock()
	defer m.mu.Unlock()

	g, s, err := m.linked(operator)
	if err != nil {
		return nil, err
	}
	amount := g.Staked()

	current, err := m.current(g, s)
	if err != nil {
		return nil, err
	}
	if current != nil && current.RecoveredAt() == nil {
		if _, err := s.RecoverStake(operator, caller, now); err != nil {
			logger.Info("recover grant stake failed", "operator", operator, "error", err)
			return nil, err
		}
	} else {
		logger.Debug("grant stake released outside the grant", "id", g.ID(), "operator", operator)
	}

	if err := m.release(g); err != nil {
		return nil, err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "recover"})
	logger.Info("recovered grant stake", "id", g.ID(), "operator", operator, "amount", types.WholeTokens(amount))
	return amount, nil
}

// AvailableToStake returns the principal neither withdrawn nor locked in the
// grant's live stake. Stakes released directly on the staking contract count
// as available.
func (m *Manager) AvailableToStake(id uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grant(id)
	if err != nil {
		return nil, err
	}
	return m.available(g)
}

// Unlocked returns the vested part of the grant at now.
func (m *Manager) Unlocked(id, now uint64) (*big.Int, error) {
	g, err := m.Grant(id)
	if err != nil {
		return nil, err
	}
	return g.Unlocked(now), nil
}

// Withdrawable returns what the grantee can withdraw at now: the unlocked,
// not yet withdrawn part that is not locked in a stake.
func (m *Manager) Withdrawable(id, now uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grant(id)
	if err != nil {
		return nil, err
	}
	return m.withdrawable(g, now)
}

// Withdraw releases the withdrawable amount to the grantee.
func (m *Manager) Withdraw(id uint64, caller types.Address, now uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grant(id)
	if err != nil {
		return nil, err
	}
	if caller != g.Grantee() {
		return nil, reverts.New(reverts.CodeNotPermitted, "only grantee can withdraw", "id", id, "caller", caller)
	}
	amount, err := m.withdrawable(g, now)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, reverts.New(reverts.CodeInsufficientBalance, "nothing to withdraw", "id", id)
	}
	g.body.Withdrawn = new(big.Int).Add(g.body.Withdrawn, amount)
	if err := m.storage.setGrant(g); err != nil {
		return nil, err
	}
	metricGrantCounter().AddWithLabel(1, map[string]string{"op": "withdraw"})
	logger.Info("withdrew grant", "id", id, "amount", types.WholeTokens(amount))
	return amount, nil
}

func (m *Manager) withdrawable(g *Grant, now uint64) (*big.Int, error) {
	available, err := m.available(g)
	if err != nil {
		return nil, err
	}
	amount := g.Unlocked(now)
	amount.Sub(amount, g.body.Withdrawn)
	if amount.Cmp(available) > 0 {
		amount = available
	}
	if amount.Sign() < 0 {
		amount.SetInt64(0)
	}
	return amount, nil
}

func (m *Manager) available(g *Grant) (*big.Int, error) {
	locked, err := m.locked(g)
	if err != nil {
		return nil, err
	}
	available := g.Amount()
	available.Sub(available, g.body.Withdrawn)
	available.Sub(available, locked)
	if available.Sign() < 0 {
		available.SetInt64(0)
	}
	return available, nil
}

// locked reads the amount held by the grant's stake from the staking contract.
func (m *Manager) locked(g *Grant) (*big.Int, error) {
	if g.Operator() == nil {
		return new(big.Int), nil
	}
	s, ok := m.contracts[g.StakingContract()]
	if !ok {
		return nil, reverts.New(reverts.CodeInvalidConfig, "staking contract not registered",
			"contract", g.StakingContract())
	}
	current, err := m.current(g, s)
	if err != nil {
		return nil, err
	}
	return current.Locked(), nil
}

// current returns the record created by the grant's stake, nil when the
// operator slot was freed or reused by someone else.
func (m *Manager) current(g *Grant, s Staking) (*record.Record, error) {
	rec, err := s.Get(*g.Operator())
	if err != nil {
		return nil, err
	}
	if rec.IsEmpty() || rec.Grant() == nil || *rec.Grant() != g.ID() ||
		rec.Owner() != m.address || rec.CreatedAt() != g.StakedAt() {
		return nil, nil
	}
	return rec, nil
}

// reconcile drops the stake link once the stake was released, through the
// grant or not.
func (m *Manager) reconcile(g *Grant) error {
	if g.Operator() == nil {
		return nil
	}
	s, ok := m.contracts[g.StakingContract()]
	if !ok {
		return reverts.New(reverts.CodeInvalidConfig, "staking contract not registered",
			"contract", g.StakingContract())
	}
	current, err := m.current(g, s)
	if err != nil {
		return err
	}
	if current == nil || current.RecoveredAt() != nil {
		return m.release(g)
	}
	return nil
}

// reconcileOperator fails when another grant still holds a live stake on
// the operator, and drops its link otherwise.
func (m *Manager) reconcileOperator(operator types.Address) error {
	other, err := m.storage.grantOf(operator)
	if err != nil || other == 0 {
		return err
	}
	g, err := m.grant(other)
	if err != nil {
		return err
	}
	if err := m.reconcile(g); err != nil {
		return err
	}
	if g.Operator() != nil {
		return reverts.New(reverts.CodeOperatorInUse, "operator staked from another grant",
			"operator", operator, "grant", other)
	}
	return nil
}

func (m *Manager) release(g *Grant) error {
	op := g.Operator()
	if op == nil {
		return nil
	}
	g.unlink()
	if err := m.storage.setGrant(g); err != nil {
		return err
	}
	return m.storage.deleteOperator(*op)
}

// linked returns the grant staked to operator and its staking contract.
func (m *Manager) linked(operator types.Address) (*Grant, Staking, error) {
	id, err := m.storage.grantOf(operator)
	if err != nil {
		return nil, nil, err
	}
	if id == 0 {
		return nil, nil, reverts.New(reverts.CodeNotFound, "no grant staked to operator", "operator", operator)
	}
	g, err := m.grant(id)
	if err != nil {
		return nil, nil, err
	}
	s, ok := m.contracts[g.StakingContract()]
	if !ok {
		return nil, nil, reverts.New(reverts.CodeInvalidConfig, "staking contract not registered",
			"contract", g.StakingContract())
	}
	return g, s, nil
}
