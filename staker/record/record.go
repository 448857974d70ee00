// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package record

import (
	"fmt"
	"io"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakedash/stakedash/types"
)

type Status uint8

const (
	StatusUninitialized = Status(iota) // 0 -> no live record
	StatusInitializing                 // delegated, initialization period running
	StatusActive                       // initialization period elapsed
	StatusUndelegating                 // undelegated, undelegation period running or elapsed
	StatusRecovered                    // tokens released, slot reusable
)

var statusNames = [...]string{
	StatusUninitialized: "uninitialized",
	StatusInitializing:  "initializing",
	StatusActive:        "active",
	StatusUndelegating:  "undelegating",
	StatusRecovered:     "recovered",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Record is the stake delegated to a single operator.
type Record struct {
	body *body
}

type body struct {
	Operator      types.Address // the address performing work with the stake
	Owner         types.Address // the address the tokens are released to
	Beneficiary   types.Address // the address receiving rewards
	Authorizer    types.Address // the address authorizing operator contracts
	Amount        *big.Int      // the delegated amount, fixed for the record's lifetime
	CreatedAt     uint64        // the time of delegation
	UndelegatedAt *uint64       // the time undelegation was requested
	RecoveredAt   *uint64       // the time the tokens were recovered
	Cancelled     bool          // cancelled during initialization, kept in history only
	Grant         *uint64       // the grant the tokens were staked from
	Authorized    []types.Address
}

// stored is the persisted form of body. Optional times are encoded as lists
// of at most one element, so that a zero timestamp survives a round trip.
type stored struct {
	Operator      types.Address
	Owner         types.Address
	Beneficiary   types.Address
	Authorizer    types.Address
	Amount        *big.Int
	CreatedAt     uint64
	UndelegatedAt []uint64
	RecoveredAt   []uint64
	Cancelled     bool
	Grant         []uint64
	Authorized    []types.Address
}

// New creates a record for an operator delegated at createdAt.
func New(operator, owner, beneficiary, authorizer types.Address, amount *big.Int, createdAt uint64) *Record {
	return &Record{
		body: &body{
			Operator:    operator,
			Owner:       owner,
			Beneficiary: beneficiary,
			Authorizer:  authorizer,
			Amount:      types.Copy(amount),
			CreatedAt:   createdAt,
		},
	}
}

// WithGrant links the record to the grant it is staked from.
func (r *Record) WithGrant(id uint64) *Record {
	r.body.Grant = &id
	return r
}

func (r *Record) Operator() types.Address {
	return r.body.Operator
}

func (r *Record) Owner() types.Address {
	return r.body.Owner
}

func (r *Record) Beneficiary() types.Address {
	return r.body.Beneficiary
}

func (r *Record) Authorizer() types.Address {
	return r.body.Authorizer
}

func (r *Record) Amount() *big.Int {
	return types.Copy(r.body.Amount)
}

func (r *Record) CreatedAt() uint64 {
	return r.body.CreatedAt
}

func (r *Record) UndelegatedAt() *uint64 {
	return copyTime(r.body.UndelegatedAt)
}

func (r *Record) RecoveredAt() *uint64 {
	return copyTime(r.body.RecoveredAt)
}

func (r *Record) Cancelled() bool {
	return r.body.Cancelled
}

func (r *Record) Grant() *uint64 {
	return copyTime(r.body.Grant)
}

// Authorized returns the operator contracts the authorizer approved.
func (r *Record) Authorized() []types.Address {
	return slices.Clone(r.body.Authorized)
}

func (r *Record) IsAuthorized(contract types.Address) bool {
	return slices.Contains(r.body.Authorized, contract)
}

// IsEmpty returns whether the entry can be treated as empty.
func (r *Record) IsEmpty() bool {
	return r == nil || r.body == nil || r.body.Amount == nil || r.body.Amount.Sign() == 0
}

// Status computes the status at now. Time driven transitions are never
// stored, they are derived from the timestamps on every read.
func (r *Record) Status(now, initPeriod uint64) Status {
	switch {
	case r.IsEmpty() || r.body.Cancelled:
		return StatusUninitialized
	case r.body.RecoveredAt != nil:
		return StatusRecovered
	case r.body.UndelegatedAt != nil:
		return StatusUndelegating
	case now < r.body.CreatedAt || now-r.body.CreatedAt < initPeriod:
		return StatusInitializing
	default:
		return StatusActive
	}
}

// Recoverable returns whether the undelegation period has elapsed at now.
func (r *Record) Recoverable(now, undelegationPeriod uint64) bool {
	if r.IsEmpty() || r.body.UndelegatedAt == nil || r.body.RecoveredAt != nil {
		return false
	}
	at := *r.body.UndelegatedAt
	return now >= at && now-at >= undelegationPeriod
}

// Locked returns the amount still held by the record at read time.
func (r *Record) Locked() *big.Int {
	if r.IsEmpty() || r.body.Cancelled || r.body.RecoveredAt != nil {
		return new(big.Int)
	}
	return types.Copy(r.body.Amount)
}

// Undelegate marks the undelegation request time.
func (r *Record) Undelegate(now uint64) {
	r.body.UndelegatedAt = &now
}

// Recover marks the recovery time.
func (r *Record) Recover(now uint64) {
	r.body.RecoveredAt = &now
}

// Cancel marks the record as cancelled during initialization.
func (r *Record) Cancel() {
	r.body.Cancelled = true
}

// Authorize adds an operator contract to the authorized set.
func (r *Record) Authorize(contract types.Address) bool {
	if r.IsAuthorized(contract) {
		return false
	}
	r.body.Authorized = append(r.body.Authorized, contract)
	return true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil || r.body == nil {
		return nil
	}
	b := *r.body
	b.Amount = types.Copy(r.body.Amount)
	b.UndelegatedAt = copyTime(r.body.UndelegatedAt)
	b.RecoveredAt = copyTime(r.body.RecoveredAt)
	b.Grant = copyTime(r.body.Grant)
	b.Authorized = slices.Clone(r.body.Authorized)
	return &Record{body: &b}
}

// EncodeRLP implements rlp.Encoder.
func (r *Record) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &stored{
		Operator:      r.body.Operator,
		Owner:         r.body.Owner,
		Beneficiary:   r.body.Beneficiary,
		Authorizer:    r.body.Authorizer,
		Amount:        types.Copy(r.body.Amount),
		CreatedAt:     r.body.CreatedAt,
		UndelegatedAt: toList(r.body.UndelegatedAt),
		RecoveredAt:   toList(r.body.RecoveredAt),
		Cancelled:     r.body.Cancelled,
		Grant:         toList(r.body.Grant),
		Authorized:    r.body.Authorized,
	})
}

// DecodeRLP implements rlp.Decoder.
func (r *Record) DecodeRLP(s *rlp.Stream) error {
	var obj stored
	if err := s.Decode(&obj); err != nil {
		return err
	}
	r.body = &body{
		Operator:      obj.Operator,
		Owner:         obj.Owner,
		Beneficiary:   obj.Beneficiary,
		Authorizer:    obj.Authorizer,
		Amount:        types.Copy(obj.Amount),
		CreatedAt:     obj.CreatedAt,
		UndelegatedAt: fromList(obj.UndelegatedAt),
		RecoveredAt:   fromList(obj.RecoveredAt),
		Cancelled:     obj.Cancelled,
		Grant:         fromList(obj.Grant),
		Authorized:    obj.Authorized,
	}
	return nil
}

func copyTime(t *uint64) *uint64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func toList(t *uint64) []uint64 {
	if t == nil {
		return nil
	}
	return []uint64{*t}
}

func fromList(l []uint64) *uint64 {
	if len(l) == 0 {
		return nil
	}
	v := l[0]
	return &v
}
