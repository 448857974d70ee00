// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staker

import (
	"strings"

	"github.com/stakedash/stakedash/staker/record"
	"github.com/stakedash/stakedash/types"
)

// Role is a set of capacities a caller holds against a stake record.
type Role uint8

const (
	RoleOwner Role = 1 << iota
	RoleAuthorizer
	RoleOperator
	RoleGrantee
	RoleAnyone
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleOwner, "owner"},
	{RoleAuthorizer, "authorizer"},
	{RoleOperator, "operator"},
	{RoleGrantee, "grantee"},
	{RoleAnyone, "anyone"},
}

func (r Role) String() string {
	var names []string
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			names = append(names, rn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Operation is a caller initiated transition.
type Operation uint8

const (
	OpCancel Operation = iota + 1
	OpUndelegate
	OpRecover
	OpAuthorize
)

func (op Operation) String() string {
	switch op {
	case OpCancel:
		return "cancel"
	case OpUndelegate:
		return "undelegate"
	case OpRecover:
		return "recover"
	case OpAuthorize:
		return "authorize"
	default:
		return "unknown"
	}
}

// permitted roles per operation
var permissions = map[Operation]Role{
	OpCancel:     RoleOwner | RoleAuthorizer | RoleOperator | RoleGrantee,
	OpUndelegate: RoleOwner | RoleOperator | RoleGrantee,
	OpRecover:    RoleAnyone,
	OpAuthorize:  RoleAuthorizer,
}

// Permitted reports whether any of roles may perform op.
func Permitted(op Operation, roles Role) bool {
	return permissions[op]&roles != 0
}

// RoleOf derives the roles caller holds against rec. Grantee roles are not
// visible on the record and are added by the staker through its resolver.
func RoleOf(rec *record.Record, caller types.Address) Role {
	roles := RoleAnyone
	if rec.IsEmpty() {
		return roles
	}
	if caller == rec.Owner() {
		roles |= RoleOwner
	}
	if caller == rec.Authorizer() {
		roles |= RoleAuthorizer
	}
	if caller == rec.Operator() {
		roles |= RoleOperator
	}
	return roles
}

// GranteeResolver resolves the grantee of a grant. Implementations are called
// while the staker holds its lock and must not call back into the staker.
type GranteeResolver interface {
	GranteeOf(grantID uint64) (types.Address, bool)
}
