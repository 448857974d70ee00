// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies why a staking operation was refused.
type Code uint8

const (
	CodeUnknown Code = iota
	CodeInvalidState
	CodeInsufficientStake
	CodeNotPermitted
	CodeWindowClosed
	CodeWindowNotElapsed
	CodeAlreadyUndelegating
	CodeNoUndelegationInFlight
	CodeOperatorInUse
	CodeInvalidConfig
	CodeNotFound
	CodeInsufficientBalance
)

var codeNames = map[Code]string{
	CodeUnknown:                "Unknown",
	CodeInvalidState:           "InvalidState",
	CodeInsufficientStake:      "InsufficientStake",
	CodeNotPermitted:           "NotPermitted",
	CodeWindowClosed:           "WindowClosed",
	CodeWindowNotElapsed:       "WindowNotElapsed",
	CodeAlreadyUndelegating:    "AlreadyUndelegating",
	CodeNoUndelegationInFlight: "NoUndelegationInFlight",
	CodeOperatorInUse:          "OperatorInUse",
	CodeInvalidConfig:          "InvalidConfig",
	CodeNotFound:               "NotFound",
	CodeInsufficientBalance:    "InsufficientBalance",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}

// Sentinels to match with errors.Is.
var (
	ErrInvalidState           = &ErrRevert{code: CodeInvalidState}
	ErrInsufficientStake      = &ErrRevert{code: CodeInsufficientStake}
	ErrNotPermitted           = &ErrRevert{code: CodeNotPermitted}
	ErrWindowClosed           = &ErrRevert{code: CodeWindowClosed}
	ErrWindowNotElapsed       = &ErrRevert{code: CodeWindowNotElapsed}
	ErrAlreadyUndelegating    = &ErrRevert{code: CodeAlreadyUndelegating}
	ErrNoUndelegationInFlight = &ErrRevert{code: CodeNoUndelegationInFlight}
	ErrOperatorInUse          = &ErrRevert{code: CodeOperatorInUse}
	ErrInvalidConfig          = &ErrRevert{code: CodeInvalidConfig}
	ErrNotFound               = &ErrRevert{code: CodeNotFound}
	ErrInsufficientBalance    = &ErrRevert{code: CodeInsufficientBalance}
)

// ErrRevert is a refused operation. It is never transient: retrying the same
// call only succeeds after time has passed or with a different caller.
type ErrRevert struct {
	code    Code
	message string
	ctx     []any
}

// New creates a revert with a message and key/value context,
// e.g. New(CodeWindowClosed, "initialization period is over", "operator", op).
func New(code Code, message string, ctx ...any) *ErrRevert {
	return &ErrRevert{
		code:    code,
		message: message,
		ctx:     ctx,
	}
}

func (e *ErrRevert) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.code.String()
	}
	if len(e.ctx) == 0 {
		return msg
	}

	var sb strings.Builder
	sb.WriteString(msg)
	sb.WriteString(" (")
	for i := 0; i < len(e.ctx); i += 2 {
		if i > 0 {
			sb.WriteString(", ")
		}
		if i+1 < len(e.ctx) {
			fmt.Fprintf(&sb, "%v=%v", e.ctx[i], e.ctx[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", e.ctx[i])
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// Code returns the classification of the revert.
func (e *ErrRevert) Code() Code {
	return e.code
}

// Message returns the message without context.
func (e *ErrRevert) Message() string {
	return e.message
}

// Context returns the key/value pairs attached to the revert.
func (e *ErrRevert) Context() []any {
	return append([]any(nil), e.ctx...)
}

// Is matches any revert carrying the same code.
func (e *ErrRevert) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.code == e.code
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// CodeOf returns the code of the revert wrapped in err, or CodeUnknown.
func CodeOf(err error) Code {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.code
	}
	return CodeUnknown
}
