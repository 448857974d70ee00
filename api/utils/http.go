// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/staker/reverts"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

// HTTPError create an error with http status code.
func HTTPError(cause error, status int) error {
	return &httpError{
		cause:  cause,
		status: status,
	}
}

// BadRequest convenience method to create http bad request error.
func BadRequest(cause error) error {
	return HTTPError(cause, http.StatusBadRequest)
}

// Forbidden convenience method to create http forbidden error.
func Forbidden(cause error) error {
	return HTTPError(cause, http.StatusForbidden)
}

// NotFound convenience method to create http not found error.
func NotFound(cause error) error {
	return HTTPError(cause, http.StatusNotFound)
}

var revertStatus = map[reverts.Code]int{
	reverts.CodeNotPermitted:           http.StatusForbidden,
	reverts.CodeInvalidState:           http.StatusConflict,
	reverts.CodeAlreadyUndelegating:    http.StatusConflict,
	reverts.CodeNoUndelegationInFlight: http.StatusConflict,
	reverts.CodeOperatorInUse:          http.StatusConflict,
	reverts.CodeWindowClosed:           http.StatusConflict,
	reverts.CodeWindowNotElapsed:       http.StatusTooEarly,
	reverts.CodeInsufficientStake:      http.StatusBadRequest,
	reverts.CodeInsufficientBalance:    http.StatusBadRequest,
	reverts.CodeInvalidConfig:          http.StatusBadRequest,
	reverts.CodeNotFound:               http.StatusNotFound,
}

// StatusOf returns the http status an error is responded with.
func StatusOf(err error) int {
	var he *httpError
	if errors.As(err, &he) {
		return he.status
	}
	if reverts.IsRevertErr(err) {
		if status, ok := revertStatus[reverts.CodeOf(err)]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// HandlerFunc like http.HandlerFunc, bu it returns an error.
// The error is responded with the status from StatusOf.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// WrapHandlerFunc convert HandlerFunc to http.HandlerFunc.
func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			http.Error(w, err.Error(), StatusOf(err))
		}
	}
}

// content types
const (
	JSONContentType = "application/json; charset=utf-8"
)

// ParseJSON parse a JSON object using strict mode.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON response an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}

// M shortcut for type map[string]any.
type M map[string]any
