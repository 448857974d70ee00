// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grants_test

import (
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/api/grants"
	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/test/datagen"
	"github.com/stakedash/stakedash/test/testhttp"
	"github.com/stakedash/stakedash/test/teststaker"
	"github.com/stakedash/stakedash/types"
)

type testEnv struct {
	*teststaker.Env
	ts      *httptest.Server
	grantee types.Address
	id      uint64
}

func initServer(t *testing.T) *testEnv {
	env := teststaker.New(t)
	router := mux.NewRouter()
	grants.New(env.Grants, env.Clock).Mount(router, "/grants")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	grantee := datagen.RandAddress()
	body, status := testhttp.Post(t, ts.URL+"/grants", &grants.CreateRequest{
		Grantor:  datagen.RandAddress(),
		Grantee:  grantee,
		Amount:   utils.Amount(types.Tokens(200000)),
		Start:    teststaker.ScheduleStart,
		Duration: 1000,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var g grants.Grant
	testhttp.Decode(t, body, &g)

	return &testEnv{Env: env, ts: ts, grantee: grantee, id: g.ID}
}

func (e *testEnv) url(format string, args ...any) string {
	return e.ts.URL + fmt.Sprintf(format, args...)
}

func (e *testEnv) getGrant(t *testing.T) *grants.Grant {
	body, status := testhttp.Get(t, e.url("/grants/%d", e.id))
	require.Equal(t, http.StatusOK, status, string(body))
	var g grants.Grant
	testhttp.Decode(t, body, &g)
	return &g
}

func (e *testEnv) stake(t *testing.T, operator types.Address) {
	body, status := testhttp.Post(t, e.url("/grants/%d/stake", e.id), &grants.StakeRequest{
		Caller:   e.grantee,
		Contract: e.Contract,
		Operator: operator,
		Amount:   utils.Amount(types.Tokens(150000)),
	})
	require.Equal(t, http.StatusOK, status, string(body))
}

func TestGrants_Create(t *testing.T) {
	e := initServer(t)
	g := e.getGrant(t)

	assert.Equal(t, uint64(1), g.ID)
	assert.Equal(t, e.grantee, g.Grantee)
	assert.Equal(t, types.Tokens(200000), (*big.Int)(g.Available))
	assert.Nil(t, g.Operator)

	_, status := testhttp.Get(t, e.url("/grants/%d", 42))
	assert.Equal(t, http.StatusNotFound, status)

	_, status = testhttp.Post(t, e.url("/grants"), &grants.CreateRequest{
		Grantee: datagen.RandAddress(),
		Amount:  utils.Amount(types.Tokens(1)),
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGrants_StakeLifecycle(t *testing.T) {
	e := initServer(t)
	operator := datagen.RandAddress()

	// only the grantee stakes
	_, status := testhttp.Post(t, e.url("/grants/%d/stake", e.id), &grants.StakeRequest{
		Caller:   datagen.RandAddress(),
		Contract: e.Contract,
		Operator: operator,
		Amount:   utils.Amount(types.Tokens(150000)),
	})
	assert.Equal(t, http.StatusForbidden, status)

	e.stake(t, operator)
	g := e.getGrant(t)
	require.NotNil(t, g.Operator)
	assert.Equal(t, operator, *g.Operator)
	assert.Equal(t, types.Tokens(50000), (*big.Int)(g.Available))

	rec, err := e.Staker.Get(operator)
	require.NoError(t, err)
	assert.Equal(t, e.Grants.Address(), rec.Owner())
	assert.Equal(t, e.grantee, rec.Authorizer())

	// one stake per grant
	_, status = testhttp.Post(t, e.url("/grants/%d/stake", e.id), &grants.StakeRequest{
		Caller:   e.grantee,
		Contract: e.Contract,
		Operator: datagen.RandAddress(),
		Amount:   utils.Amount(types.Tokens(10000)),
	})
	assert.Equal(t, http.StatusConflict, status)

	e.Clock.Advance(teststaker.InitializationPeriod + 1)
	body, status := testhttp.Post(t, e.url("/grants/operators/%s/undelegate", operator), &grants.CallerRequest{Caller: e.grantee})
	require.Equal(t, http.StatusOK, status, string(body))

	_, status = testhttp.Post(t, e.url("/grants/operators/%s/recover", operator), &grants.CallerRequest{Caller: e.grantee})
	assert.Equal(t, http.StatusTooEarly, status)

	e.Clock.Advance(teststaker.UndelegationPeriod)
	body, status = testhttp.Post(t, e.url("/grants/operators/%s/recover", operator), &grants.CallerRequest{Caller: e.grantee})
	require.Equal(t, http.StatusOK, status, string(body))
	var recovered grants.AmountResponse
	testhttp.Decode(t, body, &recovered)
	assert.Equal(t, types.Tokens(150000), (*big.Int)(recovered.Amount))

	g = e.getGrant(t)
	assert.Nil(t, g.Operator)
	assert.Equal(t, types.Tokens(200000), (*big.Int)(g.Available))
}

func TestGrants_Cancel(t *testing.T) {
	e := initServer(t)
	operator := datagen.RandAddress()
	e.stake(t, operator)

	_, status := testhttp.Post(t, e.url("/grants/operators/%s/cancel", operator), &grants.CallerRequest{Caller: datagen.RandAddress()})
	assert.Equal(t, http.StatusForbidden, status)

	body, status := testhttp.Post(t, e.url("/grants/operators/%s/cancel", operator), &grants.CallerRequest{Caller: operator})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Nil(t, e.getGrant(t).Operator)

	_, status = testhttp.Post(t, e.url("/grants/operators/%s/cancel", operator), &grants.CallerRequest{Caller: operator})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGrants_Withdraw(t *testing.T) {
	e := initServer(t)

	// nothing unlocked at start
	_, status := testhttp.Post(t, e.url("/grants/%d/withdraw", e.id), &grants.CallerRequest{Caller: e.grantee})
	assert.Equal(t, http.StatusBadRequest, status)

	e.Clock.Advance(500)
	_, status = testhttp.Post(t, e.url("/grants/%d/withdraw", e.id), &grants.CallerRequest{Caller: datagen.RandAddress()})
	assert.Equal(t, http.StatusForbidden, status)

	body, status := testhttp.Post(t, e.url("/grants/%d/withdraw", e.id), &grants.CallerRequest{Caller: e.grantee})
	require.Equal(t, http.StatusOK, status, string(body))
	var withdrawn grants.AmountResponse
	testhttp.Decode(t, body, &withdrawn)
	assert.Equal(t, types.Tokens(100000), (*big.Int)(withdrawn.Amount))

	g := e.getGrant(t)
	assert.Equal(t, types.Tokens(100000), (*big.Int)(g.Withdrawn))
	assert.Equal(t, types.Tokens(100000), (*big.Int)(g.Available))
	assert.Zero(t, (*big.Int)(g.Withdrawable).Sign())
}
