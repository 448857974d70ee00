// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakedash/stakedash/api/events"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/test/datagen"
	"github.com/stakedash/stakedash/test/teststaker"
)

func initServer(t *testing.T, origins []string) (*teststaker.Env, *Subscriptions, *httptest.Server) {
	env := teststaker.New(t)
	subs := New(env.Staker, origins)
	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return env, subs, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events" + query
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *events.Event {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return &ev
}

func waitSubscribed(t *testing.T, subs *Subscriptions, n int) {
	require.Eventually(t, func() bool { return subs.Active() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribeEvents(t *testing.T) {
	env, subs, ts := initServer(t, nil)
	conn := dial(t, ts, "")
	waitSubscribed(t, subs, 1)

	owner := datagen.RandAddress()
	operator := env.Delegate(t, owner)

	ev := readEvent(t, conn)
	assert.Equal(t, staker.KindDelegated, ev.Kind)
	assert.Equal(t, operator, ev.Operator)
	assert.Equal(t, owner, ev.Owner)
	assert.Zero(t, ev.Seq)

	_, err := env.Staker.CancelStake(operator, owner, env.Clock.Now())
	require.NoError(t, err)
	ev = readEvent(t, conn)
	assert.Equal(t, staker.KindCancelled, ev.Kind)
	assert.Equal(t, operator, ev.Operator)
}

func TestSubscribeEvents_Filter(t *testing.T) {
	env, subs, ts := initServer(t, nil)
	owner := datagen.RandAddress()
	watched := env.Delegate(t, owner)

	conn := dial(t, ts, "?operator="+watched.String()+"&kind=cancelled")
	waitSubscribed(t, subs, 1)

	// neither the other operator nor the delegated kind passes the filter
	other := env.Delegate(t, owner)
	_, err := env.Staker.CancelStake(other, owner, env.Clock.Now())
	require.NoError(t, err)
	_, err = env.Staker.CancelStake(watched, owner, env.Clock.Now())
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, staker.KindCancelled, ev.Kind)
	assert.Equal(t, watched, ev.Operator)
}

func TestSubscribeEvents_BadQuery(t *testing.T) {
	_, _, ts := initServer(t, nil)
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events?operator=0xzz"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubscribeEvents_Origin(t *testing.T) {
	_, _, ts := initServer(t, []string{"https://allowed.example"})
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/subscriptions/events"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(u, header)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://allowed.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}

func TestSubscribeEvents_PeerLeaves(t *testing.T) {
	_, subs, ts := initServer(t, nil)
	conn := dial(t, ts, "")
	waitSubscribed(t, subs, 1)

	require.NoError(t, conn.Close())
	waitSubscribed(t, subs, 0)
}

func TestSubscriptions_Close(t *testing.T) {
	_, subs, ts := initServer(t, nil)
	conn := dial(t, ts, "")
	waitSubscribed(t, subs, 1)

	subs.Close()
	assert.Equal(t, 0, subs.Active())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error %v", err)
}

func TestEventFilter_Match(t *testing.T) {
	operator := datagen.RandAddress()
	ev := &staker.Event{Kind: staker.KindUndelegated, Operator: operator}

	assert.True(t, (&EventFilter{}).match(ev))
	assert.True(t, (&EventFilter{Operator: &operator}).match(ev))
	other := datagen.RandAddress()
	assert.False(t, (&EventFilter{Operator: &other}).match(ev))
	assert.True(t, (&EventFilter{Kinds: map[staker.Kind]bool{staker.KindUndelegated: true}}).match(ev))
	assert.False(t, (&EventFilter{Kinds: map[staker.Kind]bool{staker.KindRecovered: true}}).match(ev))
}
