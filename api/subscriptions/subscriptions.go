// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/api/events"
	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/types"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	queueSize  = 256
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 7) / 10
)

var errSlowConsumer = errors.New("subscriber too slow")

type Subscriptions struct {
	staker   *staker.Staker
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
	active   atomic.Int32
}

// EventFilter selects the live events sent to a subscriber.
type EventFilter struct {
	Operator *types.Address
	Kinds    map[staker.Kind]bool
}

func (f *EventFilter) match(ev *staker.Event) bool {
	if f.Operator != nil && *f.Operator != ev.Operator {
		return false
	}
	return len(f.Kinds) == 0 || f.Kinds[ev.Kind]
}

func New(s *staker.Staker, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		staker: s,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || strings.EqualFold(allowed, origin) {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

func parseFilter(req *http.Request) (*EventFilter, error) {
	operator, err := utils.AddressQuery(req, "operator")
	if err != nil {
		return nil, err
	}
	filter := &EventFilter{Operator: operator}
	if s := req.URL.Query().Get("kind"); s != "" {
		filter.Kinds = make(map[staker.Kind]bool)
		for _, k := range strings.Split(s, ",") {
			filter.Kinds[staker.Kind(strings.TrimSpace(k))] = true
		}
	}
	return filter, nil
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseFilter(req)
	if err != nil {
		return err
	}
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// upgrader already responded
		logger.Debug("upgrade failed", "err", err)
		return nil
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	if err := s.pipe(conn, filter); err != nil {
		logger.Debug("subscription closed", "err", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
	return nil
}

// pipe writes matching events to conn until the peer leaves, the server
// closes or the subscriber falls behind.
func (s *Subscriptions) pipe(conn *websocket.Conn, filter *EventFilter) error {
	ch := make(chan *staker.Event, queueSize)
	sub := s.staker.SubscribeEvents(ch)
	defer sub.Unsubscribe()
	s.active.Add(1)
	defer s.active.Add(-1)

	// forward keeps the feed unblocked whatever the connection speed
	queue := make(chan *staker.Event, queueSize)
	overflow := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		defer close(overflow)
		for {
			select {
			case ev := <-ch:
				if !filter.match(ev) {
					continue
				}
				select {
				case queue <- ev:
				default:
					return
				}
			case <-closed:
				return
			}
		}
	}()
	defer close(closed)

	peerGone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(peerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(events.ConvertLive(ev)); err != nil {
				return err
			}
		case <-overflow:
			return errSlowConsumer
		case err := <-sub.Err():
			return err
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-peerGone:
			return nil
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		}
	}
}

// Active returns the number of connected subscribers.
func (s *Subscriptions) Active() int {
	return int(s.active.Load())
}

// Close closes hijacked connections and waits for their handlers.
func (s *Subscriptions) Close() {
	close(s.done)
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
