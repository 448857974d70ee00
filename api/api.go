// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/stakedash/stakedash/api/doc"
	"github.com/stakedash/stakedash/api/events"
	"github.com/stakedash/stakedash/api/grants"
	"github.com/stakedash/stakedash/api/groups"
	"github.com/stakedash/stakedash/api/schedule"
	"github.com/stakedash/stakedash/api/stakes"
	"github.com/stakedash/stakedash/api/subscriptions"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/dkg"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/grant"
	"github.com/stakedash/stakedash/log"
	"github.com/stakedash/stakedash/staker"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	PprofOn              bool
	EnableReqLogger      bool
	SlowQueriesThreshold time.Duration
	EnableMetrics        bool
	EventsLimit          uint64
}

// Backend holds the services the api serves. Grants, Events and Groups are
// optional, their routes are not mounted when nil.
type Backend struct {
	Staker *staker.Staker
	Grants *grant.Manager
	Events *eventdb.EventDB
	Groups *dkg.Registry
	Clock  clock.Clock
}

// New return api router
func New(b Backend, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	router.PathPrefix("/doc").Handler(
		http.StripPrefix("/doc/", http.FileServer(http.FS(doc.FS))),
	)
	router.Path("/").HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "doc/stakedash.yaml", http.StatusTemporaryRedirect)
		})

	stakes.New(b.Staker, b.Clock).
		Mount(router, "/stakes")
	schedule.New(b.Staker, b.Clock).
		Mount(router, "/schedule")
	if b.Grants != nil {
		grants.New(b.Grants, b.Clock).
			Mount(router, "/grants")
	}
	if b.Events != nil {
		events.New(b.Events, opts.EventsLimit).
			Mount(router, "/events")
	}
	if b.Groups != nil {
		groups.New(b.Groups, b.Clock).
			Mount(router, "/groups")
	}
	subs := subscriptions.New(b.Staker, origins)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}
	router.Use(requestLoggerMiddleware(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold))

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", "x-request-id"}),
		handlers.ExposedHeaders([]string{"x-request-id", "x-stakedash-ver"}),
	)(handler)

	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Stakedash-Ver", doc.Version())
		handler.ServeHTTP(w, req)
	}, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
