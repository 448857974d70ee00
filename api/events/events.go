// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/eventdb"
	"github.com/stakedash/stakedash/staker"
)

const DefaultLimit = 1000

var kinds = map[staker.Kind]bool{
	staker.KindDelegated:   true,
	staker.KindCancelled:   true,
	staker.KindUndelegated: true,
	staker.KindRecovered:   true,
	staker.KindAuthorized:  true,
}

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, limit uint64) *Events {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Events{
		db,
		limit,
	}
}

func (e *Events) parseFilter(req *http.Request) (*eventdb.Filter, error) {
	query := req.URL.Query()
	filter := &eventdb.Filter{}

	operator, err := utils.AddressQuery(req, "operator")
	if err != nil {
		return nil, err
	}
	filter.Operator = operator

	if s := query.Get("kind"); s != "" {
		for _, k := range strings.Split(s, ",") {
			kind := staker.Kind(strings.TrimSpace(k))
			if !kinds[kind] {
				return nil, utils.BadRequest(fmt.Errorf("kind: unknown kind %q", kind))
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	if query.Get("grant") != "" {
		grant, err := utils.Uint64Query(req, "grant", 0)
		if err != nil {
			return nil, err
		}
		filter.Grant = &grant
	}

	if query.Get("from") != "" || query.Get("to") != "" {
		from, err := utils.Uint64Query(req, "from", 0)
		if err != nil {
			return nil, err
		}
		to, err := utils.Uint64Query(req, "to", math.MaxUint64)
		if err != nil {
			return nil, err
		}
		if from > to {
			return nil, utils.BadRequest(fmt.Errorf("to must be greater than or equal to from"))
		}
		filter.Range = &eventdb.Range{From: from, To: to}
	}

	switch order := eventdb.Order(strings.ToLower(query.Get("order"))); order {
	case "", eventdb.ASC:
		filter.Order = eventdb.ASC
	case eventdb.DESC:
		filter.Order = eventdb.DESC
	default:
		return nil, utils.BadRequest(fmt.Errorf("order: must be asc or desc"))
	}

	offset, err := utils.Uint64Query(req, "offset", 0)
	if err != nil {
		return nil, err
	}
	if offset > math.MaxInt64 {
		return nil, utils.BadRequest(fmt.Errorf("offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	limit, err := utils.Uint64Query(req, "limit", e.limit)
	if err != nil {
		return nil, err
	}
	if limit > e.limit {
		return nil, utils.Forbidden(fmt.Errorf("limit exceeds the maximum allowed value of %d", e.limit))
	}
	filter.Options = &eventdb.Options{Offset: offset, Limit: limit}
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := e.parseFilter(req)
	if err != nil {
		return err
	}
	stored, err := e.db.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	events := make([]*Event, 0, len(stored))
	for _, ev := range stored {
		events = append(events, ConvertStored(ev))
	}
	return utils.WriteJSON(w, events)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
