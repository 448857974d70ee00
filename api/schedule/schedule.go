// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schedule

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/staker"
)

type Schedule struct {
	Start                uint64                `json:"start"`
	Duration             uint64                `json:"duration"`
	Steps                uint64                `json:"steps"`
	StartValue           *math.HexOrDecimal256 `json:"startValue"`
	EndValue             *math.HexOrDecimal256 `json:"endValue"`
	InitializationPeriod uint64                `json:"initializationPeriod"`
	UndelegationPeriod   uint64                `json:"undelegationPeriod"`
}

type MinimumStake struct {
	At       uint64                `json:"at"`
	Minimum  *math.HexOrDecimal256 `json:"minimum"`
	NextStep *uint64               `json:"nextStep"`
}

type API struct {
	staker *staker.Staker
	clock  clock.Clock
}

func New(s *staker.Staker, clk clock.Clock) *API {
	return &API{
		s,
		clk,
	}
}

func (a *API) handleGetSchedule(w http.ResponseWriter, _ *http.Request) error {
	sched := a.staker.Schedule()
	params := a.staker.Params()
	return utils.WriteJSON(w, &Schedule{
		Start:                sched.Start(),
		Duration:             sched.Duration(),
		Steps:                sched.Steps(),
		StartValue:           utils.Amount(sched.StartValue()),
		EndValue:             utils.Amount(sched.EndValue()),
		InitializationPeriod: params.InitializationPeriod,
		UndelegationPeriod:   params.UndelegationPeriod,
	})
}

func (a *API) handleGetMinimumStake(w http.ResponseWriter, req *http.Request) error {
	at, err := utils.Uint64Query(req, "at", a.clock.Now())
	if err != nil {
		return err
	}
	res := &MinimumStake{
		At:      at,
		Minimum: utils.Amount(a.staker.MinimumStake(at)),
	}
	if next, ok := a.staker.Schedule().NextStep(at); ok {
		res.NextStep = &next
	}
	return utils.WriteJSON(w, res)
}

func (a *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /schedule").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetSchedule))
	sub.Path("/minimum-stake").
		Methods(http.MethodGet).
		Name("GET /schedule/minimum-stake").
		HandlerFunc(utils.WrapHandlerFunc(a.handleGetMinimumStake))
}
