// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package grants

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/grant"
)

type Grants struct {
	manager *grant.Manager
	clock   clock.Clock
}

func New(manager *grant.Manager, clk clock.Clock) *Grants {
	return &Grants{
		manager,
		clk,
	}
}

func (g *Grants) getGrant(id, now uint64) (*Grant, error) {
	gr, err := g.manager.Grant(id)
	if err != nil {
		return nil, err
	}
	available, err := g.manager.AvailableToStake(id)
	if err != nil {
		return nil, err
	}
	withdrawable, err := g.manager.Withdrawable(id, now)
	if err != nil {
		return nil, err
	}
	return convertGrant(gr, now, available, withdrawable), nil
}

func (g *Grants) handleGetGrant(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.Uint64Var(req, "id")
	if err != nil {
		return err
	}
	res, err := g.getGrant(id, g.clock.Now())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, res)
}

func (g *Grants) handleCreateGrant(w http.ResponseWriter, req *http.Request) error {
	var body CreateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := utils.RequireAmount(body.Amount, "amount")
	if err != nil {
		return err
	}
	id, err := g.manager.CreateGrant(grant.CreateRequest{
		Grantor:   body.Grantor,
		Grantee:   body.Grantee,
		Amount:    amount,
		Start:     body.Start,
		Cliff:     body.Cliff,
		Duration:  body.Duration,
		Revocable: body.Revocable,
	})
	if err != nil {
		return err
	}
	res, err := g.getGrant(id, g.clock.Now())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, res)
}

func (g *Grants) handleStake(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.Uint64Var(req, "id")
	if err != nil {
		return err
	}
	var body StakeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := utils.RequireAmount(body.Amount, "amount")
	if err != nil {
		return err
	}
	sr := grant.StakeRequest{
		GrantID:  id,
		Caller:   body.Caller,
		Contract: body.Contract,
		Operator: body.Operator,
		Amount:   amount,
	}
	if body.Beneficiary != nil {
		sr.Beneficiary = *body.Beneficiary
	}
	if body.Authorizer != nil {
		sr.Authorizer = *body.Authorizer
	}
	now := g.clock.Now()
	if err := g.manager.Stake(sr, now); err != nil {
		return err
	}
	res, err := g.getGrant(id, now)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, res)
}

func (g *Grants) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	id, err := utils.Uint64Var(req, "id")
	if err != nil {
		return err
	}
	var body CallerRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := g.manager.Withdraw(id, body.Caller, g.clock.Now())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &AmountResponse{Amount: utils.Amount(amount)})
}

func (g *Grants) handleOperator(op string) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		operator, err := utils.AddressVar(req, "operator")
		if err != nil {
			return err
		}
		var body CallerRequest
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		now := g.clock.Now()
		switch op {
		case "cancel":
			amount, err := g.manager.CancelStake(operator, body.Caller, now)
			if err != nil {
				return err
			}
			return utils.WriteJSON(w, &AmountResponse{Amount: utils.Amount(amount)})
		case "undelegate":
			if err := g.manager.Undelegate(operator, body.Caller, now); err != nil {
				return err
			}
			return utils.WriteJSON(w, utils.M{"operator": operator.String()})
		default:
			amount, err := g.manager.RecoverStake(operator, body.Caller, now)
			if err != nil {
				return err
			}
			return utils.WriteJSON(w, &AmountResponse{Amount: utils.Amount(amount)})
		}
	}
}

func (g *Grants) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /grants").
		HandlerFunc(utils.WrapHandlerFunc(g.handleCreateGrant))
	sub.Path("/{id:[0-9]+}").
		Methods(http.MethodGet).
		Name("GET /grants/{id}").
		HandlerFunc(utils.WrapHandlerFunc(g.handleGetGrant))
	sub.Path("/{id:[0-9]+}/stake").
		Methods(http.MethodPost).
		Name("POST /grants/{id}/stake").
		HandlerFunc(utils.WrapHandlerFunc(g.handleStake))
	sub.Path("/{id:[0-9]+}/withdraw").
		Methods(http.MethodPost).
		Name("POST /grants/{id}/withdraw").
		HandlerFunc(utils.WrapHandlerFunc(g.handleWithdraw))
	for _, op := range []string{"cancel", "undelegate", "recover"} {
		sub.Path("/operators/{operator}/" + op).
			Methods(http.MethodPost).
			Name("POST /grants/operators/{operator}/" + op).
			HandlerFunc(utils.WrapHandlerFunc(g.handleOperator(op)))
	}
}
