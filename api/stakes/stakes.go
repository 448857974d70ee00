// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/staker"
	"github.com/stakedash/stakedash/types"
)

type Stakes struct {
	staker *staker.Staker
	clock  clock.Clock
}

func New(s *staker.Staker, clk clock.Clock) *Stakes {
	return &Stakes{
		s,
		clk,
	}
}

func (s *Stakes) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	operator, err := utils.AddressVar(req, "operator")
	if err != nil {
		return err
	}
	rec, err := s.staker.Get(operator)
	if err != nil {
		return err
	}
	if rec.IsEmpty() {
		return utils.NotFound(errors.New("stake not found"))
	}
	now := s.clock.Now()
	return utils.WriteJSON(w, convertStake(rec, rec.Status(now, s.staker.Params().InitializationPeriod)))
}

func (s *Stakes) handleGetHistory(w http.ResponseWriter, req *http.Request) error {
	operator, err := utils.AddressVar(req, "operator")
	if err != nil {
		return err
	}
	history, err := s.staker.History(operator)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	stakes := make([]*Stake, 0, len(history))
	for _, rec := range history {
		stakes = append(stakes, convertStake(rec, rec.Status(now, s.staker.Params().InitializationPeriod)))
	}
	return utils.WriteJSON(w, stakes)
}

func (s *Stakes) handleGetEligibility(w http.ResponseWriter, req *http.Request) error {
	operator, err := utils.AddressVar(req, "operator")
	if err != nil {
		return err
	}
	contract, err := utils.AddressQuery(req, "contract")
	if err != nil {
		return err
	}
	if contract == nil {
		return utils.BadRequest(errors.New("contract: required"))
	}
	now := s.clock.Now()
	eligible, err := s.staker.EligibleStake(operator, *contract, now)
	if err != nil {
		return err
	}
	minimum := s.staker.MinimumStake(now)
	return utils.WriteJSON(w, &Eligibility{
		Eligible: utils.Amount(eligible),
		Minimum:  utils.Amount(minimum),
		Ok:       eligible.Sign() > 0 && eligible.Cmp(minimum) >= 0,
	})
}

func (s *Stakes) handleDelegate(w http.ResponseWriter, req *http.Request) error {
	var body DelegateRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	amount, err := utils.RequireAmount(body.Amount, "amount")
	if err != nil {
		return err
	}
	dr := staker.DelegateRequest{
		Operator: body.Operator,
		Owner:    body.Owner,
		Amount:   amount,
	}
	if body.Beneficiary != nil {
		dr.Beneficiary = *body.Beneficiary
	}
	if body.Authorizer != nil {
		dr.Authorizer = *body.Authorizer
	}
	now := s.clock.Now()
	if err := s.staker.Delegate(dr, now); err != nil {
		return err
	}
	rec, err := s.staker.Get(body.Operator)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, convertStake(rec, rec.Status(now, s.staker.Params().InitializationPeriod)))
}

// parseCaller reads the operator path variable and the caller body.
func parseCaller(req *http.Request) (operator, caller types.Address, err error) {
	op, err := utils.AddressVar(req, "operator")
	if err != nil {
		return
	}
	var body CallerRequest
	if err = utils.ParseJSON(req.Body, &body); err != nil {
		err = utils.BadRequest(errors.WithMessage(err, "body"))
		return
	}
	return op, body.Caller, nil
}

func (s *Stakes) handleCancel(w http.ResponseWriter, req *http.Request) error {
	operator, caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	amount, err := s.staker.CancelStake(operator, caller, s.clock.Now())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &AmountResponse{Amount: utils.Amount(amount)})
}

func (s *Stakes) handleUndelegate(w http.ResponseWriter, req *http.Request) error {
	operator, caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	if err := s.staker.Undelegate(operator, caller, s.clock.Now()); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"operator": operator.String()})
}

func (s *Stakes) handleRecover(w http.ResponseWriter, req *http.Request) error {
	operator, caller, err := parseCaller(req)
	if err != nil {
		return err
	}
	amount, err := s.staker.RecoverStake(operator, caller, s.clock.Now())
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &AmountResponse{Amount: utils.Amount(amount)})
}

func (s *Stakes) handleAuthorize(w http.ResponseWriter, req *http.Request) error {
	operator, err := utils.AddressVar(req, "operator")
	if err != nil {
		return err
	}
	var body AuthorizeRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := s.staker.AuthorizeOperatorContract(operator, body.Caller, body.Contract, s.clock.Now()); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"operator": operator.String(), "contract": body.Contract.String()})
}

func (s *Stakes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /stakes").
		HandlerFunc(utils.WrapHandlerFunc(s.handleDelegate))
	sub.Path("/{operator}").
		Methods(http.MethodGet).
		Name("GET /stakes/{operator}").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetStake))
	sub.Path("/{operator}/history").
		Methods(http.MethodGet).
		Name("GET /stakes/{operator}/history").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetHistory))
	sub.Path("/{operator}/eligibility").
		Methods(http.MethodGet).
		Name("GET /stakes/{operator}/eligibility").
		HandlerFunc(utils.WrapHandlerFunc(s.handleGetEligibility))
	sub.Path("/{operator}/cancel").
		Methods(http.MethodPost).
		Name("POST /stakes/{operator}/cancel").
		HandlerFunc(utils.WrapHandlerFunc(s.handleCancel))
	sub.Path("/{operator}/undelegate").
		Methods(http.MethodPost).
		Name("POST /stakes/{operator}/undelegate").
		HandlerFunc(utils.WrapHandlerFunc(s.handleUndelegate))
	sub.Path("/{operator}/recover").
		Methods(http.MethodPost).
		Name("POST /stakes/{operator}/recover").
		HandlerFunc(utils.WrapHandlerFunc(s.handleRecover))
	sub.Path("/{operator}/authorize").
		Methods(http.MethodPost).
		Name("POST /stakes/{operator}/authorize").
		HandlerFunc(utils.WrapHandlerFunc(s.handleAuthorize))
}
