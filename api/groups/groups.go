// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package groups

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/stakedash/stakedash/api/utils"
	"github.com/stakedash/stakedash/clock"
	"github.com/stakedash/stakedash/dkg"
	"github.com/stakedash/stakedash/types"
)

type RegisterRequest struct {
	Participants []types.Address `json:"participants"`
	PubKey       hexutil.Bytes   `json:"pubKey"`
	Misbehaved   hexutil.Bytes   `json:"misbehaved"`
}

type Group struct {
	PubKey     hexutil.Bytes   `json:"pubKey"`
	Members    []types.Address `json:"members"`
	ResultHash *common.Hash    `json:"resultHash,omitempty"`
}

type Membership struct {
	Member bool `json:"member"`
}

type Groups struct {
	registry *dkg.Registry
	clock    clock.Clock
}

func New(registry *dkg.Registry, clk clock.Clock) *Groups {
	return &Groups{
		registry,
		clk,
	}
}

func convertError(err error) error {
	switch {
	case errors.Is(err, dkg.ErrNotEligible):
		return utils.Forbidden(err)
	case errors.Is(err, dkg.ErrInvalidMisbehaved):
		return utils.BadRequest(err)
	case errors.Is(err, dkg.ErrGroupExists):
		return utils.HTTPError(err, http.StatusConflict)
	case errors.Is(err, dkg.ErrGroupNotFound):
		return utils.NotFound(err)
	}
	return err
}

func (g *Groups) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body RegisterRequest
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if len(body.PubKey) == 0 {
		return utils.BadRequest(errors.New("pubKey: required"))
	}
	if len(body.Participants) == 0 {
		return utils.BadRequest(errors.New("participants: required"))
	}

	members, err := g.registry.RegisterGroup(body.Participants, body.PubKey, body.Misbehaved, g.clock.Now())
	if err != nil {
		return convertError(err)
	}
	hash := dkg.ResultHash(body.PubKey, body.Misbehaved)
	return utils.WriteJSON(w, &Group{
		PubKey:     body.PubKey,
		Members:    members,
		ResultHash: &hash,
	})
}

func parsePubKey(req *http.Request) ([]byte, error) {
	pubKey, err := hexutil.Decode(mux.Vars(req)["pubKey"])
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "pubKey"))
	}
	return pubKey, nil
}

func (g *Groups) handleGetGroup(w http.ResponseWriter, req *http.Request) error {
	pubKey, err := parsePubKey(req)
	if err != nil {
		return err
	}
	members, err := g.registry.GroupMembers(pubKey)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &Group{
		PubKey:  pubKey,
		Members: members,
	})
}

func (g *Groups) handleIsMember(w http.ResponseWriter, req *http.Request) error {
	pubKey, err := parsePubKey(req)
	if err != nil {
		return err
	}
	operator, err := utils.AddressVar(req, "operator")
	if err != nil {
		return err
	}
	member, err := g.registry.IsMember(pubKey, operator)
	if err != nil {
		return convertError(err)
	}
	return utils.WriteJSON(w, &Membership{member})
}

func (g *Groups) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /groups").
		HandlerFunc(utils.WrapHandlerFunc(g.handleRegister))
	sub.Path("/{pubKey}").
		Methods(http.MethodGet).
		Name("GET /groups/{pubKey}").
		HandlerFunc(utils.WrapHandlerFunc(g.handleGetGroup))
	sub.Path("/{pubKey}/members/{operator}").
		Methods(http.MethodGet).
		Name("GET /groups/{pubKey}/members/{operator}").
		HandlerFunc(utils.WrapHandlerFunc(g.handleIsMember))
}
