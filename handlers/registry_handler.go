package handlers

import (
	"net/http"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// RegistryHandler atende consultas somente leitura aos registros.
type RegistryHandler struct {
	Chain *chain.Local
}

func NewRegistryHandler(c *chain.Local) *RegistryHandler {
	return &RegistryHandler{Chain: c}
}

// GetRegistry GET /registries/{address}
func (h *RegistryHandler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	registry, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	info, err := h.Chain.RegistryInfo(registry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetTokenCount GET /registries/{address}/balances/{account}
func (h *RegistryHandler) GetTokenCount(w http.ResponseWriter, r *http.Request) {
	registry, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	account, err := addressParam(r, "account")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	n, err := h.Chain.TokenCount(registry, account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TokenCountResponse{Registry: registry, Account: account, Tokens: n})
}

// GetOwner retorna o dono de um token.
// GET /registries/{address}/tokens/{id}/owner
func (h *RegistryHandler) GetOwner(w http.ResponseWriter, r *http.Request) {
	registry, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	tokenID, err := uint256Param(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	owner, err := h.Chain.OwnerOf(registry, tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.OwnerResponse{Registry: registry, TokenID: tokenID, Owner: owner})
}
