package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// EventStore é o histórico indexado de eventos e registros de custódia. Pode
// ser nil quando o servidor roda sem banco de dados.
type EventStore interface {
	EventsByContract(ctx context.Context, contract common.Address, limit int) ([]models.Event, error)
	FractionalizationsByVault(ctx context.Context, vault common.Address) ([]models.Fractionalization, error)
}

// VaultHandler atende consultas aos cofres.
type VaultHandler struct {
	Chain  *chain.Local
	Events EventStore
}

func NewVaultHandler(c *chain.Local, events EventStore) *VaultHandler {
	return &VaultHandler{Chain: c, Events: events}
}

// GetVault GET /vaults/{address}
func (h *VaultHandler) GetVault(w http.ResponseWriter, r *http.Request) {
	vault, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	info, err := h.Chain.VaultInfo(vault)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetBalance GET /vaults/{address}/balances/{account}
func (h *VaultHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	vault, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	account, err := addressParam(r, "account")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	balance, err := h.Chain.BalanceOf(vault, account)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.BalanceResponse{Vault: vault, Account: account, Balance: balance})
}

// GetCustody GET /vaults/{address}/custody/{registry}/{id}
func (h *VaultHandler) GetCustody(w http.ResponseWriter, r *http.Request) {
	vault, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	registry, err := addressParam(r, "registry")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	tokenID, err := uint256Param(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rec, ok, err := h.Chain.Custody(vault, registry, tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "ativo não está em custódia", Code: "not_in_custody"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetRecords GET /vaults/{address}/fractionalizations
// Com ?indexed=true os registros vêm do índice no banco em vez da cadeia.
func (h *VaultHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	vault, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	indexed := false
	if s := r.URL.Query().Get("indexed"); s != "" {
		if indexed, err = strconv.ParseBool(s); err != nil {
			badRequest(w, "indexed deve ser booleano")
			return
		}
	}
	if indexed {
		if h.Events == nil {
			unavailable(w)
			return
		}
		recs, err := h.Events.FractionalizationsByVault(r.Context(), vault)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
		return
	}

	recs, err := h.Chain.Records(vault)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetEvents lista os eventos indexados emitidos pelo cofre, do mais novo ao mais antigo.
// GET /vaults/{address}/events?limit=N
func (h *VaultHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		unavailable(w)
		return
	}
	vault, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit := defaultEventLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			badRequest(w, "limit deve ser um inteiro positivo")
			return
		}
		if n > maxEventLimit {
			n = maxEventLimit
		}
		limit = n
	}

	events, err := h.Events.EventsByContract(r.Context(), vault, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func unavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "índice de eventos não configurado", Code: "unavailable"})
}
