package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// ChainHandler expõe o status da cadeia, os nonces e o envio de transações.
type ChainHandler struct {
	Chain *chain.Local
}

func NewChainHandler(c *chain.Local) *ChainHandler {
	return &ChainHandler{Chain: c}
}

// GetStatus GET /chain
func (h *ChainHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ChainStatus{ChainID: h.Chain.ChainID(), Height: h.Chain.Height()})
}

// GetNonce GET /accounts/{address}/nonce
func (h *ChainHandler) GetNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.NonceResponse{Address: addr, Nonce: h.Chain.Nonce(addr)})
}

// SubmitTransaction aplica uma transação assinada.
// POST /transactions
func (h *ChainHandler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		badRequest(w, err.Error())
		return
	}
	if tx.Method == "" {
		badRequest(w, "method é obrigatório")
		return
	}

	receipt, err := h.Chain.Submit(tx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
