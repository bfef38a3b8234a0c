package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/go-chi/chi/v5"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := chain.ErrorCode(err)
	writeJSON(w, statusFor(code), models.ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg, Code: "invalid_params"})
}

func statusFor(code string) int {
	switch code {
	case "invalid_params", "unknown_method":
		return http.StatusBadRequest
	case "bad_signature":
		return http.StatusUnauthorized
	case "not_owner", "not_approved", "not_authorized":
		return http.StatusForbidden
	case "unknown_contract", "token_not_found":
		return http.StatusNotFound
	case "nonce_mismatch", "already_in_custody", "token_exists":
		return http.StatusConflict
	case "supply_cap_exceeded", "insufficient_balance", "invalid_amount", "invalid_config", "zero_address":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// addressParam lê um endereço hex da URL.
func addressParam(r *http.Request, name string) (common.Address, error) {
	s := chi.URLParam(r, name)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: %q não é um endereço hex", name, s)
	}
	return common.HexToAddress(s), nil
}

// uint256Param lê um inteiro decimal ou com prefixo 0x da URL.
func uint256Param(r *http.Request, name string) (*big.Int, error) {
	s := chi.URLParam(r, name)
	v, ok := math.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s: %q não é um uint256", name, s)
	}
	return v, nil
}
