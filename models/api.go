package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Corpos de resposta da API HTTP.

type ChainStatus struct {
	ChainID uint64 `json:"chain_id"`
	Height  uint64 `json:"height"`
}

type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
}

type OwnerResponse struct {
	Registry common.Address `json:"registry"`
	TokenID  *big.Int       `json:"token_id"`
	Owner    common.Address `json:"owner"`
}

// RegistryInfo é o resumo somente leitura de um registro de ativos implantado.
type RegistryInfo struct {
	Address common.Address `json:"address"`
	Owner   common.Address `json:"owner"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
}

type TokenCountResponse struct {
	Registry common.Address `json:"registry"`
	Account  common.Address `json:"account"`
	Tokens   int            `json:"tokens"`
}

type BalanceResponse struct {
	Vault   common.Address `json:"vault"`
	Account common.Address `json:"account"`
	Balance *big.Int       `json:"balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
