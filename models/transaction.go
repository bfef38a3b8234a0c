package models

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Métodos de transação entendidos pela cadeia.
const (
	MethodDeployRegistry    = "deployRegistry"
	MethodDeployVault       = "deployVault"
	MethodMint              = "mint"
	MethodApprove           = "approve"
	MethodSetApprovalForAll = "setApprovalForAll"
	MethodFractionalize     = "fractionalize"
	MethodTransferShares    = "transferShares"
)

// Transaction é um pedido assinado de transição de estado. Params guarda o
// payload JSON específico do método.
type Transaction struct {
	From      common.Address  `json:"from"`
	Nonce     uint64          `json:"nonce"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	Signature hexutil.Bytes   `json:"signature"`
}

// Receipt descreve uma transação confirmada.
type Receipt struct {
	TxHash          common.Hash     `json:"tx_hash"`
	Height          uint64          `json:"height"`
	Method          string          `json:"method"`
	ContractAddress *common.Address `json:"contract_address,omitempty"`
	Events          []Event         `json:"events"`
}

type DeployRegistryParams struct {
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

type DeployVaultParams struct {
	Symbol    string   `json:"symbol"`
	MaxSupply *big.Int `json:"max_supply"`
	Param     *big.Int `json:"param"`
}

type MintParams struct {
	Registry common.Address `json:"registry"`
	To       common.Address `json:"to"`
	TokenID  *big.Int       `json:"token_id"`
}

type ApproveParams struct {
	Registry common.Address `json:"registry"`
	To       common.Address `json:"to"`
	TokenID  *big.Int       `json:"token_id"`
}

type SetApprovalForAllParams struct {
	Registry common.Address `json:"registry"`
	Operator common.Address `json:"operator"`
	Approved bool           `json:"approved"`
}

type FractionalizeParams struct {
	Vault    common.Address `json:"vault"`
	Registry common.Address `json:"registry"`
	TokenID  *big.Int       `json:"token_id"`
	Shares   *big.Int       `json:"shares"`
}

type TransferSharesParams struct {
	Vault  common.Address `json:"vault"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}
