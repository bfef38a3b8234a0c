package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Nomes dos eventos emitidos pelos contratos.
const (
	EventContractDeployed  = "ContractDeployed"
	EventTransfer          = "Transfer"
	EventApproval          = "Approval"
	EventApprovalForAll    = "ApprovalForAll"
	EventFractionalized    = "Fractionalized"
	EventSharesTransferred = "SharesTransferred"
)

// Event é uma entrada de log produzida por uma transação confirmada.
type Event struct {
	ID        string            `json:"id"`
	Height    uint64            `json:"height"` // posição da transação na ordem total da cadeia
	Index     int               `json:"index"`  // posição dentro da transação
	TxHash    common.Hash       `json:"tx_hash"`
	Contract  common.Address    `json:"contract"`
	Name      string            `json:"name"`
	Args      map[string]string `json:"args"`
	CreatedAt time.Time         `json:"created_at"`
}
