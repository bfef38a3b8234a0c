package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VaultConfig guarda os argumentos do construtor de um cofre de fracionamento.
// Todos os campos ficam fixos depois do deploy.
type VaultConfig struct {
	Symbol    string   `json:"symbol"`     // Ex: "FNFT"
	MaxSupply *big.Int `json:"max_supply"` // teto de frações emitidas somando todos os fracionamentos
	Param     *big.Int `json:"param"`      // guardado como veio, nunca interpretado
}

// CustodyStatus é o estado do ativo em relação a um cofre.
type CustodyStatus string

const (
	CustodyFree      CustodyStatus = "free"
	CustodyInCustody CustodyStatus = "in_custody"
)

// Fractionalization registra um ativo posto em custódia e as frações emitidas por ele.
type Fractionalization struct {
	ID        string         `json:"id"`
	Vault     common.Address `json:"vault"`
	Registry  common.Address `json:"registry"`
	TokenID   *big.Int       `json:"token_id"`
	Depositor common.Address `json:"depositor"`
	Shares    *big.Int       `json:"shares"`
	Status    CustodyStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Asset retorna a ref do ativo guardado sob este registro.
func (f Fractionalization) Asset() AssetRef {
	return NewAssetRef(f.Registry, f.TokenID)
}

// VaultInfo é o resumo somente leitura de um cofre implantado.
type VaultInfo struct {
	Address     common.Address `json:"address"`
	Owner       common.Address `json:"owner"`
	Config      VaultConfig    `json:"config"`
	TotalSupply *big.Int       `json:"total_supply"`
	Records     int            `json:"records"`
}
