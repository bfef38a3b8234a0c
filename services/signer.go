package services

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// Signer envia transações em nome de uma conta.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
	backend Backend
}

func NewSigner(key *ecdsa.PrivateKey, backend Backend) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey), backend: backend}
}

func (s *Signer) Address() common.Address { return s.address }

// Send monta, assina e envia uma transação com o nonce atual da conta.
func (s *Signer) Send(ctx context.Context, method string, params interface{}) (models.Receipt, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("falha ao codificar params de %s: %w", method, err)
	}
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("falha ao obter chain id: %w", err)
	}
	nonce, err := s.backend.Nonce(ctx, s.address)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("falha ao obter nonce de %s: %w", s.address.Hex(), err)
	}
	tx, err := chain.SignTx(chainID, models.Transaction{Nonce: nonce, Method: method, Params: raw}, s.key)
	if err != nil {
		return models.Receipt{}, err
	}
	return s.backend.Submit(ctx, tx)
}
