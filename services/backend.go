package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// Backend é a cadeia onde o harness faz o deploy.
type Backend interface {
	ChainID(ctx context.Context) (uint64, error)
	Nonce(ctx context.Context, account common.Address) (uint64, error)
	Submit(ctx context.Context, tx models.Transaction) (models.Receipt, error)
	OwnerOf(ctx context.Context, registry common.Address, tokenID *big.Int) (common.Address, error)
	BalanceOf(ctx context.Context, vault, account common.Address) (*big.Int, error)
}

// LocalBackend roda contra uma cadeia em processo.
type LocalBackend struct {
	Chain *chain.Local
}

func NewLocalBackend(c *chain.Local) *LocalBackend {
	return &LocalBackend{Chain: c}
}

func (b *LocalBackend) ChainID(ctx context.Context) (uint64, error) {
	return b.Chain.ChainID(), ctx.Err()
}

func (b *LocalBackend) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.Chain.Nonce(account), nil
}

func (b *LocalBackend) Submit(ctx context.Context, tx models.Transaction) (models.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return models.Receipt{}, err
	}
	return b.Chain.Submit(tx)
}

func (b *LocalBackend) OwnerOf(ctx context.Context, registry common.Address, tokenID *big.Int) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	return b.Chain.OwnerOf(registry, tokenID)
}

func (b *LocalBackend) BalanceOf(ctx context.Context, vault, account common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Chain.BalanceOf(vault, account)
}
