package contracts

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ferreirogomes/fnft/models"
)

// Registry é um livro de ativos não fungíveis no formato ERC-721. Só o
// deployer pode cunhar.
type Registry struct {
	address common.Address
	owner   common.Address
	name    string
	symbol  string

	owners    map[string]common.Address
	balances  map[common.Address]int
	approved  map[string]common.Address
	operators map[common.Address]map[common.Address]bool
}

// NewRegistry cria um registro vazio no endereço address.
func NewRegistry(address, owner common.Address, name, symbol string) *Registry {
	return &Registry{
		address:   address,
		owner:     owner,
		name:      name,
		symbol:    symbol,
		owners:    make(map[string]common.Address),
		balances:  make(map[common.Address]int),
		approved:  make(map[string]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

func (r *Registry) Address() common.Address { return r.address }
func (r *Registry) Owner() common.Address   { return r.owner }
func (r *Registry) Name() string            { return r.name }
func (r *Registry) Symbol() string          { return r.symbol }

// Mint cria tokenID e o atribui a to.
func (r *Registry) Mint(j *Journal, caller, to common.Address, tokenID *big.Int) error {
	if caller != r.owner {
		return fmt.Errorf("mint by %s: %w", caller.Hex(), ErrNotAuthorized)
	}
	if to == (common.Address{}) {
		return fmt.Errorf("mint token %s: %w", tokenID, ErrZeroAddress)
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return fmt.Errorf("mint: invalid token id %v", tokenID)
	}
	key := tokenID.String()
	if _, exists := r.owners[key]; exists {
		return fmt.Errorf("mint token %s: %w", key, ErrTokenExists)
	}

	r.owners[key] = to
	r.balances[to]++
	j.OnRevert(func() {
		delete(r.owners, key)
		r.balances[to]--
	})
	j.Emit(r.address, models.EventTransfer, map[string]string{
		"from":     common.Address{}.Hex(),
		"to":       to.Hex(),
		"token_id": key,
	})
	return nil
}

// OwnerOf retorna o dono atual de tokenID.
func (r *Registry) OwnerOf(tokenID *big.Int) (common.Address, error) {
	if tokenID == nil {
		return common.Address{}, ErrTokenNotFound
	}
	owner, ok := r.owners[tokenID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("token %s: %w", tokenID, ErrTokenNotFound)
	}
	return owner, nil
}

// BalanceOf retorna o número de tokens detidos por account.
func (r *Registry) BalanceOf(account common.Address) int {
	return r.balances[account]
}

// Approve permite que to transfira um único token em nome do dono.
func (r *Registry) Approve(j *Journal, caller, to common.Address, tokenID *big.Int) error {
	owner, err := r.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if caller != owner && !r.IsApprovedForAll(owner, caller) {
		return fmt.Errorf("approve token %s by %s: %w", tokenID, caller.Hex(), ErrNotAuthorized)
	}
	key := tokenID.String()
	prev, had := r.approved[key]
	r.approved[key] = to
	j.OnRevert(func() {
		if had {
			r.approved[key] = prev
		} else {
			delete(r.approved, key)
		}
	})
	j.Emit(r.address, models.EventApproval, map[string]string{
		"owner":    owner.Hex(),
		"approved": to.Hex(),
		"token_id": key,
	})
	return nil
}

// GetApproved retorna a aprovação individual de tokenID, ou o endereço zero.
func (r *Registry) GetApproved(tokenID *big.Int) common.Address {
	if tokenID == nil {
		return common.Address{}
	}
	return r.approved[tokenID.String()]
}

// SetApprovalForAll concede ou revoga direitos de operador sobre todos os tokens de caller.
func (r *Registry) SetApprovalForAll(j *Journal, caller, operator common.Address, approved bool) error {
	if operator == (common.Address{}) {
		return fmt.Errorf("set approval for all: %w", ErrZeroAddress)
	}
	if operator == caller {
		return fmt.Errorf("set approval for all: caller %s cannot be its own operator", caller.Hex())
	}
	ops, ok := r.operators[caller]
	if !ok {
		ops = make(map[common.Address]bool)
		r.operators[caller] = ops
	}
	prev := ops[operator]
	ops[operator] = approved
	j.OnRevert(func() { ops[operator] = prev })
	j.Emit(r.address, models.EventApprovalForAll, map[string]string{
		"owner":    caller.Hex(),
		"operator": operator.Hex(),
		"approved": strconv.FormatBool(approved),
	})
	return nil
}

// IsApprovedForAll informa se operator pode mover todos os tokens de owner.
func (r *Registry) IsApprovedForAll(owner, operator common.Address) bool {
	return r.operators[owner][operator]
}

// TransferFrom move tokenID de from para to. caller deve ser o dono, o
// endereço aprovado do token ou um operador do dono.
func (r *Registry) TransferFrom(j *Journal, caller, from, to common.Address, tokenID *big.Int) error {
	owner, err := r.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("transfer token %s from %s: %w", tokenID, from.Hex(), ErrNotOwner)
	}
	if to == (common.Address{}) {
		return fmt.Errorf("transfer token %s: %w", tokenID, ErrZeroAddress)
	}
	if caller != owner && r.GetApproved(tokenID) != caller && !r.IsApprovedForAll(owner, caller) {
		return fmt.Errorf("transfer token %s by %s: %w", tokenID, caller.Hex(), ErrNotAuthorized)
	}

	key := tokenID.String()
	prevApproved, hadApproval := r.approved[key]
	delete(r.approved, key)
	r.owners[key] = to
	r.balances[from]--
	r.balances[to]++
	j.OnRevert(func() {
		r.owners[key] = from
		r.balances[from]++
		r.balances[to]--
		if hadApproval {
			r.approved[key] = prevApproved
		}
	})
	j.Emit(r.address, models.EventTransfer, map[string]string{
		"from":     from.Hex(),
		"to":       to.Hex(),
		"token_id": key,
	})
	return nil
}
