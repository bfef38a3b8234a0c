package contracts

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ferreirogomes/fnft/models"
)

// AssetRegistry é o que o cofre precisa do contrato dono de um ativo.
type AssetRegistry interface {
	Address() common.Address
	OwnerOf(tokenID *big.Int) (common.Address, error)
	GetApproved(tokenID *big.Int) common.Address
	IsApprovedForAll(owner, operator common.Address) bool
	TransferFrom(j *Journal, caller, from, to common.Address, tokenID *big.Int) error
}

// Vault assume a custódia de ativos não fungíveis e emite frações fungíveis
// lastreadas neles, até um suprimento total fixo.
type Vault struct {
	address common.Address
	owner   common.Address
	config  models.VaultConfig

	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	records     map[string]models.Fractionalization

	now func() time.Time
}

// NewVault valida cfg e cria um cofre vazio no endereço address.
func NewVault(address, owner common.Address, cfg models.VaultConfig) (*Vault, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	if cfg.MaxSupply == nil || cfg.MaxSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: max supply must be positive", ErrInvalidConfig)
	}
	param := new(big.Int)
	if cfg.Param != nil {
		if cfg.Param.Sign() < 0 {
			return nil, fmt.Errorf("%w: param must not be negative", ErrInvalidConfig)
		}
		param.Set(cfg.Param)
	}

	return &Vault{
		address: address,
		owner:   owner,
		config: models.VaultConfig{
			Symbol:    cfg.Symbol,
			MaxSupply: new(big.Int).Set(cfg.MaxSupply),
			Param:     param,
		},
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		records:     make(map[string]models.Fractionalization),
		now:         time.Now,
	}, nil
}

func (v *Vault) Address() common.Address { return v.address }
func (v *Vault) Owner() common.Address   { return v.owner }

// Config retorna uma cópia dos argumentos do construtor.
func (v *Vault) Config() models.VaultConfig {
	return models.VaultConfig{
		Symbol:    v.config.Symbol,
		MaxSupply: new(big.Int).Set(v.config.MaxSupply),
		Param:     new(big.Int).Set(v.config.Param),
	}
}

// TotalSupply retorna o número de frações emitidas até agora.
func (v *Vault) TotalSupply() *big.Int {
	return new(big.Int).Set(v.totalSupply)
}

// BalanceOf retorna o saldo de frações de account.
func (v *Vault) BalanceOf(account common.Address) *big.Int {
	if b, ok := v.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Custody retorna o registro de ref, se o cofre o guarda.
func (v *Vault) Custody(ref models.AssetRef) (models.Fractionalization, bool) {
	rec, ok := v.records[ref.Key()]
	if !ok || rec.Status != models.CustodyInCustody {
		return models.Fractionalization{}, false
	}
	return copyRecord(rec), true
}

// Records lista todos os registros de custódia, do mais antigo ao mais novo.
func (v *Vault) Records() []models.Fractionalization {
	out := make([]models.Fractionalization, 0, len(v.records))
	for _, rec := range v.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out
}

// Fractionalize assume a custódia de tokenID vindo de caller e credita shares
// a caller. Toda pré-condição é verificada antes de qualquer escrita; em caso
// de erro nem o registro nem o cofre mudam.
func (v *Vault) Fractionalize(j *Journal, caller common.Address, registry AssetRegistry, tokenID, shares *big.Int) (models.Fractionalization, error) {
	if shares == nil || shares.Sign() <= 0 {
		return models.Fractionalization{}, fmt.Errorf("fractionalize: %w", ErrInvalidAmount)
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return models.Fractionalization{}, fmt.Errorf("fractionalize: invalid token id %v", tokenID)
	}
	ref := models.NewAssetRef(registry.Address(), tokenID)

	if _, held := v.Custody(ref); held {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: %w", ref, ErrAlreadyInCustody)
	}

	newSupply := new(big.Int).Add(v.totalSupply, shares)
	if newSupply.Cmp(v.config.MaxSupply) > 0 {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: %s + %s > %s: %w",
			ref, v.totalSupply, shares, v.config.MaxSupply, ErrSupplyCapExceeded)
	}

	owner, err := registry.OwnerOf(tokenID)
	if err != nil {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: %w: %w", ref, ErrNotOwner, err)
	}
	if owner != caller {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: owned by %s, not %s: %w",
			ref, owner.Hex(), caller.Hex(), ErrNotOwner)
	}
	if !registry.IsApprovedForAll(caller, v.address) && registry.GetApproved(tokenID) != v.address {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: %w", ref, ErrNotApproved)
	}

	if err := registry.TransferFrom(j, v.address, caller, v.address, tokenID); err != nil {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: take custody: %w", ref, err)
	}
	// O registro é código externo: só credita frações se a custódia de fato mudou.
	if holder, err := registry.OwnerOf(tokenID); err != nil || holder != v.address {
		return models.Fractionalization{}, fmt.Errorf("fractionalize %s: custody not transferred (holder %s, err %v)", ref, holder.Hex(), err)
	}

	rec := models.Fractionalization{
		ID:        uuid.New().String(),
		Vault:     v.address,
		Registry:  ref.Registry,
		TokenID:   ref.TokenID,
		Depositor: caller,
		Shares:    new(big.Int).Set(shares),
		Status:    models.CustodyInCustody,
		CreatedAt: v.now().UTC(),
	}

	prevSupply := v.totalSupply
	prevBalance := v.balances[caller]
	v.totalSupply = newSupply
	v.balances[caller] = new(big.Int).Add(v.BalanceOf(caller), shares)
	v.records[ref.Key()] = rec
	j.OnRevert(func() {
		v.totalSupply = prevSupply
		if prevBalance == nil {
			delete(v.balances, caller)
		} else {
			v.balances[caller] = prevBalance
		}
		delete(v.records, ref.Key())
	})

	j.Emit(v.address, models.EventFractionalized, map[string]string{
		"record_id": rec.ID,
		"registry":  ref.Registry.Hex(),
		"token_id":  ref.TokenID.String(),
		"depositor": caller.Hex(),
		"shares":    shares.String(),
	})
	return copyRecord(rec), nil
}

// Transfer move amount frações de caller para to.
func (v *Vault) Transfer(j *Journal, caller, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("transfer shares: %w", ErrInvalidAmount)
	}
	if to == (common.Address{}) {
		return fmt.Errorf("transfer shares: %w", ErrZeroAddress)
	}
	from := v.BalanceOf(caller)
	if from.Cmp(amount) < 0 {
		return fmt.Errorf("transfer shares: %s has %s, needs %s: %w", caller.Hex(), from, amount, ErrInsufficientBalance)
	}

	prevFrom, prevTo := v.balances[caller], v.balances[to]
	v.balances[caller] = new(big.Int).Sub(from, amount)
	v.balances[to] = new(big.Int).Add(v.BalanceOf(to), amount)
	j.OnRevert(func() {
		restoreBalance(v.balances, caller, prevFrom)
		restoreBalance(v.balances, to, prevTo)
	})

	j.Emit(v.address, models.EventSharesTransferred, map[string]string{
		"from":   caller.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	})
	return nil
}

func restoreBalance(m map[common.Address]*big.Int, account common.Address, prev *big.Int) {
	if prev == nil {
		delete(m, account)
		return
	}
	m[account] = prev
}

func copyRecord(rec models.Fractionalization) models.Fractionalization {
	rec.TokenID = new(big.Int).Set(rec.TokenID)
	rec.Shares = new(big.Int).Set(rec.Shares)
	return rec
}
