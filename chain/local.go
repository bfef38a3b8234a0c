package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/contracts"
	"github.com/ferreirogomes/fnft/models"
)

// DefaultChainID é o id de uma rede hardhat em processo.
const DefaultChainID uint64 = 31337

// Local hospeda registros e cofres em memória e aplica transações assinadas
// uma de cada vez. Uma transação é confirmada por inteiro (estado, nonce e
// eventos) ou deixa tudo como estava.
type Local struct {
	mu         deadlock.RWMutex
	chainID    uint64
	height     uint64
	nonces     map[common.Address]uint64
	registries map[common.Address]*contracts.Registry
	vaults     map[common.Address]*contracts.Vault

	subMu   deadlock.Mutex
	subs    map[int]chan models.Event
	nextSub int

	log *zap.Logger
	now func() time.Time
}

// NewLocal cria uma cadeia vazia.
func NewLocal(chainID uint64, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		chainID:    chainID,
		nonces:     make(map[common.Address]uint64),
		registries: make(map[common.Address]*contracts.Registry),
		vaults:     make(map[common.Address]*contracts.Vault),
		subs:       make(map[int]chan models.Event),
		log:        logger.Named("chain"),
		now:        time.Now,
	}
}

func (c *Local) ChainID() uint64 { return c.chainID }

// Height é o número de transações confirmadas.
func (c *Local) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height
}

// Nonce é o nonce que a próxima transação de addr deve levar.
func (c *Local) Nonce(addr common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nonces[addr]
}

// Submit verifica e aplica tx.
func (c *Local) Submit(tx models.Transaction) (models.Receipt, error) {
	from, err := Sender(c.chainID, tx)
	if err != nil {
		return models.Receipt{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if want := c.nonces[from]; tx.Nonce != want {
		return models.Receipt{}, fmt.Errorf("%w: %s sent %d, expected %d", ErrNonceMismatch, from.Hex(), tx.Nonce, want)
	}

	j := contracts.NewJournal()
	created, err := c.apply(j, from, tx)
	if err != nil {
		j.Revert()
		c.log.Debug("transação rejeitada",
			zap.String("from", from.Hex()),
			zap.String("method", tx.Method),
			zap.Error(err))
		return models.Receipt{}, err
	}

	c.height++
	c.nonces[from]++
	receipt := models.Receipt{
		TxHash:          TxHash(c.chainID, tx),
		Height:          c.height,
		Method:          tx.Method,
		ContractAddress: created,
		Events:          c.stamp(j.Events(), c.height, TxHash(c.chainID, tx)),
	}
	c.log.Info("transação confirmada",
		zap.Uint64("height", receipt.Height),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.String("from", from.Hex()),
		zap.String("method", tx.Method),
		zap.Int("events", len(receipt.Events)))
	c.publish(receipt.Events)
	return receipt, nil
}

func (c *Local) stamp(events []models.Event, height uint64, txHash common.Hash) []models.Event {
	out := make([]models.Event, len(events))
	ts := c.now().UTC()
	for i, e := range events {
		e.ID = uuid.New().String()
		e.Height = height
		e.TxHash = txHash
		e.CreatedAt = ts
		out[i] = e
	}
	return out
}

// apply despacha tx para o seu contrato. Retorna o endereço do contrato
// recém-implantado, se houver.
func (c *Local) apply(j *contracts.Journal, from common.Address, tx models.Transaction) (*common.Address, error) {
	switch tx.Method {
	case models.MethodDeployRegistry:
		var p models.DeployRegistryParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		if p.Name == "" {
			p.Name = "CryptoPunkz"
		}
		if p.Symbol == "" {
			p.Symbol = "PUNKZ"
		}
		addr := c.nextAddress(from)
		c.registries[addr] = contracts.NewRegistry(addr, from, p.Name, p.Symbol)
		j.OnRevert(func() { delete(c.registries, addr) })
		j.Emit(addr, models.EventContractDeployed, map[string]string{
			"kind":     "registry",
			"deployer": from.Hex(),
			"name":     p.Name,
			"symbol":   p.Symbol,
		})
		return &addr, nil

	case models.MethodDeployVault:
		var p models.DeployVaultParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		addr := c.nextAddress(from)
		v, err := contracts.NewVault(addr, from, models.VaultConfig{Symbol: p.Symbol, MaxSupply: p.MaxSupply, Param: p.Param})
		if err != nil {
			return nil, err
		}
		c.vaults[addr] = v
		j.OnRevert(func() { delete(c.vaults, addr) })
		cfg := v.Config()
		j.Emit(addr, models.EventContractDeployed, map[string]string{
			"kind":       "vault",
			"deployer":   from.Hex(),
			"symbol":     cfg.Symbol,
			"max_supply": cfg.MaxSupply.String(),
			"param":      cfg.Param.String(),
		})
		return &addr, nil

	case models.MethodMint:
		var p models.MintParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		reg, err := c.registry(p.Registry)
		if err != nil {
			return nil, err
		}
		if p.TokenID == nil {
			return nil, fmt.Errorf("%w: token_id is required", ErrInvalidParams)
		}
		return nil, reg.Mint(j, from, p.To, p.TokenID)

	case models.MethodApprove:
		var p models.ApproveParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		reg, err := c.registry(p.Registry)
		if err != nil {
			return nil, err
		}
		if p.TokenID == nil {
			return nil, fmt.Errorf("%w: token_id is required", ErrInvalidParams)
		}
		return nil, reg.Approve(j, from, p.To, p.TokenID)

	case models.MethodSetApprovalForAll:
		var p models.SetApprovalForAllParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		reg, err := c.registry(p.Registry)
		if err != nil {
			return nil, err
		}
		return nil, reg.SetApprovalForAll(j, from, p.Operator, p.Approved)

	case models.MethodFractionalize:
		var p models.FractionalizeParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		v, err := c.vault(p.Vault)
		if err != nil {
			return nil, err
		}
		reg, err := c.registry(p.Registry)
		if err != nil {
			return nil, err
		}
		if p.TokenID == nil {
			return nil, fmt.Errorf("%w: token_id is required", ErrInvalidParams)
		}
		_, err = v.Fractionalize(j, from, reg, p.TokenID, p.Shares)
		return nil, err

	case models.MethodTransferShares:
		var p models.TransferSharesParams
		if err := decodeParams(tx.Params, &p); err != nil {
			return nil, err
		}
		v, err := c.vault(p.Vault)
		if err != nil {
			return nil, err
		}
		return nil, v.Transfer(j, from, p.To, p.Amount)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, tx.Method)
	}
}

// nextAddress deriva o endereço do contrato como o CREATE faz.
func (c *Local) nextAddress(deployer common.Address) common.Address {
	return crypto.CreateAddress(deployer, c.nonces[deployer])
}

func decodeParams(raw json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func (c *Local) registry(addr common.Address) (*contracts.Registry, error) {
	reg, ok := c.registries[addr]
	if !ok {
		return nil, fmt.Errorf("%w: no registry at %s", ErrUnknownContract, addr.Hex())
	}
	return reg, nil
}

func (c *Local) vault(addr common.Address) (*contracts.Vault, error) {
	v, ok := c.vaults[addr]
	if !ok {
		return nil, fmt.Errorf("%w: no vault at %s", ErrUnknownContract, addr.Hex())
	}
	return v, nil
}

// OwnerOf retorna o dono de tokenID no registro em registry.
func (c *Local) OwnerOf(registry common.Address, tokenID *big.Int) (common.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, err := c.registry(registry)
	if err != nil {
		return common.Address{}, err
	}
	return reg.OwnerOf(tokenID)
}

// RegistryInfo resume o registro em registry.
func (c *Local) RegistryInfo(registry common.Address) (models.RegistryInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, err := c.registry(registry)
	if err != nil {
		return models.RegistryInfo{}, err
	}
	return models.RegistryInfo{
		Address: reg.Address(),
		Owner:   reg.Owner(),
		Name:    reg.Name(),
		Symbol:  reg.Symbol(),
	}, nil
}

// TokenCount é o número de tokens que account detém no registro em registry.
func (c *Local) TokenCount(registry, account common.Address) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, err := c.registry(registry)
	if err != nil {
		return 0, err
	}
	return reg.BalanceOf(account), nil
}

// IsApprovedForAll informa os direitos de operador no registro em registry.
func (c *Local) IsApprovedForAll(registry, owner, operator common.Address) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, err := c.registry(registry)
	if err != nil {
		return false, err
	}
	return reg.IsApprovedForAll(owner, operator), nil
}

// BalanceOf retorna o saldo de frações de account no cofre em vault.
func (c *Local) BalanceOf(vault, account common.Address) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.vault(vault)
	if err != nil {
		return nil, err
	}
	return v.BalanceOf(account), nil
}

// VaultInfo resume o cofre em vault.
func (c *Local) VaultInfo(vault common.Address) (models.VaultInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.vault(vault)
	if err != nil {
		return models.VaultInfo{}, err
	}
	return models.VaultInfo{
		Address:     v.Address(),
		Owner:       v.Owner(),
		Config:      v.Config(),
		TotalSupply: v.TotalSupply(),
		Records:     len(v.Records()),
	}, nil
}

// Custody retorna o registro sob o qual o cofre guarda o ativo, se houver.
func (c *Local) Custody(vault, registry common.Address, tokenID *big.Int) (models.Fractionalization, bool, error) {
	if tokenID == nil {
		return models.Fractionalization{}, false, fmt.Errorf("%w: token id is required", ErrInvalidParams)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.vault(vault)
	if err != nil {
		return models.Fractionalization{}, false, err
	}
	rec, ok := v.Custody(models.NewAssetRef(registry, tokenID))
	return rec, ok, nil
}

// Records lista todos os registros de custódia do cofre em vault.
func (c *Local) Records(vault common.Address) ([]models.Fractionalization, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, err := c.vault(vault)
	if err != nil {
		return nil, err
	}
	return v.Records(), nil
}
