package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/models"
)

// HarnessConfig é o cenário que o harness executa.
type HarnessConfig struct {
	Symbol    string
	MaxSupply *big.Int
	Param     *big.Int
	TokenID   *big.Int
	Shares    *big.Int
}

// DefaultHarnessConfig é o deploy padrão do FNFT.
func DefaultHarnessConfig() HarnessConfig {
	return HarnessConfig{
		Symbol:    "FNFT",
		MaxSupply: big.NewInt(1_000_000_000),
		Param:     big.NewInt(5),
		TokenID:   big.NewInt(1),
		Shares:    big.NewInt(1_000_000),
	}
}

func (c HarnessConfig) Validate() error {
	var err error
	if c.Symbol == "" {
		err = multierr.Append(err, errors.New("símbolo é obrigatório"))
	}
	if c.MaxSupply == nil || c.MaxSupply.Sign() <= 0 {
		err = multierr.Append(err, errors.New("suprimento máximo deve ser positivo"))
	}
	if c.Param != nil && c.Param.Sign() < 0 {
		err = multierr.Append(err, errors.New("param não pode ser negativo"))
	}
	if c.TokenID == nil || c.TokenID.Sign() < 0 {
		err = multierr.Append(err, errors.New("token id não pode ser negativo"))
	}
	if c.Shares == nil || c.Shares.Sign() <= 0 {
		err = multierr.Append(err, errors.New("frações devem ser positivas"))
	}
	return err
}

// Report é o resultado de uma execução bem-sucedida.
type Report struct {
	Deployer  common.Address `json:"deployer"`
	Registry  common.Address `json:"registry"`
	Vault     common.Address `json:"vault"`
	TokenID   *big.Int       `json:"token_id"`
	Balance   *big.Int       `json:"balance"`
	Custodian common.Address `json:"custodian"`
	Height    uint64         `json:"height"`
}

// Harness implanta um registro e um cofre e fraciona um ativo recém-cunhado.
type Harness struct {
	backend  Backend
	deployer *Signer
	cfg      HarnessConfig
	log      *zap.Logger
}

// NewHarness usa a primeira chave como deployer.
func NewHarness(backend Backend, keys []*ecdsa.PrivateKey, cfg HarnessConfig, logger *zap.Logger) (*Harness, error) {
	if backend == nil {
		return nil, errors.New("harness: backend é obrigatório")
	}
	if len(keys) == 0 || keys[0] == nil {
		return nil, errors.New("harness: ao menos uma chave de assinatura é obrigatória")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("harness: cenário inválido: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{
		backend:  backend,
		deployer: NewSigner(keys[0], backend),
		cfg:      cfg,
		log:      logger.Named("harness"),
	}, nil
}

// Run executa o cenário. O primeiro passo que falha aborta a execução e é
// nomeado no erro retornado.
func (h *Harness) Run(ctx context.Context) (Report, error) {
	deployer := h.deployer.Address()
	h.log.Info("implantando contratos", zap.String("deployer", deployer.Hex()))

	r, err := h.deployer.Send(ctx, models.MethodDeployRegistry, models.DeployRegistryParams{})
	if err != nil {
		return Report{}, fmt.Errorf("falha ao implantar registro: %w", err)
	}
	if r.ContractAddress == nil {
		return Report{}, errors.New("falha ao implantar registro: recibo sem endereço de contrato")
	}
	registry := *r.ContractAddress
	h.log.Info("registro implantado", zap.String("address", registry.Hex()))

	r, err = h.deployer.Send(ctx, models.MethodDeployVault, models.DeployVaultParams{
		Symbol:    h.cfg.Symbol,
		MaxSupply: h.cfg.MaxSupply,
		Param:     h.cfg.Param,
	})
	if err != nil {
		return Report{}, fmt.Errorf("falha ao implantar cofre: %w", err)
	}
	if r.ContractAddress == nil {
		return Report{}, errors.New("falha ao implantar cofre: recibo sem endereço de contrato")
	}
	vault := *r.ContractAddress
	h.log.Info("cofre implantado", zap.String("address", vault.Hex()), zap.String("symbol", h.cfg.Symbol))

	if _, err = h.deployer.Send(ctx, models.MethodMint, models.MintParams{
		Registry: registry,
		To:       deployer,
		TokenID:  h.cfg.TokenID,
	}); err != nil {
		return Report{}, fmt.Errorf("falha ao cunhar token %s: %w", h.cfg.TokenID, err)
	}

	if _, err = h.deployer.Send(ctx, models.MethodSetApprovalForAll, models.SetApprovalForAllParams{
		Registry: registry,
		Operator: vault,
		Approved: true,
	}); err != nil {
		return Report{}, fmt.Errorf("falha ao aprovar cofre: %w", err)
	}

	r, err = h.deployer.Send(ctx, models.MethodFractionalize, models.FractionalizeParams{
		Vault:    vault,
		Registry: registry,
		TokenID:  h.cfg.TokenID,
		Shares:   h.cfg.Shares,
	})
	if err != nil {
		return Report{}, fmt.Errorf("falha ao fracionar token %s: %w", h.cfg.TokenID, err)
	}

	balance, err := h.backend.BalanceOf(ctx, vault, deployer)
	if err != nil {
		return Report{}, fmt.Errorf("falha ao ler saldo: %w", err)
	}
	custodian, err := h.backend.OwnerOf(ctx, registry, h.cfg.TokenID)
	if err != nil {
		return Report{}, fmt.Errorf("falha ao ler dono do token %s: %w", h.cfg.TokenID, err)
	}

	report := Report{
		Deployer:  deployer,
		Registry:  registry,
		Vault:     vault,
		TokenID:   new(big.Int).Set(h.cfg.TokenID),
		Balance:   balance,
		Custodian: custodian,
		Height:    r.Height,
	}
	h.log.Info("ativo fracionado",
		zap.String("registry", registry.Hex()),
		zap.String("vault", vault.Hex()),
		zap.String("balance", balance.String()),
		zap.String("custodian", custodian.Hex()))
	return report, nil
}
