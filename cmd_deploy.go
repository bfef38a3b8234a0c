package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/services"
)

type deployFlags struct {
	symbol    string
	maxSupply string
	param     string
	tokenID   string
	shares    string
}

func newDeployCmd(root *rootFlags) *cobra.Command {
	def := services.DefaultHarnessConfig()
	flags := &deployFlags{}
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Implanta um registro e um cofre e fraciona um ativo",
		Long: `Implanta um registro de ativos e um cofre, cunha um ativo para o deployer,
aprova o cofre e fraciona o ativo.

Na rede hardhat tudo roda em processo. Qualquer outra rede é acessada via
HTTP em RPCURL com ALCHEMY_API_KEY, assinando com PRIVATE_KEY.

Exemplo:
  fnft deploy --symbol FNFT --max-supply 1000000000 --param 5 --shares 1000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := flags.scenario()
			if err != nil {
				return err
			}
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			keys, err := cfg.Signers()
			if err != nil {
				return err
			}

			var backend services.Backend
			if cfg.IsLocal() {
				backend = services.NewLocalBackend(chain.NewLocal(cfg.Network.ChainID, logger))
			} else {
				client, err := services.NewChainClient(cfg.Network.RPCURL, cfg.Network.APIKey)
				if err != nil {
					return err
				}
				backend = client
			}
			logger.Info("iniciando deploy", zap.String("network", cfg.Network.Name))

			h, err := services.NewHarness(backend, keys, scenario, logger)
			if err != nil {
				return err
			}
			report, err := h.Run(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&flags.symbol, "symbol", def.Symbol, "símbolo das frações")
	cmd.Flags().StringVar(&flags.maxSupply, "max-supply", def.MaxSupply.String(), "teto de frações")
	cmd.Flags().StringVar(&flags.param, "param", def.Param.String(), "terceiro argumento do construtor do cofre")
	cmd.Flags().StringVar(&flags.tokenID, "token-id", def.TokenID.String(), "id do ativo a cunhar e fracionar")
	cmd.Flags().StringVar(&flags.shares, "shares", def.Shares.String(), "frações a emitir")
	return cmd
}

func (f *deployFlags) scenario() (services.HarnessConfig, error) {
	parse := func(name, s string) (*big.Int, error) {
		v, ok := math.ParseBig256(s)
		if !ok || v.Sign() < 0 {
			return nil, fmt.Errorf("--%s: %q não é um uint256", name, s)
		}
		return v, nil
	}
	cfg := services.HarnessConfig{Symbol: f.symbol}
	var err error
	if cfg.MaxSupply, err = parse("max-supply", f.maxSupply); err != nil {
		return cfg, err
	}
	if cfg.Param, err = parse("param", f.param); err != nil {
		return cfg, err
	}
	if cfg.TokenID, err = parse("token-id", f.tokenID); err != nil {
		return cfg, err
	}
	if cfg.Shares, err = parse("shares", f.shares); err != nil {
		return cfg, err
	}
	return cfg, nil
}
