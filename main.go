package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/config"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "fnft",
		Short: "Cofres de fracionamento de NFT numa cadeia local estilo EVM",
		Long: `fnft hospeda registros de ativos e cofres de fracionamento.

Um cofre assume a custódia de um ativo não fungível e emite frações fungíveis
lastreadas nele, até o teto de suprimento fixado no deploy do cofre.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "arquivo de configuração YAML")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "arquivo dotenv com RPCURL, ALCHEMY_API_KEY e PRIVATE_KEY")

	cmd.AddCommand(newServeCmd(flags), newDeployCmd(flags))
	return cmd
}

// load lê e valida a configuração e monta o logger.
func (f *rootFlags) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configFile, f.envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger, _ := zap.NewDevelopment()
		logger.Error("fnft falhou", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
