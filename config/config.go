package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LocalNetwork é o nome da rede em processo. Não precisa de endpoint RPC.
const LocalNetwork = "hardhat"

// envBindings mapeia chaves de configuração para os nomes de ambiente que o
// ferramental de deploy sempre usou.
var envBindings = map[string]string{
	"network.rpc_url":      "RPCURL",
	"network.api_key":      "ALCHEMY_API_KEY",
	"network.private_keys": "PRIVATE_KEY",
	"server.database_url":  "DATABASE_URL",
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console ou json
}

type NetworkConfig struct {
	Name        string   `mapstructure:"name"`
	ChainID     uint64   `mapstructure:"chain_id"`
	RPCURL      string   `mapstructure:"rpc_url"`
	APIKey      string   `mapstructure:"api_key"`
	PrivateKeys []string `mapstructure:"private_keys"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	APIKey          string        `mapstructure:"api_key"`
	DatabaseURL     string        `mapstructure:"database_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Network NetworkConfig `mapstructure:"network"`
	Server  ServerConfig  `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("network.name", LocalNetwork)
	v.SetDefault("network.chain_id", 31337)
	v.SetDefault("network.rpc_url", "")
	v.SetDefault("network.api_key", "")
	v.SetDefault("network.private_keys", []string{})
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.database_url", "")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// Load lê a configuração dos defaults, do arquivo YAML opcional, do arquivo
// dotenv opcional e do ambiente, em prioridade crescente.
// Além dos nomes legados em envBindings, toda chave pode ser definida como
// FNFT_<SEÇÃO>_<CHAVE>, ex: FNFT_SERVER_LISTEN_ADDR.
func Load(configFile, envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("FNFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env, "FNFT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if envFile != "" {
		if err := mergeDotEnv(v, envFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Network.PrivateKeys = splitKeys(cfg.Network.PrivateKeys)
	return &cfg, nil
}

// mergeDotEnv aplica valores do arquivo dotenv a toda variável vinculada que o
// ambiente do processo ainda não define. Arquivo ausente não é erro.
func mergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for key, env := range envBindings {
		if _, ok := os.LookupEnv(env); ok {
			continue
		}
		if dot.IsSet(env) {
			v.Set(key, dot.GetString(env))
		}
	}
	return nil
}

// splitKeys aceita tanto listas quanto strings separadas por vírgula.
func splitKeys(in []string) []string {
	var out []string
	for _, s := range in {
		for _, k := range strings.Split(s, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// IsLocal informa se a cadeia em processo é usada.
func (c *Config) IsLocal() bool {
	return c.Network.Name == LocalNetwork
}

// Validate reporta todos os problemas de uma vez.
func (c *Config) Validate() error {
	var err error
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log.level: %w", lerr))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		err = multierr.Append(err, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if c.Network.Name == "" {
		err = multierr.Append(err, errors.New("network.name is required"))
	}
	if c.Network.ChainID == 0 {
		err = multierr.Append(err, errors.New("network.chain_id must be positive"))
	}
	if c.Server.ListenAddr == "" {
		err = multierr.Append(err, errors.New("server.listen_addr is required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout must be positive"))
	}

	if !c.IsLocal() {
		if u, perr := url.Parse(c.Network.RPCURL); perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("network %s: RPCURL must be an http(s) URL, got %q", c.Network.Name, c.Network.RPCURL))
		}
		if c.Network.APIKey == "" {
			err = multierr.Append(err, fmt.Errorf("network %s: ALCHEMY_API_KEY is required", c.Network.Name))
		}
		if len(c.Network.PrivateKeys) == 0 {
			err = multierr.Append(err, fmt.Errorf("network %s: PRIVATE_KEY is required", c.Network.Name))
		}
	}
	for i, k := range c.Network.PrivateKeys {
		if _, kerr := parseKey(k); kerr != nil {
			err = multierr.Append(err, fmt.Errorf("PRIVATE_KEY[%d]: %w", i, kerr))
		}
	}
	return err
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X"))
}

// Signers retorna as contas configuradas; a primeira é a do deployer.
// Na rede local, sem chaves, são geradas duas contas descartáveis.
func (c *Config) Signers() ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(c.Network.PrivateKeys))
	for i, k := range c.Network.PrivateKeys {
		key, err := parseKey(k)
		if err != nil {
			return nil, fmt.Errorf("PRIVATE_KEY[%d]: %w", i, err)
		}
		keys = append(keys, key)
	}
	if len(keys) > 0 {
		return keys, nil
	}
	if !c.IsLocal() {
		return nil, fmt.Errorf("network %s: no signer keys configured", c.Network.Name)
	}
	for i := 0; i < 2; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate account: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Build retorna o logger do programa.
func (c LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var zc zap.Config
	if c.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeCaller = nil
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("fnft"), nil
}
