package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/models"
)

// APIKeyHeader leva a chave de API em toda requisição.
const APIKeyHeader = "X-API-Key"

// ChainClient é um Backend que conversa com um servidor fnft em execução.
type ChainClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewChainClient valida rpcURL e retorna um cliente para ele.
func NewChainClient(rpcURL, apiKey string) (*ChainClient, error) {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("url rpc inválida: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("url rpc inválida %q: o esquema deve ser http ou https", rpcURL)
	}
	return &ChainClient{
		baseURL: strings.TrimRight(rpcURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *ChainClient) ChainID(ctx context.Context) (uint64, error) {
	var status models.ChainStatus
	if err := c.do(ctx, http.MethodGet, "/chain", nil, &status); err != nil {
		return 0, err
	}
	return status.ChainID, nil
}

func (c *ChainClient) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	var resp models.NonceResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+account.Hex()+"/nonce", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

func (c *ChainClient) Submit(ctx context.Context, tx models.Transaction) (models.Receipt, error) {
	var receipt models.Receipt
	if err := c.do(ctx, http.MethodPost, "/transactions", tx, &receipt); err != nil {
		return models.Receipt{}, err
	}
	return receipt, nil
}

func (c *ChainClient) OwnerOf(ctx context.Context, registry common.Address, tokenID *big.Int) (common.Address, error) {
	var resp models.OwnerResponse
	path := fmt.Sprintf("/registries/%s/tokens/%s/owner", registry.Hex(), tokenID.String())
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return common.Address{}, err
	}
	return resp.Owner, nil
}

func (c *ChainClient) BalanceOf(ctx context.Context, vault, account common.Address) (*big.Int, error) {
	var resp models.BalanceResponse
	path := fmt.Sprintf("/vaults/%s/balances/%s", vault.Hex(), account.Hex())
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Balance == nil {
		return new(big.Int), nil
	}
	return resp.Balance, nil
}

// do envia uma requisição JSON e decodifica a resposta em out. Corpos de erro
// voltam a ser os erros sentinela da cadeia.
func (c *ChainClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("falha ao codificar requisição: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("falha ao montar requisição: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return fmt.Errorf("%s %s: status inesperado %d", method, path, resp.StatusCode)
		}
		return chain.ErrorFromCode(e.Code, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("falha ao decodificar resposta de %s %s: %w", method, path, err)
	}
	return nil
}
