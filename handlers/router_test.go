package handlers_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/handlers"
	"github.com/ferreirogomes/fnft/models"
)

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) EventsByContract(ctx context.Context, contract common.Address, limit int) ([]models.Event, error) {
	args := m.Called(ctx, contract, limit)
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventStore) FractionalizationsByVault(ctx context.Context, vault common.Address) ([]models.Fractionalization, error) {
	args := m.Called(ctx, vault)
	return args.Get(0).([]models.Fractionalization), args.Error(1)
}

type fixture struct {
	chain    *chain.Local
	router   http.Handler
	key      *ecdsa.PrivateKey
	deployer common.Address
}

func newFixture(t *testing.T, events handlers.EventStore, apiKey string) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	c := chain.NewLocal(chain.DefaultChainID, nil)
	return &fixture{
		chain:    c,
		router:   handlers.NewRouter(c, events, apiKey),
		key:      key,
		deployer: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (f *fixture) sign(t *testing.T, method string, params interface{}) models.Transaction {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	tx, err := chain.SignTx(f.chain.ChainID(), models.Transaction{
		Nonce:  f.chain.Nonce(f.deployer),
		Method: method,
		Params: raw,
	}, f.key)
	require.NoError(t, err)
	return tx
}

func (f *fixture) post(t *testing.T, tx models.Transaction, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(tx)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(handlers.APIKeyHeader, apiKey)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *fixture) mustSubmit(t *testing.T, method string, params interface{}) models.Receipt {
	t.Helper()
	rec := f.post(t, f.sign(t, method, params), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var receipt models.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	return receipt
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func TestChainStatusAndNonce(t *testing.T) {
	f := newFixture(t, nil, "")

	rec := f.get(t, "/chain")
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.ChainStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, chain.DefaultChainID, status.ChainID)

	f.mustSubmit(t, models.MethodDeployRegistry, models.DeployRegistryParams{})

	rec = f.get(t, "/accounts/"+f.deployer.Hex()+"/nonce")
	require.Equal(t, http.StatusOK, rec.Code)
	var nonce models.NonceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&nonce))
	assert.Equal(t, uint64(1), nonce.Nonce)

	rec = f.get(t, "/accounts/not-an-address/nonce")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFractionalizeOverHTTP(t *testing.T) {
	f := newFixture(t, nil, "")
	registry := *f.mustSubmit(t, models.MethodDeployRegistry, models.DeployRegistryParams{}).ContractAddress
	vault := *f.mustSubmit(t, models.MethodDeployVault, models.DeployVaultParams{
		Symbol: "FNFT", MaxSupply: big.NewInt(1_000_000_000), Param: big.NewInt(5),
	}).ContractAddress
	f.mustSubmit(t, models.MethodMint, models.MintParams{Registry: registry, To: f.deployer, TokenID: big.NewInt(1)})

	// Without approval the vault must refuse.
	rec := f.post(t, f.sign(t, models.MethodFractionalize, models.FractionalizeParams{
		Vault: vault, Registry: registry, TokenID: big.NewInt(1), Shares: big.NewInt(1_000_000),
	}), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_approved", decodeError(t, rec).Code)

	f.mustSubmit(t, models.MethodSetApprovalForAll, models.SetApprovalForAllParams{Registry: registry, Operator: vault, Approved: true})
	f.mustSubmit(t, models.MethodFractionalize, models.FractionalizeParams{
		Vault: vault, Registry: registry, TokenID: big.NewInt(1), Shares: big.NewInt(1_000_000),
	})

	rec = f.get(t, "/vaults/"+vault.Hex()+"/balances/"+f.deployer.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var bal models.BalanceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bal))
	assert.Equal(t, int64(1_000_000), bal.Balance.Int64())

	rec = f.get(t, "/registries/"+registry.Hex()+"/tokens/1/owner")
	require.Equal(t, http.StatusOK, rec.Code)
	var owner models.OwnerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&owner))
	assert.Equal(t, vault, owner.Owner)

	rec = f.get(t, "/vaults/"+vault.Hex()+"/custody/"+registry.Hex()+"/0x1")
	require.Equal(t, http.StatusOK, rec.Code)
	var custody models.Fractionalization
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&custody))
	assert.Equal(t, models.CustodyInCustody, custody.Status)

	rec = f.get(t, "/vaults/"+vault.Hex()+"/custody/"+registry.Hex()+"/2")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get(t, "/vaults/"+vault.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.VaultInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "FNFT", info.Config.Symbol)
	assert.Equal(t, 1, info.Records)

	rec = f.get(t, "/vaults/"+vault.Hex()+"/fractionalizations")
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []models.Fractionalization
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
	assert.Len(t, recs, 1)

	// Same asset again: double custody.
	rec = f.post(t, f.sign(t, models.MethodFractionalize, models.FractionalizeParams{
		Vault: vault, Registry: registry, TokenID: big.NewInt(1), Shares: big.NewInt(1),
	}), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_in_custody", decodeError(t, rec).Code)
}

func TestUnknownContractIs404(t *testing.T) {
	f := newFixture(t, nil, "")
	rec := f.get(t, "/vaults/"+common.HexToAddress("0x01").Hex()+"/balances/"+f.deployer.Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_contract", decodeError(t, rec).Code)
}

func TestSubmitRequiresAPIKey(t *testing.T) {
	f := newFixture(t, nil, "secret")
	tx := f.sign(t, models.MethodDeployRegistry, models.DeployRegistryParams{})

	rec := f.post(t, tx, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.post(t, tx, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.post(t, tx, "secret")
	assert.Equal(t, http.StatusCreated, rec.Code)

	// reads stay open
	assert.Equal(t, http.StatusOK, f.get(t, "/chain").Code)
}

func TestBadSignatureIs401(t *testing.T) {
	f := newFixture(t, nil, "")
	tx := f.sign(t, models.MethodDeployRegistry, models.DeployRegistryParams{})
	tx.Signature[10] ^= 0xff
	rec := f.post(t, tx, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVaultEvents(t *testing.T) {
	t.Run("no index", func(t *testing.T) {
		f := newFixture(t, nil, "")
		rec := f.get(t, "/vaults/"+f.deployer.Hex()+"/events")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("indexed", func(t *testing.T) {
		store := new(MockEventStore)
		f := newFixture(t, store, "")
		vault := common.HexToAddress("0x0000000000000000000000000000000000000f02")
		store.On("EventsByContract", mock.Anything, vault, 10).
			Return([]models.Event{{Name: models.EventFractionalized, Contract: vault}}, nil).Once()

		rec := f.get(t, "/vaults/"+vault.Hex()+"/events?limit=10")
		require.Equal(t, http.StatusOK, rec.Code)
		var events []models.Event
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&events))
		require.Len(t, events, 1)
		assert.Equal(t, models.EventFractionalized, events[0].Name)
		store.AssertExpectations(t)
	})

	t.Run("bad limit", func(t *testing.T) {
		f := newFixture(t, new(MockEventStore), "")
		rec := f.get(t, "/vaults/"+f.deployer.Hex()+"/events?limit=-3")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegistryInfoAndTokenCount(t *testing.T) {
	f := newFixture(t, nil, "")
	registry := *f.mustSubmit(t, models.MethodDeployRegistry, models.DeployRegistryParams{Name: "Punks", Symbol: "PNK"}).ContractAddress
	f.mustSubmit(t, models.MethodMint, models.MintParams{Registry: registry, To: f.deployer, TokenID: big.NewInt(1)})
	f.mustSubmit(t, models.MethodMint, models.MintParams{Registry: registry, To: f.deployer, TokenID: big.NewInt(2)})

	rec := f.get(t, "/registries/"+registry.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.RegistryInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, registry, info.Address)
	assert.Equal(t, f.deployer, info.Owner)
	assert.Equal(t, "Punks", info.Name)
	assert.Equal(t, "PNK", info.Symbol)

	rec = f.get(t, "/registries/"+registry.Hex()+"/balances/"+f.deployer.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	var count models.TokenCountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, 2, count.Tokens)

	rec = f.get(t, "/registries/"+common.HexToAddress("0x01").Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexedFractionalizations(t *testing.T) {
	vault := common.HexToAddress("0x0000000000000000000000000000000000000f02")

	t.Run("no index", func(t *testing.T) {
		f := newFixture(t, nil, "")
		rec := f.get(t, "/vaults/"+vault.Hex()+"/fractionalizations?indexed=true")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("indexed", func(t *testing.T) {
		store := new(MockEventStore)
		f := newFixture(t, store, "")
		store.On("FractionalizationsByVault", mock.Anything, vault).
			Return([]models.Fractionalization{{ID: "rec-1", Vault: vault, Status: models.CustodyInCustody}}, nil).Once()

		rec := f.get(t, "/vaults/"+vault.Hex()+"/fractionalizations?indexed=true")
		require.Equal(t, http.StatusOK, rec.Code)
		var recs []models.Fractionalization
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "rec-1", recs[0].ID)
		store.AssertExpectations(t)
	})

	t.Run("bad flag", func(t *testing.T) {
		f := newFixture(t, new(MockEventStore), "")
		rec := f.get(t, "/vaults/"+vault.Hex()+"/fractionalizations?indexed=maybe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
