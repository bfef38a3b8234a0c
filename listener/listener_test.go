package listener_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ferreirogomes/fnft/chain"
	"github.com/ferreirogomes/fnft/listener"
	"github.com/ferreirogomes/fnft/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveEvent(ctx context.Context, e models.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockStore) SaveFractionalization(ctx context.Context, rec models.Fractionalization) error {
	return m.Called(ctx, rec).Error(0)
}

func fractionalizedEvent(vault common.Address) models.Event {
	return models.Event{
		ID:       "evt-1",
		Height:   5,
		Contract: vault,
		Name:     models.EventFractionalized,
		Args: map[string]string{
			"record_id": "rec-1",
			"registry":  common.HexToAddress("0x0a").Hex(),
			"token_id":  "1",
			"depositor": common.HexToAddress("0x0b").Hex(),
			"shares":    "1000000",
		},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestProcessEventIndexesFractionalization(t *testing.T) {
	store := new(MockStore)
	vault := common.HexToAddress("0x0c")
	e := fractionalizedEvent(vault)

	store.On("SaveEvent", mock.Anything, e).Return(nil).Once()
	store.On("SaveFractionalization", mock.Anything, mock.MatchedBy(func(rec models.Fractionalization) bool {
		return rec.ID == "rec-1" &&
			rec.Vault == vault &&
			rec.Registry == common.HexToAddress("0x0a") &&
			rec.TokenID.Int64() == 1 &&
			rec.Shares.Int64() == 1_000_000 &&
			rec.Status == models.CustodyInCustody
	})).Return(nil).Once()

	listener.New(nil, store, nil).ProcessEvent(context.Background(), e)
	store.AssertExpectations(t)
}

func TestProcessEventSkipsMalformedArgs(t *testing.T) {
	store := new(MockStore)
	e := fractionalizedEvent(common.HexToAddress("0x0c"))
	e.Args["shares"] = "lots"

	store.On("SaveEvent", mock.Anything, e).Return(nil).Once()

	listener.New(nil, store, nil).ProcessEvent(context.Background(), e)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveFractionalization", mock.Anything, mock.Anything)
}

func TestProcessEventStoreErrorIsNotFatal(t *testing.T) {
	store := new(MockStore)
	e := fractionalizedEvent(common.HexToAddress("0x0c"))
	store.On("SaveEvent", mock.Anything, e).Return(errors.New("db down")).Once()
	store.On("SaveFractionalization", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	assert.NotPanics(t, func() {
		listener.New(nil, store, nil).ProcessEvent(context.Background(), e)
	})
	store.AssertExpectations(t)
}

func TestProcessEventOtherEventsOnlySaved(t *testing.T) {
	store := new(MockStore)
	e := models.Event{ID: "evt-2", Name: models.EventTransfer, Args: map[string]string{"token_id": "1"}}
	store.On("SaveEvent", mock.Anything, e).Return(nil).Once()

	listener.New(nil, store, nil).ProcessEvent(context.Background(), e)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "SaveFractionalization", mock.Anything, mock.Anything)
}

func TestRunStopsOnCancel(t *testing.T) {
	events := make(chan models.Event)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.New(events, new(MockStore), nil).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestRunFollowsChain(t *testing.T) {
	c := chain.NewLocal(chain.DefaultChainID, nil)
	events, unsubscribe := c.Subscribe(64)

	store := new(MockStore)
	store.On("SaveEvent", mock.Anything, mock.Anything).Return(nil)
	indexed := make(chan models.Fractionalization, 1)
	store.On("SaveFractionalization", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { indexed <- args.Get(1).(models.Fractionalization) }).
		Return(nil).Once()

	done := make(chan error, 1)
	go func() { done <- listener.New(events, store, nil).Run(context.Background()) }()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	deployer := crypto.PubkeyToAddress(key.PublicKey)
	send := func(method string, params interface{}) models.Receipt {
		r, err := c.Submit(signTx(t, c, key, method, params))
		require.NoError(t, err)
		return r
	}
	registry := *send(models.MethodDeployRegistry, models.DeployRegistryParams{}).ContractAddress
	vault := *send(models.MethodDeployVault, models.DeployVaultParams{Symbol: "FNFT", MaxSupply: big.NewInt(100)}).ContractAddress
	send(models.MethodMint, models.MintParams{Registry: registry, To: deployer, TokenID: big.NewInt(7)})
	send(models.MethodSetApprovalForAll, models.SetApprovalForAllParams{Registry: registry, Operator: vault, Approved: true})
	send(models.MethodFractionalize, models.FractionalizeParams{Vault: vault, Registry: registry, TokenID: big.NewInt(7), Shares: big.NewInt(40)})

	select {
	case rec := <-indexed:
		assert.Equal(t, vault, rec.Vault)
		assert.Equal(t, deployer, rec.Depositor)
		assert.Equal(t, int64(7), rec.TokenID.Int64())
		assert.Equal(t, int64(40), rec.Shares.Int64())
	case <-time.After(2 * time.Second):
		t.Fatal("fractionalization was not indexed")
	}

	unsubscribe()
	require.NoError(t, <-done)
}

func signTx(t *testing.T, c *chain.Local, key *ecdsa.PrivateKey, method string, params interface{}) models.Transaction {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	tx, err := chain.SignTx(c.ChainID(), models.Transaction{
		Nonce:  c.Nonce(crypto.PubkeyToAddress(key.PublicKey)),
		Method: method,
		Params: raw,
	}, key)
	require.NoError(t, err)
	return tx
}

type scriptedSource struct {
	feeds []chan models.Event
	calls int
}

func (s *scriptedSource) Subscribe(int) (<-chan models.Event, func()) {
	ch := s.feeds[s.calls]
	s.calls++
	return ch, func() {}
}

func TestFollowResubscribesAfterDrop(t *testing.T) {
	dropped := make(chan models.Event)
	close(dropped)
	live := make(chan models.Event, 1)
	src := &scriptedSource{feeds: []chan models.Event{dropped, live}}

	saved := make(chan models.Event, 1)
	store := new(MockStore)
	store.On("SaveEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(1).(models.Event) }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Follow(ctx, src, 8, store, nil) }()

	live <- models.Event{ID: "after-drop", Name: models.EventTransfer}
	select {
	case e := <-saved:
		assert.Equal(t, "after-drop", e.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event after resubscribe was not indexed")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 2, src.calls)
	store.AssertExpectations(t)
}

func TestFollowSlowSubscriberOnChain(t *testing.T) {
	c := chain.NewLocal(chain.DefaultChainID, nil)
	store := new(MockStore)
	store.On("SaveEvent", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Follow(ctx, c, 1, store, nil) }()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := c.Submit(signTx(t, c, key, models.MethodDeployRegistry, models.DeployRegistryParams{}))
		require.NoError(t, err)
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
