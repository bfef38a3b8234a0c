package listener

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/models"
)

// Store é onde o listener guarda o que indexa.
type Store interface {
	SaveEvent(ctx context.Context, e models.Event) error
	SaveFractionalization(ctx context.Context, rec models.Fractionalization) error
}

// Source é um feed de eventos confirmados na cadeia. chain.Local o implementa.
type Source interface {
	Subscribe(buffer int) (<-chan models.Event, func())
}

// Listener acompanha os eventos confirmados na cadeia para manter o DB sincronizado.
// A cadeia continua sendo a fonte da verdade; uma escrita que falha é logada e ignorada.
type Listener struct {
	events <-chan models.Event
	store  Store
	log    *zap.Logger
}

// New cria uma nova instância do listener lendo de events.
func New(events <-chan models.Event, store Store, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		events: events,
		store:  store,
		log:    logger.Named("listener"),
	}
}

// Run consome eventos até ctx terminar ou o canal de eventos ser fechado.
// Retorna ctx.Err() no primeiro caso e nil no segundo.
func (l *Listener) Run(ctx context.Context) error {
	l.log.Info("iniciando listener da cadeia")
	for {
		select {
		case <-ctx.Done():
			l.log.Info("listener parado", zap.Error(ctx.Err()))
			return ctx.Err()
		case e, ok := <-l.events:
			if !ok {
				l.log.Warn("feed de eventos fechado")
				return nil
			}
			l.ProcessEvent(ctx, e)
		}
	}
}

// Follow mantém um listener inscrito em src até ctx terminar. Um feed que se
// fecha (a cadeia descarta assinantes atrasados) é assinado de novo; eventos
// confirmados nesse intervalo não são indexados.
func Follow(ctx context.Context, src Source, buffer int, store Store, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, unsubscribe := src.Subscribe(buffer)
		err := New(events, store, logger).Run(ctx)
		unsubscribe()
		if err != nil {
			return err
		}
		logger.Warn("feed de eventos descartado, assinando de novo; o índice pode perder eventos")
	}
}

// ProcessEvent indexa um único evento.
func (l *Listener) ProcessEvent(ctx context.Context, e models.Event) {
	if err := l.store.SaveEvent(ctx, e); err != nil {
		l.log.Error("falha ao salvar evento",
			zap.String("event", e.ID),
			zap.String("name", e.Name),
			zap.Uint64("height", e.Height),
			zap.Error(err))
	}

	if e.Name != models.EventFractionalized {
		return
	}
	rec, err := fractionalizationFromEvent(e)
	if err != nil {
		l.log.Error("evento de fracionamento malformado", zap.String("event", e.ID), zap.Error(err))
		return
	}
	if err := l.store.SaveFractionalization(ctx, rec); err != nil {
		l.log.Error("falha ao salvar fracionamento",
			zap.String("record", rec.ID),
			zap.String("vault", rec.Vault.Hex()),
			zap.Error(err))
		return
	}
	l.log.Info("fracionamento indexado",
		zap.String("vault", rec.Vault.Hex()),
		zap.String("asset", rec.Asset().String()),
		zap.String("shares", rec.Shares.String()))
}

func fractionalizationFromEvent(e models.Event) (models.Fractionalization, error) {
	id := e.Args["record_id"]
	if id == "" {
		return models.Fractionalization{}, errors.New("record_id ausente")
	}
	registry, ok := e.Args["registry"]
	if !ok || !common.IsHexAddress(registry) {
		return models.Fractionalization{}, fmt.Errorf("registry inválido %q", registry)
	}
	depositor, ok := e.Args["depositor"]
	if !ok || !common.IsHexAddress(depositor) {
		return models.Fractionalization{}, fmt.Errorf("depositor inválido %q", depositor)
	}
	tokenID, ok := new(big.Int).SetString(e.Args["token_id"], 10)
	if !ok {
		return models.Fractionalization{}, fmt.Errorf("token_id inválido %q", e.Args["token_id"])
	}
	shares, ok := new(big.Int).SetString(e.Args["shares"], 10)
	if !ok {
		return models.Fractionalization{}, fmt.Errorf("shares inválido %q", e.Args["shares"])
	}
	return models.Fractionalization{
		ID:        id,
		Vault:     e.Contract,
		Registry:  common.HexToAddress(registry),
		TokenID:   tokenID,
		Depositor: common.HexToAddress(depositor),
		Shares:    shares,
		Status:    models.CustodyInCustody,
		CreatedAt: e.CreatedAt,
	}, nil
}
