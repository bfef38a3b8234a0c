package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	"github.com/ferreirogomes/fnft/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB representa o índice PostgreSQL de eventos da cadeia e registros de custódia.
type DB struct {
	*sqlx.DB
	log *zap.Logger
}

// NewDB conecta-se ao PostgreSQL e executa as migrações.
func NewDB(dataSourceName string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao pingar o banco de dados: %w", err)
	}
	logger.Info("conexão com PostgreSQL estabelecida")

	if err := runMigrations(db.DB, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}
	return &DB{DB: db, log: logger}, nil
}

func runMigrations(db *sql.DB, logger *zap.Logger) error {
	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		logger.Info("migrações aplicadas", zap.Int("count", n))
	} else {
		logger.Debug("nenhuma migração nova para aplicar")
	}
	return nil
}

type eventRow struct {
	ID        string         `db:"id"`
	Height    int64          `db:"height"`
	Idx       int            `db:"idx"`
	TxHash    string         `db:"tx_hash"`
	Contract  string         `db:"contract"`
	Name      string         `db:"name"`
	Args      types.JSONText `db:"args"`
	CreatedAt time.Time      `db:"created_at"`
}

// SaveEvent salva e. Salvar o mesmo evento duas vezes não faz nada.
func (d *DB) SaveEvent(ctx context.Context, e models.Event) error {
	args, err := json.Marshal(e.Args)
	if err != nil {
		return fmt.Errorf("falha ao codificar args do evento: %w", err)
	}
	if e.Args == nil {
		args = []byte("{}")
	}
	row := eventRow{
		ID:        e.ID,
		Height:    int64(e.Height),
		Idx:       e.Index,
		TxHash:    e.TxHash.Hex(),
		Contract:  e.Contract.Hex(),
		Name:      e.Name,
		Args:      types.JSONText(args),
		CreatedAt: e.CreatedAt,
	}
	query := `INSERT INTO chain_events (id, height, idx, tx_hash, contract, name, args, created_at)
		VALUES (:id, :height, :idx, :tx_hash, :contract, :name, :args, :created_at)
		ON CONFLICT (tx_hash, idx) DO NOTHING`
	if _, err := d.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("falha ao salvar evento %s: %w", e.ID, err)
	}
	return nil
}

// EventsByContract retorna até limit eventos emitidos por contract, do mais novo ao mais antigo.
func (d *DB) EventsByContract(ctx context.Context, contract common.Address, limit int) ([]models.Event, error) {
	var rows []eventRow
	query := `SELECT id, height, idx, tx_hash, contract, name, args, created_at
		FROM chain_events WHERE contract = $1
		ORDER BY height DESC, idx DESC LIMIT $2`
	if err := d.SelectContext(ctx, &rows, query, contract.Hex(), limit); err != nil {
		return nil, fmt.Errorf("falha ao buscar eventos de %s: %w", contract.Hex(), err)
	}

	events := make([]models.Event, 0, len(rows))
	for _, r := range rows {
		e := models.Event{
			ID:        r.ID,
			Height:    uint64(r.Height),
			Index:     r.Idx,
			TxHash:    common.HexToHash(r.TxHash),
			Contract:  common.HexToAddress(r.Contract),
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
		}
		if err := r.Args.Unmarshal(&e.Args); err != nil {
			return nil, fmt.Errorf("falha ao decodificar args do evento %s: %w", r.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

type fractionalizationRow struct {
	ID        string    `db:"id"`
	Vault     string    `db:"vault"`
	Registry  string    `db:"registry"`
	TokenID   string    `db:"token_id"`
	Depositor string    `db:"depositor"`
	Shares    string    `db:"shares"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveFractionalization insere rec, ou atualiza o registro já guardado para o
// mesmo cofre e ativo.
func (d *DB) SaveFractionalization(ctx context.Context, rec models.Fractionalization) error {
	if rec.TokenID == nil || rec.Shares == nil {
		return fmt.Errorf("falha ao salvar fracionamento %s: token id e frações são obrigatórios", rec.ID)
	}
	row := fractionalizationRow{
		ID:        rec.ID,
		Vault:     rec.Vault.Hex(),
		Registry:  rec.Registry.Hex(),
		TokenID:   rec.TokenID.String(),
		Depositor: rec.Depositor.Hex(),
		Shares:    rec.Shares.String(),
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
	query := `INSERT INTO fractionalizations (id, vault, registry, token_id, depositor, shares, status, created_at)
		VALUES (:id, :vault, :registry, :token_id, :depositor, :shares, :status, :created_at)
		ON CONFLICT (vault, registry, token_id) DO UPDATE SET
			id = EXCLUDED.id, depositor = EXCLUDED.depositor, shares = EXCLUDED.shares,
			status = EXCLUDED.status, created_at = EXCLUDED.created_at`
	if _, err := d.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("falha ao salvar fracionamento %s: %w", rec.ID, err)
	}
	return nil
}

// FractionalizationsByVault lista os registros de custódia de vault, do mais antigo ao mais novo.
func (d *DB) FractionalizationsByVault(ctx context.Context, vault common.Address) ([]models.Fractionalization, error) {
	var rows []fractionalizationRow
	query := `SELECT id, vault, registry, token_id::text AS token_id, depositor, shares::text AS shares, status, created_at
		FROM fractionalizations WHERE vault = $1 ORDER BY created_at, id`
	if err := d.SelectContext(ctx, &rows, query, vault.Hex()); err != nil {
		return nil, fmt.Errorf("falha ao buscar fracionamentos de %s: %w", vault.Hex(), err)
	}

	recs := make([]models.Fractionalization, 0, len(rows))
	for _, r := range rows {
		tokenID, ok := new(big.Int).SetString(r.TokenID, 10)
		if !ok {
			return nil, fmt.Errorf("fracionamento %s: token id inválido %q", r.ID, r.TokenID)
		}
		shares, ok := new(big.Int).SetString(r.Shares, 10)
		if !ok {
			return nil, fmt.Errorf("fracionamento %s: frações inválidas %q", r.ID, r.Shares)
		}
		recs = append(recs, models.Fractionalization{
			ID:        r.ID,
			Vault:     common.HexToAddress(r.Vault),
			Registry:  common.HexToAddress(r.Registry),
			TokenID:   tokenID,
			Depositor: common.HexToAddress(r.Depositor),
			Shares:    shares,
			Status:    models.CustodyStatus(r.Status),
			CreatedAt: r.CreatedAt,
		})
	}
	return recs, nil
}
