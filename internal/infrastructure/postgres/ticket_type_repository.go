package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/transaction"
)

type ticketTypeRow struct {
	ID            string    `db:"id"`
	EventID       string    `db:"event_id"`
	Name          string    `db:"name"`
	Price         int       `db:"price"`
	TotalQuantity int       `db:"total_quantity"`
	QuantitySold  int       `db:"quantity_sold"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	Version       int       `db:"version"`
}

func (r *ticketTypeRow) toEntity() *ticket.TicketType {
	return &ticket.TicketType{
		ID: r.ID, EventID: r.EventID, Name: r.Name, Price: r.Price,
		TotalQuantity: r.TotalQuantity, QuantitySold: r.QuantitySold,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

// TicketTypeRepository はチケット種別リポジトリのPostgreSQL実装
type TicketTypeRepository struct{ db *sqlx.DB }

// NewTicketTypeRepository はTicketTypeRepositoryを作成する
func NewTicketTypeRepository(db *sqlx.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

// Create は新しいチケット種別を作成する
func (r *TicketTypeRepository) Create(ctx context.Context, t *ticket.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, name, price, total_quantity, quantity_sold, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		t.EventID, t.Name, t.Price, t.TotalQuantity, t.QuantitySold, t.CreatedAt, t.UpdatedAt, t.Version,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("チケット種別作成に失敗: %w", err)
	}
	return nil
}

// GetByID はIDからチケット種別を取得する
func (r *TicketTypeRepository) GetByID(ctx context.Context, id string) (*ticket.TicketType, error) {
	query := `SELECT id, event_id, name, price, total_quantity, quantity_sold, created_at, updated_at, version FROM ticket_types WHERE id = $1`
	var row ticketTypeRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ticket.ErrTicketTypeNotFound
		}
		return nil, fmt.Errorf("チケット種別取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetByEventID はイベントIDからチケット種別一覧を取得する
func (r *TicketTypeRepository) GetByEventID(ctx context.Context, eventID string) ([]*ticket.TicketType, error) {
	query := `SELECT id, event_id, name, price, total_quantity, quantity_sold, created_at, updated_at, version FROM ticket_types WHERE event_id = $1 ORDER BY price`
	var rows []ticketTypeRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("チケット種別一覧取得に失敗: %w", err)
	}
	types := make([]*ticket.TicketType, len(rows))
	for i, row := range rows {
		types[i] = row.toEntity()
	}
	return types, nil
}

// ListIDs は全チケット種別のIDを返す
func (r *TicketTypeRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM ticket_types`); err != nil {
		return nil, fmt.Errorf("チケット種別ID一覧取得に失敗: %w", err)
	}
	return ids, nil
}

// IncrementSold は販売数を加算する（トランザクション必須）
// 総数を超える加算はWHERE句で弾き、更新0件を ErrSoldExceedsTotal として返す
func (r *TicketTypeRepository) IncrementSold(ctx context.Context, tx transaction.Tx, id string, quantity int) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションの型が不正です")
	}
	query := `
		UPDATE ticket_types
		SET quantity_sold = quantity_sold + $1, updated_at = NOW(), version = version + 1
		WHERE id = $2 AND quantity_sold + $1 <= total_quantity
	`
	result, err := sqlxTx.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("販売数の更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		return ticket.ErrSoldExceedsTotal
	}
	return nil
}

var _ ticket.Repository = (*TicketTypeRepository)(nil)
