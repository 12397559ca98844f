package ticket

import (
	"context"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/transaction"
)

// Repository はチケット種別リポジトリのインターフェース
type Repository interface {
	// Create は新しいチケット種別を作成する
	Create(ctx context.Context, t *TicketType) error

	// GetByID はIDからチケット種別を取得する
	GetByID(ctx context.Context, id string) (*TicketType, error)

	// GetByEventID はイベントIDからチケット種別一覧を取得する
	GetByEventID(ctx context.Context, eventID string) ([]*TicketType, error)

	// ListIDs は全チケット種別のIDを返す（スイーパーの巡回用）
	ListIDs(ctx context.Context) ([]string, error)

	// IncrementSold は販売数を加算する（トランザクション必須）
	// quantity_sold + quantity が total_quantity を超える場合は ErrSoldExceedsTotal
	IncrementSold(ctx context.Context, tx transaction.Tx, id string, quantity int) error
}
