package hold

import "context"

// MutateFunc はホールド一覧を受け取り、新しい一覧を返す
// 受け取る一覧は期限切れを除外済み。エラーを返すと変更は破棄される
type MutateFunc func(holds List) (List, error)

// Store はチケット種別ごとのホールド一覧を保持するストアのインターフェース
// 共有される可変状態はこのストアのみであり、変更は必ず Mutate を経由する
type Store interface {
	// Get は期限切れを除外したホールド一覧のスナップショットを返す
	Get(ctx context.Context, ticketTypeID string) (List, error)

	// Raw は期限切れを含む生のホールド一覧を返す（診断用）
	Raw(ctx context.Context, ticketTypeID string) (List, error)

	// Mutate は fn を適用した一覧をアトミックにコミットする（compare-and-set）
	// 競合時はジッター付きバックオフでリトライし、上限到達で ErrLockContention を返す
	Mutate(ctx context.Context, ticketTypeID string, fn MutateFunc) (List, error)

	// IndexSession はセッションが触れたチケット種別を記録する
	// インデックスは補助情報であり、ホールド本体が常に正となる
	IndexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error

	// UnindexSession はセッションのインデックスからチケット種別を取り除く
	UnindexSession(ctx context.Context, sessionID string, ticketTypeIDs ...string) error

	// SessionTicketTypes はセッションが触れたチケット種別の一覧を返す
	SessionTicketTypes(ctx context.Context, sessionID string) ([]string, error)

	// MarkConfirmed はセッションを確定済みとして記録する
	// 既に確定済みの場合は false を返す（confirm の冪等性を支える）
	MarkConfirmed(ctx context.Context, sessionID string) (bool, error)

	// ClearConfirmed は確定済みの記録を取り消す（確定処理の失敗時に使用）
	ClearConfirmed(ctx context.Context, sessionID string) error
}
