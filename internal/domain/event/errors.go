package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound          = errors.New("イベントが見つかりません")
	ErrEventNameRequired      = errors.New("イベント名は必須です")
	ErrInvalidEventTime       = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidSalePeriod      = errors.New("販売終了時刻は販売開始時刻より後である必要があります")
	ErrEventNotOnSale         = errors.New("イベントの販売期間外です")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
