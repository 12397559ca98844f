package hold

import (
	"errors"
	"fmt"
)

// Hold ドメインのエラー定義
var (
	ErrInsufficientAvailability = errors.New("チケットの残数が不足しています")
	ErrLockContention           = errors.New("在庫の更新が競合しました")
	ErrStoreUnavailable         = errors.New("ホールドストアに接続できません")
	ErrNothingToExtend          = errors.New("延長できるホールドがありません")
	ErrSessionAlreadyConfirmed  = errors.New("セッションは既に確定されています")
	ErrHoldNotActive            = errors.New("ホールドは有効ではありません")
	ErrSessionIDRequired        = errors.New("セッションIDは必須です")
	ErrTicketTypeIDRequired     = errors.New("チケット種別IDは必須です")
	ErrInvalidQuantity          = errors.New("数量は1以上である必要があります")
)

// InsufficientAvailabilityError は残数不足の詳細を保持する
// errors.Is(err, ErrInsufficientAvailability) で判定できる
type InsufficientAvailabilityError struct {
	TicketTypeID string
	Requested    int
	Available    int
}

func (e *InsufficientAvailabilityError) Error() string {
	return fmt.Sprintf("チケット種別 %s の残数が不足しています（要求: %d, 残数: %d）",
		e.TicketTypeID, e.Requested, e.Available)
}

func (e *InsufficientAvailabilityError) Unwrap() error {
	return ErrInsufficientAvailability
}
