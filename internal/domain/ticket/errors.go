package ticket

import "errors"

// TicketType ドメインのエラー定義
var (
	ErrTicketTypeNotFound   = errors.New("チケット種別が見つかりません")
	ErrEventIDRequired      = errors.New("イベントIDは必須です")
	ErrNameRequired         = errors.New("チケット種別名は必須です")
	ErrInvalidPrice         = errors.New("価格は0以上である必要があります")
	ErrInvalidTotalQuantity = errors.New("総数は1以上である必要があります")
	ErrSoldExceedsTotal     = errors.New("販売数が総数を超えるため更新できません")
)
