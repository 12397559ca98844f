package event

import "time"

// Event はイベントエンティティを表す
// 在庫はチケット種別側で管理するため、イベント自体は公演情報と販売期間のみを持つ
type Event struct {
	ID          string
	Name        string
	Description string
	Venue       string
	StartAt     time.Time
	EndAt       time.Time
	SaleStartAt time.Time
	SaleEndAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int // 楽観的ロック用
}

// NewEvent は新しいイベントを作成する
func NewEvent(name, description, venue string, startAt, endAt, saleStartAt, saleEndAt time.Time) *Event {
	now := time.Now()
	return &Event{
		Name:        name,
		Description: description,
		Venue:       venue,
		StartAt:     startAt,
		EndAt:       endAt,
		SaleStartAt: saleStartAt,
		SaleEndAt:   saleEndAt,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     0,
	}
}

// IsOnSale は指定時刻が販売期間内かを返す
func (e *Event) IsOnSale(now time.Time) bool {
	return !now.Before(e.SaleStartAt) && !now.After(e.SaleEndAt)
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrEventNameRequired
	}
	if e.EndAt.Before(e.StartAt) {
		return ErrInvalidEventTime
	}
	if e.SaleEndAt.Before(e.SaleStartAt) {
		return ErrInvalidSalePeriod
	}
	return nil
}
