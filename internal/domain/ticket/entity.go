package ticket

import "time"

// TicketType はチケット種別エンティティを表す
// TotalQuantity は設定後不変、QuantitySold は確定時のみ単調増加する
type TicketType struct {
	ID            string
	EventID       string
	Name          string
	Price         int
	TotalQuantity int
	QuantitySold  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int // 楽観的ロック用
}

// NewTicketType は新しいチケット種別を作成する
func NewTicketType(eventID, name string, price, totalQuantity int) *TicketType {
	now := time.Now()
	return &TicketType{
		EventID:       eventID,
		Name:          name,
		Price:         price,
		TotalQuantity: totalQuantity,
		QuantitySold:  0,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       0,
	}
}

// Remaining は販売済みを除いた残数を返す（ホールド分は含まない）
func (t *TicketType) Remaining() int {
	return t.TotalQuantity - t.QuantitySold
}

// Validate はチケット種別の検証を行う
func (t *TicketType) Validate() error {
	if t.EventID == "" {
		return ErrEventIDRequired
	}
	if t.Name == "" {
		return ErrNameRequired
	}
	if t.Price < 0 {
		return ErrInvalidPrice
	}
	if t.TotalQuantity <= 0 {
		return ErrInvalidTotalQuantity
	}
	return nil
}
