package hold

import "time"

// Reservation は1回の予約呼び出しで作成されたホールドの集合を表す
// カート全体が成功した場合のみ返される（全件成功か全件なしか）
type Reservation struct {
	SessionID string
	Holds     []*Hold
	ExpiresAt time.Time
}

// TotalQuantity は予約に含まれる合計数量を返す
func (r *Reservation) TotalQuantity() int {
	total := 0
	for _, h := range r.Holds {
		total += h.Quantity
	}
	return total
}
