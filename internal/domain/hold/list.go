package hold

import "time"

// List はあるチケット種別に対するホールドの一覧を表す
type List []*Hold

// PruneExpired は期限切れのホールドを除外した新しい一覧を返す
// 物理削除はストアのコミット時に行われる（遅延失効）
func (l List) PruneExpired(now time.Time) List {
	pruned := make(List, 0, len(l))
	for _, h := range l {
		if h.IsActive(now) {
			pruned = append(pruned, h)
		}
	}
	return pruned
}

// HeldQuantity は有効なホールドの合計数量を返す
func (l List) HeldQuantity(now time.Time) int {
	total := 0
	for _, h := range l {
		if h.IsActive(now) {
			total += h.Quantity
		}
	}
	return total
}

// SessionQuantity は指定セッションの有効なホールドの合計数量を返す
func (l List) SessionQuantity(sessionID string, now time.Time) int {
	total := 0
	for _, h := range l {
		if h.SessionID == sessionID && h.IsActive(now) {
			total += h.Quantity
		}
	}
	return total
}

// RemoveByID は指定IDのホールドを除外した一覧と、除外したかどうかを返す
// カート予約の補償解放で、この呼び出しで作成したホールドだけを取り除くために使う
func (l List) RemoveByID(id string) (List, bool) {
	kept := make(List, 0, len(l))
	removed := false
	for _, h := range l {
		if h.ID == id {
			removed = true
			continue
		}
		kept = append(kept, h)
	}
	return kept, removed
}

// RemoveSession は指定セッションのホールドをすべて除外した一覧と除外数量を返す
// 状態や期限に関わらず除外する（release は常に成功する）
func (l List) RemoveSession(sessionID string) (List, int) {
	kept := make(List, 0, len(l))
	removed := 0
	for _, h := range l {
		if h.SessionID == sessionID {
			removed += h.Quantity
			continue
		}
		kept = append(kept, h)
	}
	return kept, removed
}
