package hold

import (
	"time"

	"github.com/google/uuid"
)

// Status はホールドの状態を表す
type Status string

const (
	StatusActive    Status = "active"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
)

// Hold はチケット種別の残数に対する一時的な確保を表す
// 有効期限は絶対時刻で保持し、ストア側のTTLには依存しない
type Hold struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DefaultTTL はホールドの有効期間（デフォルト10分）
const DefaultTTL = 10 * time.Minute

// NewHold は新しいホールドを作成する
func NewHold(sessionID, ticketTypeID string, quantity int, ttl time.Duration) *Hold {
	now := time.Now()
	return &Hold{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		TicketTypeID: ticketTypeID,
		Quantity:     quantity,
		Status:       StatusActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// IsExpired はホールドが期限切れかを返す
func (h *Hold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// IsActive はホールドが有効（activeかつ期限内）かを返す
func (h *Hold) IsActive(now time.Time) bool {
	return h.Status == StatusActive && !h.IsExpired(now)
}

// Refresh は有効期限を now+ttl に更新する
// 期限切れのホールドは延長できない
func (h *Hold) Refresh(now time.Time, ttl time.Duration) error {
	if !h.IsActive(now) {
		return ErrHoldNotActive
	}
	h.ExpiresAt = now.Add(ttl)
	return nil
}

// Validate はホールドの検証を行う
func (h *Hold) Validate() error {
	if h.SessionID == "" {
		return ErrSessionIDRequired
	}
	if h.TicketTypeID == "" {
		return ErrTicketTypeIDRequired
	}
	if h.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
