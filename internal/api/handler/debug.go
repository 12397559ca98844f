package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

// DebugHandler は運用診断用のハンドラー
// 本番環境ではルート自体が登録されない
type DebugHandler struct {
	availability AvailabilityServiceInterface
	reservations ReservationServiceInterface
}

func NewDebugHandler(a AvailabilityServiceInterface, r ReservationServiceInterface) *DebugHandler {
	return &DebugHandler{availability: a, reservations: r}
}

type DebugHoldResponse struct {
	SessionID string    `json:"session_id"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

type DebugInfoResponse struct {
	Availability AvailabilityResponse `json:"availability"`
	RawHolds     []DebugHoldResponse  `json:"raw_holds"`
}

// GetHolds は生のホールド一覧と計算済みの残数を返す
func (h *DebugHandler) GetHolds(c echo.Context) error {
	id := c.Param("id")
	info, err := h.availability.GetDebugInfo(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketTypeNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	now := time.Now()
	raw := make([]DebugHoldResponse, len(info.RawHolds))
	for i, hd := range info.RawHolds {
		raw[i] = DebugHoldResponse{
			SessionID: hd.SessionID,
			Quantity:  hd.Quantity,
			Status:    string(hd.Status),
			CreatedAt: hd.CreatedAt,
			ExpiresAt: hd.ExpiresAt,
			Expired:   hd.IsExpired(now),
		}
	}
	return c.JSON(http.StatusOK, DebugInfoResponse{
		Availability: toAvailabilityResponse(info.Availability),
		RawHolds:     raw,
	})
}

// ForceRelease はセッションのホールドを強制的に解放する（運用リカバリー用）
func (h *DebugHandler) ForceRelease(c echo.Context) error {
	sid := c.Param("id")
	count, err := h.reservations.Release(c.Request().Context(), sid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"released_count": count})
}
