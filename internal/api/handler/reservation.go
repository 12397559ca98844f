package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CartLineRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity     int    `json:"quantity" validate:"required,min=1,max=10" example:"2"`
}

type CreateReservationRequest struct {
	Lines []CartLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type HoldResponse struct {
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	Status       string    `json:"status"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type ReservationResponse struct {
	SessionID string         `json:"session_id"`
	Holds     []HoldResponse `json:"holds"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func toReservationResponse(r *hold.Reservation) ReservationResponse {
	holds := make([]HoldResponse, len(r.Holds))
	for i, h := range r.Holds {
		holds[i] = HoldResponse{
			TicketTypeID: h.TicketTypeID,
			Quantity:     h.Quantity,
			Status:       string(h.Status),
			ExpiresAt:    h.ExpiresAt,
		}
	}
	return ReservationResponse{SessionID: r.SessionID, Holds: holds, ExpiresAt: r.ExpiresAt}
}

// sessionID はリクエストヘッダーからチェックアウトセッションIDを取り出す
func sessionID(c echo.Context) (string, error) {
	id := c.Request().Header.Get("X-Session-ID")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "セッションIDが必要です")
	}
	return id, nil
}

// Create godoc
// @Summary カートのチケットを仮押さえ
// @Description カート全体のホールドを作成します（全件成功か全件なし）
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-Session-ID header string true "チェックアウトセッションID"
// @Param request body CreateReservationRequest true "カート内容"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string "残数不足"
// @Failure 503 {object} map[string]string "在庫更新の競合（リトライ可能）"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cart := make([]application.CartLine, len(req.Lines))
	for i, line := range req.Lines {
		cart[i] = application.CartLine{TicketTypeID: line.TicketTypeID, Quantity: line.Quantity}
	}
	r, err := h.service.Reserve(c.Request().Context(), sid, cart)
	if err != nil {
		return mapReservationError(err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// Extend godoc
// @Summary ホールドの有効期限を延長
// @Description セッションの有効なホールドの期限を now+TTL に更新します
// @Tags reservations
// @Produce json
// @Param X-Session-ID header string true "チェックアウトセッションID"
// @Success 200 {object} map[string]bool
// @Failure 401 {object} map[string]string
// @Failure 410 {object} map[string]string "延長できるホールドがない（再予約が必要）"
// @Router /reservations/extend [post]
func (h *ReservationHandler) Extend(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	if err := h.service.Extend(c.Request().Context(), sid); err != nil {
		if errors.Is(err, hold.ErrNothingToExtend) {
			return echo.NewHTTPError(http.StatusGone, err.Error())
		}
		return mapReservationError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"extended": true})
}

// Confirm godoc
// @Summary ホールドを確定
// @Description 決済成功後にホールドを確定し、販売数を加算します（冪等）
// @Tags reservations
// @Produce json
// @Param X-Session-ID header string true "チェックアウトセッションID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /reservations/confirm [post]
func (h *ReservationHandler) Confirm(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	count, err := h.service.Confirm(c.Request().Context(), sid)
	if err != nil {
		// 再確定は無害な no-op として成功を返す
		if errors.Is(err, hold.ErrSessionAlreadyConfirmed) {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"confirmed_count":   0,
				"already_confirmed": true,
			})
		}
		return mapReservationError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"confirmed_count":   count,
		"already_confirmed": false,
	})
}

// Release godoc
// @Summary ホールドを解放
// @Description セッションのホールドを全チケット種別から取り除きます（常に成功）
// @Tags reservations
// @Produce json
// @Param X-Session-ID header string true "チェックアウトセッションID"
// @Success 200 {object} map[string]int
// @Failure 401 {object} map[string]string
// @Router /reservations [delete]
func (h *ReservationHandler) Release(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	count, err := h.service.Release(c.Request().Context(), sid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"released_count": count})
}

// mapReservationError は予約エンジンのエラーをHTTPステータスに変換する
func mapReservationError(err error) error {
	switch {
	case errors.Is(err, hold.ErrInsufficientAvailability):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, hold.ErrLockContention):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, hold.ErrInvalidQuantity),
		errors.Is(err, hold.ErrTicketTypeIDRequired),
		errors.Is(err, application.ErrEmptyCart):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ticket.ErrTicketTypeNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, hold.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
