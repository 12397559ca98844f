package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

type TicketTypeHandler struct {
	availability AvailabilityServiceInterface
	events       EventServiceInterface
}

func NewTicketTypeHandler(a AvailabilityServiceInterface, e EventServiceInterface) *TicketTypeHandler {
	return &TicketTypeHandler{availability: a, events: e}
}

type AvailabilityResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
	Total        int    `json:"total"`
	Sold         int    `json:"sold"`
	Held         int    `json:"held"`
	Available    int    `json:"available"`
}

func toAvailabilityResponse(a *application.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		TicketTypeID: a.TicketTypeID,
		Total:        a.Total,
		Sold:         a.Sold,
		Held:         a.Held,
		Available:    a.Available,
	}
}

type TicketTypeResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Price         int    `json:"price"`
	TotalQuantity int    `json:"total_quantity"`
	Available     int    `json:"available"`
}

// GetAvailability godoc
// @Summary チケット種別の残数を取得
// @Description 失効除外後の total/sold/held/available を返します
// @Tags ticket-types
// @Produce json
// @Param id path string true "チケット種別ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /ticket-types/{id}/availability [get]
func (h *TicketTypeHandler) GetAvailability(c echo.Context) error {
	id := c.Param("id")
	a, err := h.availability.GetAvailability(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ticket.ErrTicketTypeNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toAvailabilityResponse(a))
}

// ListByEvent godoc
// @Summary イベントのチケット種別一覧を残数付きで取得
// @Tags ticket-types
// @Produce json
// @Param event_id path string true "イベントID"
// @Success 200 {array} TicketTypeResponse
// @Router /events/{event_id}/ticket-types [get]
func (h *TicketTypeHandler) ListByEvent(c echo.Context) error {
	eventID := c.Param("event_id")
	types, err := h.availability.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]TicketTypeResponse, len(types))
	for i, t := range types {
		resp[i] = TicketTypeResponse{
			ID:            t.TicketType.ID,
			EventID:       t.TicketType.EventID,
			Name:          t.TicketType.Name,
			Price:         t.TicketType.Price,
			TotalQuantity: t.TicketType.TotalQuantity,
			Available:     t.Available,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

type CreateTicketTypeRequest struct {
	Name          string `json:"name" validate:"required"`
	Price         int    `json:"price" validate:"min=0"`
	TotalQuantity int    `json:"total_quantity" validate:"required,min=1"`
}

// Create godoc
// @Summary チケット種別を作成
// @Tags ticket-types
// @Accept json
// @Produce json
// @Param event_id path string true "イベントID"
// @Param request body CreateTicketTypeRequest true "チケット種別情報"
// @Success 201 {object} TicketTypeResponse
// @Failure 400 {object} map[string]string
// @Router /events/{event_id}/ticket-types [post]
func (h *TicketTypeHandler) Create(c echo.Context) error {
	eventID := c.Param("event_id")
	var req CreateTicketTypeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.events.CreateTicketType(c.Request().Context(), application.CreateTicketTypeInput{
		EventID: eventID, Name: req.Name, Price: req.Price, TotalQuantity: req.TotalQuantity,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, TicketTypeResponse{
		ID:            t.ID,
		EventID:       t.EventID,
		Name:          t.Name,
		Price:         t.Price,
		TotalQuantity: t.TotalQuantity,
		Available:     t.TotalQuantity - t.QuantitySold,
	})
}
