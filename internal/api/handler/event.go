package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/event"
)

type EventHandler struct {
	service EventServiceInterface
}

func NewEventHandler(s EventServiceInterface) *EventHandler {
	return &EventHandler{service: s}
}

type CreateEventRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	SaleStartAt time.Time `json:"sale_start_at" validate:"required"`
	SaleEndAt   time.Time `json:"sale_end_at" validate:"required"`
}

type EventResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	SaleStartAt time.Time `json:"sale_start_at"`
	SaleEndAt   time.Time `json:"sale_end_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID: e.ID, Name: e.Name, Description: e.Description, Venue: e.Venue,
		StartAt: e.StartAt, EndAt: e.EndAt,
		SaleStartAt: e.SaleStartAt, SaleEndAt: e.SaleEndAt,
		CreatedAt: e.CreatedAt,
	}
}

// Create godoc
// @Summary イベントを作成
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	e, err := h.service.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Name: req.Name, Description: req.Description, Venue: req.Venue,
		StartAt: req.StartAt, EndAt: req.EndAt,
		SaleStartAt: req.SaleStartAt, SaleEndAt: req.SaleEndAt,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	e, err := h.service.GetEvent(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	events, err := h.service.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]EventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, resp)
}
