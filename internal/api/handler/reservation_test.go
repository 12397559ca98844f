package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, sessionID string, cart []application.CartLine) (*hold.Reservation, error) {
	args := m.Called(ctx, sessionID, cart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Reservation), args.Error(1)
}

func (m *MockReservationService) Extend(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockReservationService) Confirm(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationService) Release(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func newReservationRequest(method, path, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("X-Session-ID", "session-1")
	return req
}

func TestReservationHandler_Create(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にホールドを作成できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		expiresAt := time.Now().Add(10 * time.Minute)
		mockService.On("Reserve", mock.Anything, "session-1", []application.CartLine{
			{TicketTypeID: "tt-1", Quantity: 2},
		}).Return(&hold.Reservation{
			SessionID: "session-1",
			Holds: []*hold.Hold{{
				SessionID: "session-1", TicketTypeID: "tt-1", Quantity: 2,
				Status: hold.StatusActive, ExpiresAt: expiresAt,
			}},
			ExpiresAt: expiresAt,
		}, nil)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-1","quantity":2}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "session-1", resp.SessionID)
		require.Len(t, resp.Holds, 1)
		assert.Equal(t, 2, resp.Holds[0].Quantity)

		mockService.AssertExpectations(t)
	})

	t.Run("セッションIDヘッダーなしは401", func(t *testing.T) {
		handler := NewReservationHandler(new(MockReservationService))

		req := httptest.NewRequest(http.MethodPost, "/reservations",
			strings.NewReader(`{"lines":[{"ticket_type_id":"tt-1","quantity":1}]}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("残数不足は409", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Reserve", mock.Anything, "session-1", mock.Anything).
			Return(nil, &hold.InsufficientAvailabilityError{
				TicketTypeID: "tt-1", Requested: 5, Available: 2,
			})

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-1","quantity":5}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, httpErr.Code)
	})

	t.Run("在庫更新の競合は503", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Reserve", mock.Anything, "session-1", mock.Anything).
			Return(nil, hold.ErrLockContention)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-1","quantity":1}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
	})

	t.Run("存在しないチケット種別は404", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Reserve", mock.Anything, "session-1", mock.Anything).
			Return(nil, ticket.ErrTicketTypeNotFound)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-missing","quantity":1}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})

	t.Run("予期しないエラーは500", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Reserve", mock.Anything, "session-1", mock.Anything).
			Return(nil, errors.New("予期しないエラー"))

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-1","quantity":1}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	})

	t.Run("空のカートはバリデーションエラー", func(t *testing.T) {
		handler := NewReservationHandler(new(MockReservationService))

		req := newReservationRequest(http.MethodPost, "/reservations", `{"lines":[]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("数量上限超過はバリデーションエラー", func(t *testing.T) {
		handler := NewReservationHandler(new(MockReservationService))

		req := newReservationRequest(http.MethodPost, "/reservations",
			`{"lines":[{"ticket_type_id":"tt-1","quantity":11}]}`)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestReservationHandler_Extend(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に延長できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Extend", mock.Anything, "session-1").Return(nil)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations/extend", "")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Extend(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"extended":true`)
	})

	t.Run("延長対象なしは410", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Extend", mock.Anything, "session-1").Return(hold.ErrNothingToExtend)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations/extend", "")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Extend(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusGone, httpErr.Code)
	})
}

func TestReservationHandler_Confirm(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常に確定できる", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Confirm", mock.Anything, "session-1").Return(3, nil)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations/confirm", "")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Confirm(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"confirmed_count":3`)
		assert.Contains(t, rec.Body.String(), `"already_confirmed":false`)
	})

	t.Run("再確定は200で no-op", func(t *testing.T) {
		mockService := new(MockReservationService)
		mockService.On("Confirm", mock.Anything, "session-1").
			Return(0, hold.ErrSessionAlreadyConfirmed)

		handler := NewReservationHandler(mockService)

		req := newReservationRequest(http.MethodPost, "/reservations/confirm", "")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Confirm(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"already_confirmed":true`)
	})
}

func TestReservationHandler_Release(t *testing.T) {
	e := NewTestEcho()

	mockService := new(MockReservationService)
	mockService.On("Release", mock.Anything, "session-1").Return(2, nil)

	handler := NewReservationHandler(mockService)

	req := newReservationRequest(http.MethodDelete, "/reservations", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Release(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"released_count":2`)
}
