package handler

import (
	"context"

	"github.com/resguarit/ticketera-rg-sub004/internal/application"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/event"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/hold"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

// ReservationServiceInterface は予約エンジンのインターフェース
type ReservationServiceInterface interface {
	Reserve(ctx context.Context, sessionID string, cart []application.CartLine) (*hold.Reservation, error)
	Extend(ctx context.Context, sessionID string) error
	Confirm(ctx context.Context, sessionID string) (int, error)
	Release(ctx context.Context, sessionID string) (int, error)
}

// AvailabilityServiceInterface は残数照会サービスのインターフェース
type AvailabilityServiceInterface interface {
	GetAvailability(ctx context.Context, ticketTypeID string) (*application.Availability, error)
	ListByEvent(ctx context.Context, eventID string) ([]*application.TicketTypeWithAvailability, error)
	GetDebugInfo(ctx context.Context, ticketTypeID string) (*application.DebugInfo, error)
}

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
	CreateTicketType(ctx context.Context, input application.CreateTicketTypeInput) (*ticket.TicketType, error)
	GetTicketType(ctx context.Context, id string) (*ticket.TicketType, error)
}
