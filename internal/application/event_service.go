package application

import (
	"context"
	"fmt"
	"time"

	"github.com/resguarit/ticketera-rg-sub004/internal/domain/event"
	"github.com/resguarit/ticketera-rg-sub004/internal/domain/ticket"
)

// EventService はイベントとチケット種別の登録・参照を行う
type EventService struct {
	eventRepo  event.Repository
	ticketRepo ticket.Repository
}

// NewEventService は新しいEventServiceを作成する
func NewEventService(er event.Repository, tr ticket.Repository) *EventService {
	return &EventService{eventRepo: er, ticketRepo: tr}
}

type CreateEventInput struct {
	Name        string
	Description string
	Venue       string
	StartAt     time.Time
	EndAt       time.Time
	SaleStartAt time.Time
	SaleEndAt   time.Time
}

// CreateEvent は新しいイベントを作成する
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	ev := event.NewEvent(input.Name, input.Description, input.Venue,
		input.StartAt, input.EndAt, input.SaleStartAt, input.SaleEndAt)
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// GetEvent はIDからイベントを取得する
func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

// ListEvents はイベント一覧を取得する
func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.eventRepo.List(ctx, limit, offset)
}

type CreateTicketTypeInput struct {
	EventID       string
	Name          string
	Price         int
	TotalQuantity int
}

// CreateTicketType はイベント配下に新しいチケット種別を作成する
func (s *EventService) CreateTicketType(ctx context.Context, input CreateTicketTypeInput) (*ticket.TicketType, error) {
	if _, err := s.eventRepo.GetByID(ctx, input.EventID); err != nil {
		return nil, fmt.Errorf("イベント取得に失敗: %w", err)
	}
	t := ticket.NewTicketType(input.EventID, input.Name, input.Price, input.TotalQuantity)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.ticketRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTicketType はIDからチケット種別を取得する
func (s *EventService) GetTicketType(ctx context.Context, id string) (*ticket.TicketType, error) {
	return s.ticketRepo.GetByID(ctx, id)
}
