package service

import (
	"context"
	"errors"

	"ticket-booking/internal/cache"
	"ticket-booking/internal/model"
	"ticket-booking/internal/repository"
	apperrors "ticket-booking/pkg/app_errors"
	"ticket-booking/pkg/logger"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type EventService interface {
	List(ctx context.Context) ([]*model.Event, error)
	Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error)
	Create(ctx context.Context, actorID uuid.UUID, req model.CreateEventRequest) (*model.Event, error)
	Approve(ctx context.Context, actorID, eventID uuid.UUID) (*model.Event, error)
	AssignStaff(ctx context.Context, actorID, eventID, staffID uuid.UUID) error
	// Availability 讀取 Redis 庫存快照，未命中時回源資料庫並回填
	Availability(ctx context.Context, eventID uuid.UUID) ([]model.InventorySnapshot, error)
	// WarmUp 將所有票種計數同步到讀取模型，回傳寫入筆數
	WarmUp(ctx context.Context) (int, error)
}

type EventServiceImpl struct {
	tx          repository.TxManager
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	actors      repository.ActorRepository
	inventory   cache.InventoryCache
}

func NewEventService(
	tx repository.TxManager,
	events repository.EventRepository,
	ticketTypes repository.TicketTypeRepository,
	actors repository.ActorRepository,
	inventory cache.InventoryCache,
) EventService {
	return &EventServiceImpl{
		tx:          tx,
		events:      events,
		ticketTypes: ticketTypes,
		actors:      actors,
		inventory:   inventory,
	}
}

func (s *EventServiceImpl) List(ctx context.Context) ([]*model.Event, error) {
	return s.events.List(ctx)
}

func (s *EventServiceImpl) Get(ctx context.Context, eventID uuid.UUID) (*model.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.TicketTypes, err = s.ticketTypes.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventServiceImpl) Create(ctx context.Context, actorID uuid.UUID, req model.CreateEventRequest) (*model.Event, error) {
	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	organizer, ok := actor.(model.Organizer)
	if !ok {
		return nil, apperrors.ErrNotOrganizer
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if lo.SomeBy(req.TicketTypes, func(t model.TicketTypeRequest) bool { return t.UnitPrice.IsNegative() }) {
		return nil, apperrors.ErrInvalidAmount
	}
	names := lo.Map(req.TicketTypes, func(t model.TicketTypeRequest, _ int) model.TicketTypeName { return t.Name })
	if len(lo.Uniq(names)) != len(names) {
		return nil, apperrors.ErrInvalidInput
	}

	event := &model.Event{
		ID:          uuid.New(),
		OrganizerID: organizer.ID,
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartDate:   req.StartDate.UTC(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.Create(ctx, event); err != nil {
			return err
		}
		event.TicketTypes = make([]model.TicketType, 0, len(req.TicketTypes))
		for _, t := range req.TicketTypes {
			created, err := s.ticketTypes.Create(ctx, &model.TicketType{
				EventID:   event.ID,
				Name:      t.Name,
				UnitPrice: t.UnitPrice,
				Capacity:  t.Capacity,
			})
			if err != nil {
				return err
			}
			event.TicketTypes = append(event.TicketTypes, *created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range event.TicketTypes {
		s.sync(ctx, event.TicketTypes[i].Snapshot())
	}

	logger.WithComponent("service").Info("event created",
		zap.String("event_id", event.ID.String()),
		zap.String("organizer_id", organizer.ID.String()),
		zap.Int("ticket_types", len(event.TicketTypes)))
	return event, nil
}

func (s *EventServiceImpl) Approve(ctx context.Context, actorID, eventID uuid.UUID) (*model.Event, error) {
	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if _, ok := actor.(model.Staff); !ok {
		return nil, apperrors.ErrNotStaff
	}
	return s.events.Approve(ctx, eventID)
}

func (s *EventServiceImpl) AssignStaff(ctx context.Context, actorID, eventID, staffID uuid.UUID) error {
	actor, err := s.actors.FindByID(ctx, actorID)
	if err != nil {
		return err
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	organizer, ok := actor.(model.Organizer)
	if !ok || organizer.ID != event.OrganizerID {
		return apperrors.ErrNotEventOrganizer
	}

	staff, err := s.actors.FindByID(ctx, staffID)
	if err != nil {
		return err
	}
	if _, ok := staff.(model.Staff); !ok {
		return apperrors.ErrNotStaff
	}
	return s.actors.AssignStaff(ctx, staffID, eventID)
}

func (s *EventServiceImpl) Availability(ctx context.Context, eventID uuid.UUID) ([]model.InventorySnapshot, error) {
	if s.inventory != nil {
		snapshots, err := s.inventory.GetEvent(ctx, eventID)
		if err == nil && len(snapshots) > 0 {
			return snapshots, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithComponent("service").Warn("read inventory cache failed, falling back to storage",
				zap.String("event_id", eventID.String()),
				zap.Error(err))
		}
	}

	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	ticketTypes, err := s.ticketTypes.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	snapshots := lo.Map(ticketTypes, func(t model.TicketType, _ int) model.InventorySnapshot { return t.Snapshot() })
	for _, snapshot := range snapshots {
		s.sync(ctx, snapshot)
	}
	return snapshots, nil
}

func (s *EventServiceImpl) WarmUp(ctx context.Context) (int, error) {
	if s.inventory == nil {
		return 0, nil
	}
	ticketTypes, err := s.ticketTypes.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, t := range ticketTypes {
		ok, err := s.inventory.Sync(ctx, t.Snapshot())
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (s *EventServiceImpl) sync(ctx context.Context, snapshot model.InventorySnapshot) {
	if s.inventory == nil {
		return
	}
	if _, err := s.inventory.Sync(ctx, snapshot); err != nil {
		logger.WithComponent("service").Warn("inventory cache sync failed",
			zap.String("event_id", snapshot.EventID.String()),
			zap.String("ticket_type", string(snapshot.TicketType)),
			zap.Error(err))
	}
}
