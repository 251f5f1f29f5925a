package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/crew-planner/internal/crew"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// CreateEvent stores a new DRAFT event.
func (s *EventService) CreateEvent(ctx context.Context, viewer model.Viewer, req model.CreateEventRequest) (ev *model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.CreateEvent")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventCreate); err != nil {
		return nil, err
	}
	eventType, err := model.ParseEventType(req.Type)
	if err != nil {
		return nil, err
	}
	slots, err := slotsFromInput(req.Slots)
	if err != nil {
		return nil, err
	}

	ev = &model.Event{
		Details: model.EventDetails{
			Key:         model.NewEventKey(),
			Name:        strings.TrimSpace(req.Name),
			Type:        eventType,
			State:       model.EventStateDraft,
			Note:        req.Note,
			Description: req.Description,
			Start:       req.Start,
			End:         req.End,
			Locations:   append([]model.Location(nil), req.Locations...),
		},
	}
	// A new event has no registrations, so any submitted assignment dangles.
	crew.ReplaceSlots(ev, slots)
	if err := ev.Details.Validate(); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	span.SetAttributes(attribute.String("event.key", string(ev.Details.Key)))
	s.logger.InfoContext(ctx, "event created", "event_key", ev.Details.Key, "name", ev.Details.Name)
	return ev, nil
}

// GetEvent returns the viewer's redacted view of one event. Events hidden
// from the viewer are reported as not found.
func (s *EventService) GetEvent(ctx context.Context, viewer model.Viewer, key model.EventKey) (view *model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.GetEvent")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventRead); err != nil {
		return nil, err
	}
	ev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	view, ok := crew.Redact(ev, viewer)
	if !ok {
		return nil, fmt.Errorf("event %s: %w", key, model.ErrNotFound)
	}
	return view, nil
}

// ListEvents returns the redacted events of a year that the viewer may see.
func (s *EventService) ListEvents(ctx context.Context, viewer model.Viewer, year int) (views []*model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.ListEvents")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventRead); err != nil {
		return nil, err
	}
	events, err := s.events.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list events of %d: %w", year, err)
	}
	return crew.RedactAll(events, viewer), nil
}

// UpdateEvent changes event metadata and state. Publishing an event as
// PLANNED tells every member registrant whether they made the crew.
func (s *EventService) UpdateEvent(ctx context.Context, viewer model.Viewer, key model.EventKey, req model.UpdateEventRequest) (view *model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.UpdateEvent")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventDetailsWrite); err != nil {
		return nil, err
	}
	ev, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	previous := ev.Details.State
	if err := applyDetails(&ev.Details, req); err != nil {
		return nil, err
	}
	if err := ev.Details.Validate(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ev); err != nil {
		return nil, err
	}

	if previous != ev.Details.State {
		s.logger.InfoContext(ctx, "event state changed",
			"event_key", key,
			"from", previous,
			"to", ev.Details.State,
		)
		if ev.Details.State == model.EventStatePlanned {
			s.announceCrew(ctx, ev)
		}
	}
	view, _ = crew.Redact(ev, viewer)
	return view, nil
}

// UpdateSlots replaces the slot plan. On a PLANNED event every member who
// joins or leaves the crew is notified.
func (s *EventService) UpdateSlots(ctx context.Context, viewer model.Viewer, key model.EventKey, inputs []model.SlotInput) (view *model.Event, err error) {
	ctx, span := tracer.Start(ctx, "EventService.UpdateSlots")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventSlotsWrite); err != nil {
		return nil, err
	}
	slots, err := slotsFromInput(inputs)
	if err != nil {
		return nil, err
	}
	ev, err := s.loadVisible(ctx, key, viewer)
	if err != nil {
		return nil, err
	}
	before := ev.Clone()
	delta, repaired := crew.ReplaceSlots(ev, slots)
	if repaired > 0 {
		s.logger.WarnContext(ctx, "dropped slot assignments to unknown registrations",
			"event_key", key,
			"dropped", repaired,
		)
	}
	if err := ev.Details.Validate(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ev); err != nil {
		return nil, err
	}

	if ev.Details.State == model.EventStatePlanned && !delta.Empty() {
		s.notifyDelta(ctx, before, ev, delta)
	}
	view, _ = crew.Redact(ev, viewer)
	return view, nil
}

// DeleteEvent removes an event and its registrations.
func (s *EventService) DeleteEvent(ctx context.Context, viewer model.Viewer, key model.EventKey) (err error) {
	ctx, span := tracer.Start(ctx, "EventService.DeleteEvent")
	defer func() { endSpan(span, err) }()

	if err := requirePermission(viewer, model.PermEventDelete); err != nil {
		return err
	}
	if err := s.events.DeleteByKey(ctx, key); err != nil {
		return fmt.Errorf("delete event %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "event deleted", "event_key", key)
	return nil
}

func applyDetails(d *model.EventDetails, req model.UpdateEventRequest) error {
	if req.State != nil {
		next, err := model.ParseEventState(*req.State)
		if err != nil {
			return err
		}
		if !d.State.CanTransitionTo(next) {
			return fmt.Errorf("event cannot move from %s to %s: %w", d.State, next, model.ErrInvalidState)
		}
		d.State = next
	}
	if req.Type != nil {
		t, err := model.ParseEventType(*req.Type)
		if err != nil {
			return err
		}
		d.Type = t
	}
	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Note != nil {
		d.Note = *req.Note
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Start != nil {
		d.Start = *req.Start
	}
	if req.End != nil {
		d.End = *req.End
	}
	if req.Locations != nil {
		d.Locations = append([]model.Location(nil), (*req.Locations)...)
	}
	return nil
}

func slotsFromInput(inputs []model.SlotInput) ([]model.Slot, error) {
	slots := make([]model.Slot, 0, len(inputs))
	for _, in := range inputs {
		key, err := model.SlotKeyOrNew(in.Key)
		if err != nil {
			return nil, err
		}
		slot := model.Slot{
			Key:         key,
			Order:       in.Order,
			Criticality: in.Criticality,
			Name:        strings.TrimSpace(in.Name),
		}
		for _, raw := range in.Positions {
			pos, err := model.ParsePositionKey(raw)
			if err != nil {
				return nil, err
			}
			slot.Positions = append(slot.Positions, pos)
		}
		if in.AssignedRegistration != nil && *in.AssignedRegistration != "" {
			reg, err := model.ParseRegistrationKey(*in.AssignedRegistration)
			if err != nil {
				return nil, err
			}
			slot.AssignedRegistration = &reg
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// announceCrew tells members of a freshly PLANNED event whether they are on
// the crew or the waiting list.
func (s *EventService) announceCrew(ctx context.Context, ev *model.Event) {
	for _, reg := range crew.Crew(ev) {
		if reg.UserKey != nil {
			s.notify(ctx, model.NotifyAddedToCrew, *reg.UserKey, ev, &reg)
		}
	}
	for _, reg := range crew.Waitlisted(ev) {
		if reg.UserKey != nil {
			s.notify(ctx, model.NotifyAddedToWaitingList, *reg.UserKey, ev, &reg)
		}
	}
}

func (s *EventService) notifyDelta(ctx context.Context, before, after *model.Event, delta crew.Delta) {
	for _, key := range delta.Added {
		if reg, ok := after.Registration(key); ok && reg.UserKey != nil {
			s.notify(ctx, model.NotifyAddedToCrew, *reg.UserKey, after, &reg)
		}
	}
	for _, key := range delta.Removed {
		if reg, ok := before.Registration(key); ok && reg.UserKey != nil {
			s.notify(ctx, model.NotifyRemovedFromCrew, *reg.UserKey, after, &reg)
		}
	}
}
