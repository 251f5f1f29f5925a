package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/crew-planner/internal/crew"
	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// AddRegistration signs a member or guest up for an event. Registration
// managers may register anyone at any time; members with the self permission
// may only register themselves while the event takes sign-ups.
func (s *EventService) AddRegistration(ctx context.Context, viewer model.Viewer, eventKey model.EventKey, req model.RegistrationRequest) (reg *model.Registration, err error) {
	ctx, span := tracer.Start(ctx, "EventService.AddRegistration")
	defer func() { endSpan(span, err) }()

	ev, err := s.loadVisible(ctx, eventKey, viewer)
	if err != nil {
		return nil, err
	}
	user, err := registrantOf(viewer, ev, req)
	if err != nil {
		return nil, err
	}
	position, err := model.ParsePositionKey(req.PositionKey)
	if err != nil {
		return nil, err
	}
	candidate, err := model.NewRegistration(model.NewRegistrationKey(), position, user, req.Name, s.now())
	if err != nil {
		return nil, err
	}
	candidate.Note = req.Note
	candidate.ArrivalDate = req.ArrivalDate
	candidate.OvernightStay = req.OvernightStay

	added, err := crew.AddRegistration(ev, candidate)
	if err != nil {
		return nil, err
	}
	if !added {
		for _, existing := range ev.Registrations {
			if existing.UserKey != nil && *existing.UserKey == *user {
				r := existing.Clone()
				return &r, nil
			}
		}
	}
	if err := s.save(ctx, ev); err != nil {
		return nil, err
	}
	s.metrics.IncRegistrationsAdded()

	stored, _ := ev.Registration(candidate.Key)
	s.logger.InfoContext(ctx, "registration added",
		"event_key", eventKey,
		"registration_key", stored.Key,
		"guest", stored.IsGuest(),
	)
	if ev.Details.State == model.EventStatePlanned && stored.UserKey != nil {
		s.notify(ctx, model.NotifyAddedToWaitingList, *stored.UserKey, ev, &stored)
	}
	return &stored, nil
}

// registrantOf resolves whom req registers and checks the viewer may do so.
func registrantOf(viewer model.Viewer, ev *model.Event, req model.RegistrationRequest) (*model.UserKey, error) {
	var user *model.UserKey
	if req.UserKey != nil {
		key, err := model.ParseUserKey(*req.UserKey)
		if err != nil {
			return nil, err
		}
		user = &key
	}
	if viewer.Can(model.PermEventRegistrationsWrite) {
		return user, nil
	}
	if !viewer.Can(model.PermEventRegistrationsSelf) || viewer.UserKey == nil {
		return nil, fmt.Errorf("missing permission %s: %w", model.PermEventRegistrationsWrite, model.ErrForbidden)
	}
	if req.Name != "" || (user != nil && *user != *viewer.UserKey) {
		return nil, fmt.Errorf("members may only register themselves: %w", model.ErrForbidden)
	}
	switch ev.Details.State {
	case model.EventStateOpenForSignup, model.EventStatePlanned:
	default:
		return nil, fmt.Errorf("event %s is %s and takes no sign-ups: %w", ev.Details.Key, ev.Details.State, model.ErrInvalidState)
	}
	self := *viewer.UserKey
	return &self, nil
}

// UpdateRegistration changes the registrant-editable fields.
func (s *EventService) UpdateRegistration(ctx context.Context, viewer model.Viewer, eventKey model.EventKey, key model.RegistrationKey, req model.RegistrationRequest) (reg *model.Registration, err error) {
	ctx, span := tracer.Start(ctx, "EventService.UpdateRegistration")
	defer func() { endSpan(span, err) }()

	ev, current, err := s.loadRegistration(ctx, viewer, eventKey, key)
	if err != nil {
		return nil, err
	}
	position := current.PositionKey
	if req.PositionKey != "" {
		if position, err = model.ParsePositionKey(req.PositionKey); err != nil {
			return nil, err
		}
	}
	updated, err := crew.UpdateRegistration(ev, key, crew.RegistrationUpdate{
		PositionKey:   position,
		Note:          req.Note,
		ArrivalDate:   req.ArrivalDate,
		OvernightStay: req.OvernightStay,
	})
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, ev); err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveRegistration withdraws a registration. A crew member leaving a
// PLANNED event frees their slot, which is backfilled from lower-priority
// slots where possible.
func (s *EventService) RemoveRegistration(ctx context.Context, viewer model.Viewer, eventKey model.EventKey, key model.RegistrationKey) (err error) {
	ctx, span := tracer.Start(ctx, "EventService.RemoveRegistration")
	defer func() { endSpan(span, err) }()

	ev, current, err := s.loadRegistration(ctx, viewer, eventKey, key)
	if err != nil {
		return err
	}
	removal, err := crew.RemoveRegistration(ev, key)
	if err != nil {
		return err
	}
	s.backfill(ctx, ev, removal)
	if err := s.save(ctx, ev); err != nil {
		return err
	}
	s.metrics.IncRegistrationsRemoved(removal.WasAssigned)
	s.logger.InfoContext(ctx, "registration removed",
		"event_key", eventKey,
		"registration_key", key,
		"was_assigned", removal.WasAssigned,
	)
	s.notifyRemoval(ctx, ev, removal, viewer.Owns(current))
	return nil
}

// loadRegistration loads an event and one registration the viewer manages.
func (s *EventService) loadRegistration(ctx context.Context, viewer model.Viewer, eventKey model.EventKey, key model.RegistrationKey) (*model.Event, model.Registration, error) {
	ev, err := s.loadVisible(ctx, eventKey, viewer)
	if err != nil {
		return nil, model.Registration{}, err
	}
	reg, ok := ev.Registration(key)
	if !ok {
		return nil, model.Registration{}, fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	if !viewer.Can(model.PermEventRegistrationsWrite) && !viewer.Owns(reg) {
		return nil, model.Registration{}, fmt.Errorf("registration %s belongs to someone else: %w", key, model.ErrForbidden)
	}
	return ev, reg, nil
}

func (s *EventService) backfill(ctx context.Context, ev *model.Event, removal crew.Removal) {
	if !removal.WasAssigned {
		return
	}
	if moves := crew.OptimizeSlots(ev); moves > 0 {
		s.metrics.AddSlotOptimizations(moves)
		s.logger.InfoContext(ctx, "backfilled slots",
			"event_key", ev.Details.Key,
			"moves", moves,
		)
	}
}

// notifyRemoval tells the affected people about a registration that left a
// PLANNED event. A crew member cancelling themselves alerts the crew managers
// instead of the member.
func (s *EventService) notifyRemoval(ctx context.Context, ev *model.Event, removal crew.Removal, selfInitiated bool) {
	if ev.Details.State != model.EventStatePlanned {
		return
	}
	reg := removal.Registration
	switch {
	case removal.WasAssigned && selfInitiated:
		for _, manager := range s.managers {
			s.notify(ctx, model.NotifyCrewRegistrationCanceled, manager, ev, &reg)
		}
	case selfInitiated || reg.UserKey == nil:
	case removal.WasAssigned:
		s.notify(ctx, model.NotifyRemovedFromCrew, *reg.UserKey, ev, &reg)
	default:
		s.notify(ctx, model.NotifyRemovedFromWaitingList, *reg.UserKey, ev, &reg)
	}
}
