package service

import (
	"time"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

func (s *EventServiceSuite) TestAddRegistration() {
	s.Run("members sign themselves up while the event is open", func() {
		s.sent = nil
		key := s.seed(model.EventStateOpenForSignup, s.now.Add(30*24*time.Hour), nil)

		reg, err := s.service.AddRegistration(s.ctx, memberViewer("u3"), key, model.RegistrationRequest{
			PositionKey:   "deckhand",
			Note:          "vegetarian",
			OvernightStay: ptr(true),
		})
		s.Require().NoError(err)
		s.Require().NotNil(reg.UserKey)
		s.Equal(model.UserKey("u3"), *reg.UserKey)
		s.Equal("vegetarian", reg.Note)
		s.NotEmpty(reg.AccessKey)
		s.Nil(reg.ConfirmedAt)
		s.Equal(s.now, reg.CreatedAt)
		s.Empty(s.sent)

		again, err := s.service.AddRegistration(s.ctx, memberViewer("u3"), key, model.RegistrationRequest{PositionKey: "skipper"})
		s.Require().NoError(err)
		s.Equal(reg.Key, again.Key)
		s.Len(s.stored(key).Registrations, 1)
	})

	s.Run("members cannot register someone else", func() {
		key := s.seed(model.EventStateOpenForSignup, s.now.Add(30*24*time.Hour), nil)

		_, err := s.service.AddRegistration(s.ctx, memberViewer("u3"), key, model.RegistrationRequest{
			PositionKey: "deckhand",
			UserKey:     ptr("u9"),
		})
		s.ErrorIs(err, model.ErrForbidden)

		_, err = s.service.AddRegistration(s.ctx, memberViewer("u3"), key, model.RegistrationRequest{
			PositionKey: "deckhand",
			Name:        "My friend",
		})
		s.ErrorIs(err, model.ErrForbidden)
	})

	s.Run("signing up needs a registration permission", func() {
		key := s.seed(model.EventStateOpenForSignup, s.now.Add(30*24*time.Hour), nil)
		u := model.UserKey("u3")
		reader := model.Viewer{UserKey: &u, Permissions: model.NewPermissionSet(model.PermEventRead)}

		_, err := s.service.AddRegistration(s.ctx, reader, key, model.RegistrationRequest{PositionKey: "deckhand"})
		s.ErrorIs(err, model.ErrForbidden)
	})

	s.Run("drafts are not found for members", func() {
		key := s.seed(model.EventStateDraft, s.now.Add(30*24*time.Hour), nil)
		_, err := s.service.AddRegistration(s.ctx, memberViewer("u3"), key, model.RegistrationRequest{PositionKey: "deckhand"})
		s.ErrorIs(err, model.ErrNotFound)
	})

	s.Run("late sign-ups on a planned event land on the waiting list", func() {
		s.sent = nil
		key := s.crewEvent()

		reg, err := s.service.AddRegistration(s.ctx, memberViewer("u4"), key, model.RegistrationRequest{PositionKey: "deckhand"})
		s.Require().NoError(err)
		s.Equal([]string{"ADDED_TO_WAITING_LIST:u4"}, s.sentTo())
		s.Equal(reg.Key, *s.sent[0].RegistrationKey)
	})

	s.Run("managers add guests and reject duplicate guest names", func() {
		s.sent = nil
		key := s.crewEvent()

		reg, err := s.service.AddRegistration(s.ctx, adminViewer(), key, model.RegistrationRequest{
			PositionKey: "deckhand",
			Name:        "Jan Kowalski",
		})
		s.Require().NoError(err)
		s.True(reg.IsGuest())
		s.Empty(s.sent)

		_, err = s.service.AddRegistration(s.ctx, adminViewer(), key, model.RegistrationRequest{
			PositionKey: "deckhand",
			Name:        " jan kowalski ",
		})
		s.ErrorIs(err, model.ErrConflict)
	})

	s.Run("a position is required", func() {
		key := s.crewEvent()
		_, err := s.service.AddRegistration(s.ctx, adminViewer(), key, model.RegistrationRequest{UserKey: ptr("u8")})
		s.ErrorIs(err, model.ErrInvalidInput)
	})
}

func (s *EventServiceSuite) TestUpdateRegistration() {
	key := s.crewEvent()

	s.Run("registrants edit their own registration", func() {
		arrival := time.Date(2026, 7, 19, 18, 0, 0, 0, time.UTC)
		reg, err := s.service.UpdateRegistration(s.ctx, memberViewer("u1"), key, "r1", model.RegistrationRequest{
			Note:        "arriving late",
			ArrivalDate: &arrival,
		})
		s.Require().NoError(err)
		s.Equal(posDeck, reg.PositionKey)
		s.Equal("arriving late", reg.Note)

		stored, _ := s.stored(key).Registration("r1")
		s.Equal("arriving late", stored.Note)
		s.Require().NotNil(stored.ArrivalDate)
		s.True(arrival.Equal(*stored.ArrivalDate))
	})

	s.Run("other members cannot edit it", func() {
		_, err := s.service.UpdateRegistration(s.ctx, memberViewer("u2"), key, "r1", model.RegistrationRequest{Note: "x"})
		s.ErrorIs(err, model.ErrForbidden)
	})

	s.Run("unknown registrations are not found", func() {
		_, err := s.service.UpdateRegistration(s.ctx, adminViewer(), key, "missing", model.RegistrationRequest{Note: "x"})
		s.ErrorIs(err, model.ErrNotFound)
	})
}

func (s *EventServiceSuite) TestRemoveRegistration() {
	s.Run("removing a crew member backfills the higher-priority slot", func() {
		s.sent = nil
		key := s.crewEvent()

		s.Require().NoError(s.service.RemoveRegistration(s.ctx, adminViewer(), key, "r1"))

		ev := s.stored(key)
		s.Equal(-1, ev.FindRegistration("r1"))
		s.Equal(map[model.SlotKey]string{"s1": "r2", "s2": ""}, assignments(ev))
		s.Equal([]string{"REMOVED_FROM_CREW:u1"}, s.sentTo())
	})

	s.Run("removing a waiting list entry notifies the registrant", func() {
		s.sent = nil
		key := s.crewEvent()

		s.Require().NoError(s.service.RemoveRegistration(s.ctx, adminViewer(), key, "r3"))
		s.Equal([]string{"REMOVED_FROM_WAITING_LIST:u3"}, s.sentTo())
	})

	s.Run("a crew member cancelling alerts the crew managers", func() {
		s.sent = nil
		key := s.crewEvent()

		s.Require().NoError(s.service.RemoveRegistration(s.ctx, memberViewer("u2"), key, "r2"))
		s.Equal([]string{
			"CREW_REGISTRATION_CANCELED:mgr1",
			"CREW_REGISTRATION_CANCELED:mgr2",
		}, s.sentTo())
		s.Equal(model.RegistrationKey("r2"), *s.sent[0].RegistrationKey)
	})

	s.Run("nothing is sent before the crew is published", func() {
		s.sent = nil
		key := s.seed(model.EventStateOpenForSignup, s.now.Add(30*24*time.Hour),
			[]model.Slot{slotOf("s1", 1, 1, regKey("r1"), posDeck)},
			memberReg("r1", "u1", posDeck),
		)

		s.Require().NoError(s.service.RemoveRegistration(s.ctx, adminViewer(), key, "r1"))
		s.Empty(s.sent)
		s.Equal(map[model.SlotKey]string{"s1": ""}, assignments(s.stored(key)))
	})

	s.Run("members cannot remove someone else", func() {
		key := s.crewEvent()
		s.ErrorIs(s.service.RemoveRegistration(s.ctx, memberViewer("u3"), key, "r1"), model.ErrForbidden)
		s.Len(s.stored(key).Registrations, 3)
	})

	s.Run("unknown registrations are not found", func() {
		key := s.crewEvent()
		s.ErrorIs(s.service.RemoveRegistration(s.ctx, adminViewer(), key, "missing"), model.ErrNotFound)
	})
}
