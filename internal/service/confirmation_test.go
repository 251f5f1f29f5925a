package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
	"github.com/Shivanand-hulikatti/crew-planner/internal/repository"
	"github.com/Shivanand-hulikatti/crew-planner/internal/service/mocks"
)

func (s *EventServiceSuite) TestSweepConfirmations() {
	s.Run("request at two weeks then reminder at one week", func() {
		s.sent = nil
		start := s.now.Add(10 * 24 * time.Hour)
		confirmed := memberReg("r2", "u2", posDeck)
		confirmed.ConfirmedAt = ptr(s.now.Add(-time.Hour))
		unkeyed := memberReg("r1", "u1", posDeck)
		unkeyed.AccessKey = ""

		key := s.seed(model.EventStatePlanned, start,
			[]model.Slot{
				slotOf("s1", 1, 1, regKey("r1"), posDeck),
				slotOf("s2", 2, 1, regKey("r2"), posDeck),
				slotOf("s3", 3, 0, regKey("g1"), posDeck),
			},
			unkeyed,
			confirmed,
			memberReg("r3", "u3", posDeck),
			guestReg("g1", "Jan", posDeck),
		)
		s.seed(model.EventStateOpenForSignup, start,
			[]model.Slot{slotOf("s1", 1, 1, regKey("r1"), posDeck)},
			memberReg("r1", "u1", posDeck),
		)
		s.seed(model.EventStatePlanned, s.now.Add(30*24*time.Hour),
			[]model.Slot{slotOf("s1", 1, 1, regKey("r1"), posDeck)},
			memberReg("r1", "u1", posDeck),
		)

		result, err := s.service.SweepConfirmations(s.ctx)
		s.Require().NoError(err)
		s.Equal(model.SweepResult{EventsChecked: 3, RequestsSent: 1}, result)
		s.Equal([]string{"CONFIRMATION_REQUEST:u1"}, s.sentTo())

		ev := s.stored(key)
		s.Equal(1, ev.Details.ConfirmationRequestsSent)
		stored, _ := ev.Registration("r1")
		s.NotEmpty(stored.AccessKey)
		s.Equal(stored.AccessKey, s.sent[0].AccessKey)

		s.sent = nil
		result, err = s.service.SweepConfirmations(s.ctx)
		s.Require().NoError(err)
		s.Zero(result.RequestsSent + result.RemindersSent)
		s.Empty(s.sent)

		s.now = start.Add(-5 * 24 * time.Hour)
		result, err = s.service.SweepConfirmations(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, result.RemindersSent)
		s.Equal([]string{"CONFIRMATION_REMINDER:u1"}, s.sentTo())
		s.Equal(stored.AccessKey, s.sent[0].AccessKey)
		s.Equal(2, s.stored(key).Details.ConfirmationRequestsSent)
	})

	s.Run("an event first seen inside the reminder window gets both, one per sweep", func() {
		s.sent = nil
		key := s.seed(model.EventStatePlanned, s.now.Add(5*24*time.Hour),
			[]model.Slot{slotOf("s1", 1, 1, regKey("r1"), posDeck)},
			memberReg("r1", "u1", posDeck),
		)

		_, err := s.service.SweepConfirmations(s.ctx)
		s.Require().NoError(err)
		_, err = s.service.SweepConfirmations(s.ctx)
		s.Require().NoError(err)

		var kinds []model.NotificationKind
		for _, msg := range s.sent {
			if msg.EventKey == key {
				kinds = append(kinds, msg.Kind)
			}
		}
		s.Equal([]model.NotificationKind{model.NotifyConfirmationRequest, model.NotifyConfirmationReminder}, kinds)
	})
}

func (s *EventServiceSuite) TestViewRegistration() {
	key := s.crewEvent()

	s.Run("the access key reveals the registrant's own details only", func() {
		view, err := s.service.ViewRegistration(s.ctx, key, "r1", "ak-r1")
		s.Require().NoError(err)

		own, _ := view.Registration("r1")
		other, _ := view.Registration("r2")
		s.Equal("note of r1", own.Note)
		s.Empty(other.Note)
		s.Empty(other.AccessKey)
	})

	s.Run("a wrong key looks like a missing registration", func() {
		_, err := s.service.ViewRegistration(s.ctx, key, "r1", "ak-r2")
		s.ErrorIs(err, model.ErrNotFound)
		s.NotErrorIs(err, model.ErrUnauthorized)

		_, err = s.service.ViewRegistration(s.ctx, key, "missing", "ak-r1")
		s.ErrorIs(err, model.ErrNotFound)
	})
}

func (s *EventServiceSuite) TestConfirmRegistration() {
	key := s.crewEvent()

	s.Run("a wrong key is not found", func() {
		s.ErrorIs(s.service.ConfirmRegistration(s.ctx, key, "r1", "nope"), model.ErrNotFound)
	})

	s.Run("confirming stamps the time once", func() {
		confirmedAt := s.now
		s.Require().NoError(s.service.ConfirmRegistration(s.ctx, key, "r1", "ak-r1"))

		s.now = s.now.Add(time.Hour)
		s.Require().NoError(s.service.ConfirmRegistration(s.ctx, key, "r1", "ak-r1"))

		stored, _ := s.stored(key).Registration("r1")
		s.Require().NotNil(stored.ConfirmedAt)
		s.True(confirmedAt.Equal(*stored.ConfirmedAt))
	})
}

func (s *EventServiceSuite) TestDeclineRegistration() {
	s.Run("a confirmed registration cannot be declined", func() {
		key := s.crewEvent()
		s.Require().NoError(s.service.ConfirmRegistration(s.ctx, key, "r1", "ak-r1"))

		s.ErrorIs(s.service.DeclineRegistration(s.ctx, key, "r1", "ak-r1"), model.ErrConflict)
		s.Len(s.stored(key).Registrations, 3)
	})

	s.Run("a crew member declining frees the slot and alerts the managers", func() {
		s.sent = nil
		key := s.crewEvent()

		s.Require().NoError(s.service.DeclineRegistration(s.ctx, key, "r1", "ak-r1"))

		ev := s.stored(key)
		s.Equal(-1, ev.FindRegistration("r1"))
		s.Equal(map[model.SlotKey]string{"s1": "r2", "s2": ""}, assignments(ev))
		s.Equal([]string{
			"CREW_REGISTRATION_CANCELED:mgr1",
			"CREW_REGISTRATION_CANCELED:mgr2",
		}, s.sentTo())
	})

	s.Run("a waiting list member declining alerts nobody", func() {
		s.sent = nil
		key := s.crewEvent()

		s.Require().NoError(s.service.DeclineRegistration(s.ctx, key, "r3", "ak-r3"))
		s.Empty(s.sent)
	})

	s.Run("a wrong key is not found", func() {
		key := s.crewEvent()
		s.ErrorIs(s.service.DeclineRegistration(s.ctx, key, "r3", "ak-r1"), model.ErrNotFound)
	})
}

func TestSweepConfirmations_StoreFailures(t *testing.T) {
	now := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	due := func() *model.Event {
		u := model.UserKey("u1")
		return &model.Event{
			Details: model.EventDetails{
				Key:     "e1",
				Name:    "Baltic crossing",
				State:   model.EventStatePlanned,
				Start:   now.Add(10 * 24 * time.Hour),
				End:     now.Add(12 * 24 * time.Hour),
				Slots:   []model.Slot{slotOf("s1", 1, 1, regKey("r1"), posDeck)},
				Version: 3,
			},
			Registrations: []model.Registration{{Key: "r1", PositionKey: posDeck, UserKey: &u, AccessKey: "ak-r1"}},
		}
	}

	t.Run("a concurrent update skips the event without sending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockEventStore(ctrl)
		notifier := mocks.NewMockNotifier(ctrl)
		store.EXPECT().ListByYear(gomock.Any(), 2026).Return([]*model.Event{due()}, nil)
		store.EXPECT().ListByYear(gomock.Any(), 2027).Return(nil, nil)
		store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(repository.ErrStaleVersion)

		svc, err := NewEventService(store, notifier, WithLogger(logger), WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		result, err := svc.SweepConfirmations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, model.SweepResult{EventsChecked: 1, Failed: 1}, result)
	})

	t.Run("a failing listing aborts the sweep", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockEventStore(ctrl)
		store.EXPECT().ListByYear(gomock.Any(), 2026).Return(nil, errors.New("connection reset"))

		svc, err := NewEventService(store, mocks.NewMockNotifier(ctrl), WithLogger(logger), WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = svc.SweepConfirmations(context.Background())
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestGetEvent_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockEventStore(ctrl)
	store.EXPECT().FindByKey(gomock.Any(), model.EventKey("e1")).Return(nil, errors.New("connection reset"))

	svc, err := NewEventService(store, mocks.NewMockNotifier(ctrl), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	_, err = svc.GetEvent(context.Background(), adminViewer(), "e1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}
