package crew

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

type RegistrationLifecycleSuite struct {
	suite.Suite
	ev  *model.Event
	now time.Time
}

func TestRegistrationLifecycleSuite(t *testing.T) {
	suite.Run(t, new(RegistrationLifecycleSuite))
}

func (s *RegistrationLifecycleSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ev = newEvent(model.EventStatePlanned,
		[]model.Slot{
			slot("s1", 1, 1, regKey("r1"), posSkipper),
			slot("s2", 2, 1, nil, posDeck),
		},
		member("r1", "u1", posSkipper),
		guest("r2", "Ada Lovelace", posDeck),
	)
}

func (s *RegistrationLifecycleSuite) TestAddRegistration() {
	s.Run("appends with a fresh access key and no confirmation", func() {
		confirmed := s.now
		reg := member("r3", "u3", posDeck)
		reg.AccessKey = "client-chosen"
		reg.ConfirmedAt = &confirmed

		added, err := AddRegistration(s.ev, reg)

		s.Require().NoError(err)
		s.True(added)
		s.Require().Len(s.ev.Registrations, 3)
		stored := s.ev.Registrations[2]
		s.Len(stored.AccessKey, 32)
		s.NotEqual("client-chosen", stored.AccessKey)
		s.Nil(stored.ConfirmedAt)
	})

	s.Run("same member twice is a no-op", func() {
		before := len(s.ev.Registrations)
		added, err := AddRegistration(s.ev, member("r9", "u1", posDeck))
		s.Require().NoError(err)
		s.False(added)
		s.Len(s.ev.Registrations, before)
	})

	s.Run("same guest name twice is a conflict", func() {
		_, err := AddRegistration(s.ev, guest("r9", "  ada lovelace ", posDeck))
		s.Require().ErrorIs(err, model.ErrConflict)
	})
}

func (s *RegistrationLifecycleSuite) TestRemoveRegistration() {
	s.Run("removing an assigned registration clears its slot", func() {
		removal, err := RemoveRegistration(s.ev, "r1")

		s.Require().NoError(err)
		s.True(removal.WasAssigned)
		s.Equal(model.RegistrationKey("r1"), removal.Registration.Key)
		s.Equal(-1, s.ev.FindRegistration("r1"))
		for _, sl := range s.ev.Details.Slots {
			s.Nil(sl.AssignedRegistration)
		}
	})

	s.Run("removing a waiting-list registration reports no crew change", func() {
		removal, err := RemoveRegistration(s.ev, "r2")
		s.Require().NoError(err)
		s.False(removal.WasAssigned)
	})

	s.Run("unknown registration is not found", func() {
		_, err := RemoveRegistration(s.ev, "nope")
		s.Require().ErrorIs(err, model.ErrNotFound)
	})
}

func (s *RegistrationLifecycleSuite) TestConfirmRegistration() {
	s.Run("wrong access key is unauthorized", func() {
		_, err := ConfirmRegistration(s.ev, "r1", "wrong", s.now)
		s.Require().ErrorIs(err, model.ErrUnauthorized)
		s.Nil(s.ev.Registrations[0].ConfirmedAt)
	})

	s.Run("confirms once", func() {
		changed, err := ConfirmRegistration(s.ev, "r1", "access-r1", s.now)
		s.Require().NoError(err)
		s.True(changed)
		s.Require().NotNil(s.ev.Registrations[0].ConfirmedAt)
		s.Equal(s.now, *s.ev.Registrations[0].ConfirmedAt)
	})

	s.Run("reconfirming keeps the first timestamp", func() {
		changed, err := ConfirmRegistration(s.ev, "r1", "access-r1", s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.False(changed)
		s.Equal(s.now, *s.ev.Registrations[0].ConfirmedAt)
	})

	s.Run("missing stored key never matches", func() {
		s.ev.Registrations[1].AccessKey = ""
		_, err := ConfirmRegistration(s.ev, "r2", "", s.now)
		s.Require().ErrorIs(err, model.ErrUnauthorized)
	})
}

func (s *RegistrationLifecycleSuite) TestDeclineRegistration() {
	s.Run("declining a confirmed registration is a conflict and changes nothing", func() {
		_, err := ConfirmRegistration(s.ev, "r1", "access-r1", s.now)
		s.Require().NoError(err)

		_, err = DeclineRegistration(s.ev, "r1", "access-r1")

		s.Require().ErrorIs(err, model.ErrConflict)
		s.Len(s.ev.Registrations, 2)
		s.Equal(map[model.SlotKey]string{"s1": "r1", "s2": ""}, assignments(s.ev))
	})

	s.Run("declining with the wrong key is unauthorized", func() {
		_, err := DeclineRegistration(s.ev, "r2", "access-r1")
		s.Require().ErrorIs(err, model.ErrUnauthorized)
		s.Len(s.ev.Registrations, 2)
	})

	s.Run("declining removes the registration", func() {
		removal, err := DeclineRegistration(s.ev, "r2", "access-r2")
		s.Require().NoError(err)
		s.False(removal.WasAssigned)
		s.Len(s.ev.Registrations, 1)
	})
}

func (s *RegistrationLifecycleSuite) TestEnsureAccessKey() {
	s.Run("keeps an existing key", func() {
		key, created, err := EnsureAccessKey(s.ev, "r1")
		s.Require().NoError(err)
		s.False(created)
		s.Equal("access-r1", key)
	})

	s.Run("backfills a missing key", func() {
		s.ev.Registrations[1].AccessKey = ""
		key, created, err := EnsureAccessKey(s.ev, "r2")
		s.Require().NoError(err)
		s.True(created)
		s.NotEmpty(key)
		s.Equal(key, s.ev.Registrations[1].AccessKey)
	})
}

func (s *RegistrationLifecycleSuite) TestUpdateRegistration() {
	arrival := s.now.Add(24 * time.Hour)
	reg, err := UpdateRegistration(s.ev, "r2", RegistrationUpdate{
		PositionKey: posCook,
		Note:        "vegetarian",
		ArrivalDate: &arrival,
	})
	s.Require().NoError(err)
	s.Equal(posCook, reg.PositionKey)
	s.Equal("vegetarian", s.ev.Registrations[1].Note)

	_, err = UpdateRegistration(s.ev, "r2", RegistrationUpdate{})
	s.ErrorIs(err, model.ErrInvalidInput)
}

func (s *RegistrationLifecycleSuite) TestReplaceSlots() {
	delta, repaired := ReplaceSlots(s.ev, []model.Slot{
		slot("s1", 1, 1, nil, posSkipper),
		slot("s2", 2, 1, regKey("r2"), posDeck),
		slot("s3", 3, 0, regKey("ghost"), posDeck),
	})

	s.Equal(1, repaired)
	s.Equal([]model.RegistrationKey{"r2"}, delta.Added)
	s.Equal([]model.RegistrationKey{"r1"}, delta.Removed)
	s.Equal(map[model.SlotKey]string{"s1": "", "s2": "r2", "s3": ""}, assignments(s.ev))
}
