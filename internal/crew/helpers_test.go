package crew

import (
	"time"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

func regKey(s string) *model.RegistrationKey {
	k := model.RegistrationKey(s)
	return &k
}

func userKey(s string) *model.UserKey {
	k := model.UserKey(s)
	return &k
}

func slot(key string, order, criticality int, assigned *model.RegistrationKey, positions ...model.PositionKey) model.Slot {
	return model.Slot{
		Key:                  model.SlotKey(key),
		Order:                order,
		Criticality:          criticality,
		Positions:            positions,
		AssignedRegistration: assigned,
	}
}

func member(key, user string, pos model.PositionKey) model.Registration {
	return model.Registration{
		Key:         model.RegistrationKey(key),
		PositionKey: pos,
		UserKey:     userKey(user),
		AccessKey:   "access-" + key,
		Note:        "note of " + key,
	}
}

func guest(key, name string, pos model.PositionKey) model.Registration {
	return model.Registration{
		Key:         model.RegistrationKey(key),
		PositionKey: pos,
		Name:        &name,
		AccessKey:   "access-" + key,
	}
}

func newEvent(state model.EventState, slots []model.Slot, regs ...model.Registration) *model.Event {
	start := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	return &model.Event{
		Details: model.EventDetails{
			Key:   "event-1",
			Name:  "Summer passage",
			Type:  model.EventTypeMultiDay,
			State: state,
			Start: start,
			End:   start.Add(72 * time.Hour),
			Slots: slots,
		},
		Registrations: regs,
	}
}

func assignments(ev *model.Event) map[model.SlotKey]string {
	out := make(map[model.SlotKey]string, len(ev.Details.Slots))
	for _, s := range ev.Details.Slots {
		if s.AssignedRegistration == nil {
			out[s.Key] = ""
			continue
		}
		out[s.Key] = string(*s.AssignedRegistration)
	}
	return out
}
