package crew

import "github.com/Shivanand-hulikatti/crew-planner/internal/model"

// Delta lists the registrations that joined or left the crew.
type Delta struct {
	Added   []model.RegistrationKey
	Removed []model.RegistrationKey
}

func (d Delta) Empty() bool { return len(d.Added) == 0 && len(d.Removed) == 0 }

// ReplaceSlots installs a new slot plan, drops assignments to unknown
// registrations and reports how the crew changed.
func ReplaceSlots(ev *model.Event, slots []model.Slot) (Delta, int) {
	before := ev.Clone()
	next := make([]model.Slot, len(slots))
	for i, s := range slots {
		next[i] = s.Clone()
	}
	ev.Details.Slots = next
	repaired := RemoveInvalidSlotAssignments(ev)
	return CrewDelta(before, ev), repaired
}

// CrewDelta compares the crews of two versions of the same event. Keys are
// reported in registration order.
func CrewDelta(before, after *model.Event) Delta {
	was := AssignedRegistrations(before)
	is := AssignedRegistrations(after)
	var d Delta
	for _, r := range after.Registrations {
		_, inBefore := was[r.Key]
		if _, inAfter := is[r.Key]; inAfter && !inBefore {
			d.Added = append(d.Added, r.Key)
		}
	}
	for _, r := range before.Registrations {
		_, inAfter := is[r.Key]
		if _, inBefore := was[r.Key]; inBefore && !inAfter {
			d.Removed = append(d.Removed, r.Key)
		}
	}
	return d
}

// Waitlisted returns the registrations that no slot holds.
func Waitlisted(ev *model.Event) []model.Registration {
	assigned := AssignedRegistrations(ev)
	var out []model.Registration
	for _, r := range ev.Registrations {
		if _, ok := assigned[r.Key]; !ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Crew returns the registrations a slot holds, in registration order.
func Crew(ev *model.Event) []model.Registration {
	assigned := AssignedRegistrations(ev)
	var out []model.Registration
	for _, r := range ev.Registrations {
		if _, ok := assigned[r.Key]; ok {
			out = append(out, r.Clone())
		}
	}
	return out
}
