// Package crew is the crew assignment engine. It operates on an in-memory
// event aggregate that the caller has loaded and will persist: it repairs slot
// references, backfills higher-priority slots, redacts the aggregate for a
// viewer, evaluates the confirmation windows and manages registrations.
//
// Nothing here blocks or locks. Mutating functions install fresh slices on the
// aggregate rather than writing through the ones they were given.
package crew

import "github.com/Shivanand-hulikatti/crew-planner/internal/model"

// RemoveInvalidSlotAssignments clears every slot assignment that does not
// resolve to a registration of ev and returns how many it cleared.
func RemoveInvalidSlotAssignments(ev *model.Event) int {
	present := registrationKeys(ev.Registrations)
	slots := make([]model.Slot, len(ev.Details.Slots))
	repaired := 0
	for i, slot := range ev.Details.Slots {
		if slot.AssignedRegistration != nil {
			if _, ok := present[*slot.AssignedRegistration]; !ok {
				slots[i] = slot.Assign(nil)
				repaired++
				continue
			}
		}
		slots[i] = slot.Clone()
	}
	ev.Details.Slots = slots
	return repaired
}

// AssignedRegistrations returns the set of registration keys held by a slot.
func AssignedRegistrations(ev *model.Event) map[model.RegistrationKey]struct{} {
	assigned := make(map[model.RegistrationKey]struct{})
	for _, slot := range ev.Details.Slots {
		if slot.AssignedRegistration != nil {
			assigned[*slot.AssignedRegistration] = struct{}{}
		}
	}
	return assigned
}

func registrationKeys(regs []model.Registration) map[model.RegistrationKey]struct{} {
	keys := make(map[model.RegistrationKey]struct{}, len(regs))
	for _, r := range regs {
		keys[r.Key] = struct{}{}
	}
	return keys
}
