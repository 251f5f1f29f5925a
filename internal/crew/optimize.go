package crew

import (
	"cmp"
	"slices"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// OptimizeSlots moves registrations up into empty higher-priority slots.
//
// Slots are visited once in ascending Order. For each empty slot the later
// slots are scanned in the same order and the first one holding a
// registration whose position the empty slot accepts gives it up. Earlier
// slots are never revisited, so the result is a local improvement only.
// It returns the number of moves made.
func OptimizeSlots(ev *model.Event) int {
	slots := make([]model.Slot, len(ev.Details.Slots))
	for i, s := range ev.Details.Slots {
		slots[i] = s.Clone()
	}
	order := make([]int, len(slots))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(slots[a].Order, slots[b].Order)
	})

	positions := make(map[model.RegistrationKey]model.PositionKey, len(ev.Registrations))
	for _, r := range ev.Registrations {
		positions[r.Key] = r.PositionKey
	}

	moves := 0
	for i, target := range order {
		if slots[target].Assigned() {
			continue
		}
		for _, donor := range order[i:] {
			held := slots[donor].AssignedRegistration
			if held == nil {
				continue
			}
			pos, ok := positions[*held]
			if !ok || !slots[target].Accepts(pos) {
				continue
			}
			slots[target] = slots[target].Assign(held)
			slots[donor] = slots[donor].Assign(nil)
			moves++
			break
		}
	}
	ev.Details.Slots = slots
	return moves
}
