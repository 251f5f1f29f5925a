package crew

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/crew-planner/internal/model"
)

// Removal describes a registration that left the event.
type Removal struct {
	Registration model.Registration
	// WasAssigned is true when a slot held the registration before removal,
	// i.e. the published crew changed.
	WasAssigned bool
}

// AddRegistration appends reg to the event with a fresh access key and no
// confirmation. A second registration of the same member is ignored and
// reported as added=false; a second guest with the same name is a conflict.
func AddRegistration(ev *model.Event, reg model.Registration) (bool, error) {
	if reg.UserKey != nil && ev.HasRegistrationOf(*reg.UserKey) {
		return false, nil
	}
	if name := normalizeGuestName(reg.GuestName()); name != "" {
		for _, existing := range ev.Registrations {
			if normalizeGuestName(existing.GuestName()) == name {
				return false, fmt.Errorf("guest %q is already registered: %w", reg.GuestName(), model.ErrConflict)
			}
		}
	}
	if ev.FindRegistration(reg.Key) >= 0 {
		return false, fmt.Errorf("registration %s already exists: %w", reg.Key, model.ErrConflict)
	}

	accessKey, err := model.NewAccessKey()
	if err != nil {
		return false, err
	}
	reg = reg.Clone()
	reg.AccessKey = accessKey
	reg.ConfirmedAt = nil

	regs := make([]model.Registration, 0, len(ev.Registrations)+1)
	regs = append(regs, ev.Registrations...)
	ev.Registrations = append(regs, reg)
	return true, nil
}

// RemoveRegistration drops the registration and clears any slot holding it.
func RemoveRegistration(ev *model.Event, key model.RegistrationKey) (Removal, error) {
	idx := ev.FindRegistration(key)
	if idx < 0 {
		return Removal{}, fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	_, wasAssigned := AssignedRegistrations(ev)[key]
	removed := ev.Registrations[idx].Clone()

	regs := make([]model.Registration, 0, len(ev.Registrations)-1)
	regs = append(regs, ev.Registrations[:idx]...)
	ev.Registrations = append(regs, ev.Registrations[idx+1:]...)
	RemoveInvalidSlotAssignments(ev)

	return Removal{Registration: removed, WasAssigned: wasAssigned}, nil
}

// RegistrationUpdate holds the registrant-editable fields.
type RegistrationUpdate struct {
	PositionKey   model.PositionKey
	Note          string
	ArrivalDate   *time.Time
	OvernightStay *bool
}

// UpdateRegistration overwrites the editable fields of a registration.
func UpdateRegistration(ev *model.Event, key model.RegistrationKey, upd RegistrationUpdate) (model.Registration, error) {
	idx := ev.FindRegistration(key)
	if idx < 0 {
		return model.Registration{}, fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	if upd.PositionKey == "" {
		return model.Registration{}, fmt.Errorf("registration position is required: %w", model.ErrInvalidInput)
	}
	reg := ev.Registrations[idx].Clone()
	reg.PositionKey = upd.PositionKey
	reg.Note = upd.Note
	reg.ArrivalDate = upd.ArrivalDate
	reg.OvernightStay = upd.OvernightStay
	replaceRegistration(ev, idx, reg)
	return reg.Clone(), nil
}

// ConfirmRegistration stamps the confirmation time if accessKey matches.
// Confirming twice keeps the first timestamp and reports changed=false.
func ConfirmRegistration(ev *model.Event, key model.RegistrationKey, accessKey string, now time.Time) (bool, error) {
	idx, err := verifyAccessKey(ev, key, accessKey)
	if err != nil {
		return false, err
	}
	if ev.Registrations[idx].Confirmed() {
		return false, nil
	}
	reg := ev.Registrations[idx].Clone()
	confirmedAt := now
	reg.ConfirmedAt = &confirmedAt
	replaceRegistration(ev, idx, reg)
	return true, nil
}

// DeclineRegistration removes the registration if accessKey matches and it is
// not yet confirmed.
func DeclineRegistration(ev *model.Event, key model.RegistrationKey, accessKey string) (Removal, error) {
	idx, err := verifyAccessKey(ev, key, accessKey)
	if err != nil {
		return Removal{}, err
	}
	if ev.Registrations[idx].Confirmed() {
		return Removal{}, fmt.Errorf("registration %s is already confirmed: %w", key, model.ErrConflict)
	}
	return RemoveRegistration(ev, key)
}

// EnsureAccessKey issues an access key for a registration that has none and
// returns the key in effect. created reports whether a new key was issued.
func EnsureAccessKey(ev *model.Event, key model.RegistrationKey) (accessKey string, created bool, err error) {
	idx := ev.FindRegistration(key)
	if idx < 0 {
		return "", false, fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	if ak := ev.Registrations[idx].AccessKey; ak != "" {
		return ak, false, nil
	}
	ak, err := model.NewAccessKey()
	if err != nil {
		return "", false, err
	}
	reg := ev.Registrations[idx].Clone()
	reg.AccessKey = ak
	replaceRegistration(ev, idx, reg)
	return ak, true, nil
}

// VerifyAccessKey checks accessKey against the stored key of a registration.
func VerifyAccessKey(ev *model.Event, key model.RegistrationKey, accessKey string) error {
	_, err := verifyAccessKey(ev, key, accessKey)
	return err
}

func verifyAccessKey(ev *model.Event, key model.RegistrationKey, accessKey string) (int, error) {
	idx := ev.FindRegistration(key)
	if idx < 0 {
		return -1, fmt.Errorf("registration %s: %w", key, model.ErrNotFound)
	}
	stored := ev.Registrations[idx].AccessKey
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(accessKey)) != 1 {
		return -1, fmt.Errorf("access key mismatch for registration %s: %w", key, model.ErrUnauthorized)
	}
	return idx, nil
}

func replaceRegistration(ev *model.Event, idx int, reg model.Registration) {
	regs := make([]model.Registration, len(ev.Registrations))
	copy(regs, ev.Registrations)
	regs[idx] = reg
	ev.Registrations = regs
}

func normalizeGuestName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
