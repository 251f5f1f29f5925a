package model

import "time"

// NotificationKind selects the message a registrant receives.
type NotificationKind string

const (
	NotifyAddedToCrew              NotificationKind = "ADDED_TO_CREW"
	NotifyRemovedFromCrew          NotificationKind = "REMOVED_FROM_CREW"
	NotifyAddedToWaitingList       NotificationKind = "ADDED_TO_WAITING_LIST"
	NotifyRemovedFromWaitingList   NotificationKind = "REMOVED_FROM_WAITING_LIST"
	NotifyConfirmationRequest      NotificationKind = "CONFIRMATION_REQUEST"
	NotifyConfirmationReminder     NotificationKind = "CONFIRMATION_REMINDER"
	NotifyCrewRegistrationCanceled NotificationKind = "CREW_REGISTRATION_CANCELED"
)

// Notification is a single message for one recipient about one event.
type Notification struct {
	Kind            NotificationKind `json:"kind"`
	Recipient       UserKey          `json:"recipient"`
	EventKey        EventKey         `json:"event_key"`
	EventName       string           `json:"event_name"`
	EventStart      time.Time        `json:"event_start"`
	RegistrationKey *RegistrationKey `json:"registration_key,omitempty"`
	// AccessKey is set for confirmation messages so the recipient can
	// confirm or decline without signing in.
	AccessKey string `json:"access_key,omitempty"`
}

// NewNotification fills the event fields of a notification.
func NewNotification(kind NotificationKind, recipient UserKey, ev *Event, reg *Registration) Notification {
	n := Notification{
		Kind:       kind,
		Recipient:  recipient,
		EventKey:   ev.Details.Key,
		EventName:  ev.Details.Name,
		EventStart: ev.Details.Start,
	}
	if reg != nil {
		key := reg.Key
		n.RegistrationKey = &key
	}
	return n
}
