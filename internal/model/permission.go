package model

import "strings"

// Permission is a capability granted to a viewer by the identity provider.
type Permission string

const (
	PermEventRead               Permission = "event:read"
	PermEventCreate             Permission = "event:create"
	PermEventDelete             Permission = "event:delete"
	PermEventDetailsWrite       Permission = "event-details:write"
	PermEventSlotsWrite         Permission = "event-slots:write"
	PermEventRegistrationsWrite Permission = "event-registrations:write"
	PermEventRegistrationsSelf  Permission = "event-registrations:self"
)

// PermissionSet is the pre-resolved set of permissions of one viewer.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParsePermissions reads a comma separated permission list.
func ParsePermissions(raw string) PermissionSet {
	set := PermissionSet{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			set[Permission(p)] = struct{}{}
		}
	}
	return set
}

func (p PermissionSet) Has(perm Permission) bool {
	_, ok := p[perm]
	return ok
}

// Viewer is whoever a request acts on behalf of. An anonymous caller that
// presented a verified access key has AccessRegistration set and no
// permissions.
type Viewer struct {
	UserKey            *UserKey
	Permissions        PermissionSet
	AccessRegistration *RegistrationKey
}

// AccessKeyViewer builds the viewer for an anonymous access-key request.
func AccessKeyViewer(key RegistrationKey) Viewer {
	return Viewer{AccessRegistration: &key}
}

func (v Viewer) Can(perm Permission) bool { return v.Permissions.Has(perm) }

// Owns reports whether reg belongs to the viewer.
func (v Viewer) Owns(reg Registration) bool {
	if v.AccessRegistration != nil && *v.AccessRegistration == reg.Key {
		return true
	}
	return v.UserKey != nil && reg.UserKey != nil && *v.UserKey == *reg.UserKey
}

// IsRegisteredOn reports whether the viewer holds a registration on ev.
func (v Viewer) IsRegisteredOn(ev *Event) bool {
	for _, r := range ev.Registrations {
		if v.Owns(r) {
			return true
		}
	}
	return false
}
