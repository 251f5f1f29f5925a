package model

// Slot is a duty position inside an event. Lower Order is filled first.
type Slot struct {
	Key         SlotKey       `json:"key"`
	Order       int           `json:"order"`
	Criticality int           `json:"criticality"`
	Positions   []PositionKey `json:"positions"`
	Name        string        `json:"name,omitempty"`
	// AssignedRegistration must reference a registration of the same event.
	AssignedRegistration *RegistrationKey `json:"assigned_registration,omitempty"`
}

// Required reports whether the slot must be filled for the event to be staffed.
func (s Slot) Required() bool { return s.Criticality > 0 }

func (s Slot) Assigned() bool { return s.AssignedRegistration != nil }

// Accepts reports whether a registrant asking for pos may fill the slot.
func (s Slot) Accepts(pos PositionKey) bool {
	for _, p := range s.Positions {
		if p == pos {
			return true
		}
	}
	return false
}

func (s Slot) Clone() Slot {
	c := s
	c.Positions = append([]PositionKey(nil), s.Positions...)
	if s.AssignedRegistration != nil {
		key := *s.AssignedRegistration
		c.AssignedRegistration = &key
	}
	return c
}

// Assign returns a copy of s holding key; a nil key clears the assignment.
func (s Slot) Assign(key *RegistrationKey) Slot {
	c := s.Clone()
	c.AssignedRegistration = nil
	if key != nil {
		k := *key
		c.AssignedRegistration = &k
	}
	return c
}
