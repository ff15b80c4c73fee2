package model

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleStaff     Role = "staff"
)

type ActorAttributes struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email string    `json:"email" db:"email"`
	Phone string    `json:"phone" db:"phone"`
}

// Actor is one of Buyer, Organizer or Staff. Callers dispatch with a type switch.
type Actor interface {
	Attributes() ActorAttributes
	Role() Role
	sealed()
}

type Buyer struct {
	ActorAttributes
}

type Organizer struct {
	ActorAttributes
}

type Staff struct {
	ActorAttributes
	AssignedEvents []uuid.UUID `json:"assigned_events"`
}

func (a Buyer) Attributes() ActorAttributes     { return a.ActorAttributes }
func (a Organizer) Attributes() ActorAttributes { return a.ActorAttributes }
func (a Staff) Attributes() ActorAttributes     { return a.ActorAttributes }

func (Buyer) Role() Role     { return RoleUser }
func (Organizer) Role() Role { return RoleOrganizer }
func (Staff) Role() Role     { return RoleStaff }

func (Buyer) sealed()     {}
func (Organizer) sealed() {}
func (Staff) sealed()     {}

func (s Staff) IsAssignedTo(eventID uuid.UUID) bool {
	return lo.Contains(s.AssignedEvents, eventID)
}

// NewActor 依角色建立對應的 Actor
func NewActor(role Role, attrs ActorAttributes, assigned []uuid.UUID) (Actor, bool) {
	switch role {
	case RoleUser:
		return Buyer{ActorAttributes: attrs}, true
	case RoleOrganizer:
		return Organizer{ActorAttributes: attrs}, true
	case RoleStaff:
		return Staff{ActorAttributes: attrs, AssignedEvents: assigned}, true
	}
	return nil, false
}
