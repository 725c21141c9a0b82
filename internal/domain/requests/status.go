package requests

import (
	"fmt"
	"strings"
)

// Status is the lifecycle position of a maintenance request.
type Status string

const (
	StatusNew        Status = "new"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusOnHold     Status = "on_hold"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusReopened   Status = "reopened"
	StatusCancelled  Status = "cancelled"
)

// AllStatuses is in presentation order.
var AllStatuses = []Status{
	StatusNew,
	StatusAccepted,
	StatusInProgress,
	StatusOnHold,
	StatusCompleted,
	StatusRejected,
	StatusReopened,
	StatusCancelled,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition of any kind may leave s.
// completed is soft-terminal and therefore not included.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

func (s Status) String() string { return string(s) }

// Category tags what kind of work a request needs.
type Category string

const (
	CategoryPlumbing   Category = "plumbing"
	CategoryElectrical Category = "electrical"
	CategoryRepair     Category = "repair"
	CategoryCleaning   Category = "cleaning"
	CategoryIntercom   Category = "intercom"
	CategoryElevator   Category = "elevator"
	CategoryHeating    Category = "heating"
	CategoryOther      Category = "other"
)

var AllCategories = []Category{
	CategoryPlumbing,
	CategoryElectrical,
	CategoryRepair,
	CategoryCleaning,
	CategoryIntercom,
	CategoryElevator,
	CategoryHeating,
	CategoryOther,
}

func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, v := range AllCategories {
		if c == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Role is the platform role of an actor.
type Role string

const (
	RoleResident   Role = "resident"
	RoleDispatcher Role = "dispatcher"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleResident, RoleDispatcher, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}

func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleDispatcher, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) IsStaff() bool {
	return r == RoleDispatcher || r == RoleAdmin || r == RoleSuperAdmin
}
