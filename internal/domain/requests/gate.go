package requests

import "github.com/google/uuid"

const (
	ReasonNotOwner         = "not-owner"
	ReasonInsufficientRole = "insufficient-role"
	ReasonOutOfScope       = "out-of-scope"
)

// Actor is the caller of a lifecycle operation. It is always passed
// explicitly; nothing in this package reads identity from ambient state.
type Actor struct {
	ID        uuid.UUID
	Role      Role
	CompanyID *uuid.UUID
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
	// Override marks the super-admin cancel that skips the transition table.
	Override bool
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Authorize decides whether actor may move req to target. It only consults
// the transition table to classify a move as creator-only; legality of the
// move itself is TransitionLegal's job.
// Rules, in order:
//   - creator-only moves (completed->reopened, new|accepted->cancelled) need actor == creator
//   - a super admin may cancel from any non-terminal state
//   - a non-staff actor may only aim at reopened/cancelled, and only on its own request
//   - everything else needs a staff role, and admins/dispatchers need a matching company
func Authorize(actor Actor, req *MaintenanceRequest, target Status) Decision {
	if req == nil {
		return deny(ReasonInsufficientRole)
	}
	isCreator := actor.ID != uuid.Nil && actor.ID == req.CreatedBy

	if IsResidentTransition(req.Status, target) {
		if isCreator {
			return allow()
		}
		if actor.Role == RoleSuperAdmin && target == StatusCancelled {
			return Decision{Allowed: true, Override: true}
		}
		return deny(ReasonNotOwner)
	}
	if actor.Role == RoleSuperAdmin && target == StatusCancelled && !req.Status.IsTerminal() {
		return Decision{Allowed: true, Override: true}
	}
	if !actor.Role.IsStaff() {
		if target == StatusReopened || target == StatusCancelled {
			if !isCreator {
				return deny(ReasonNotOwner)
			}
			// the owner is entitled to ask; the table rejects the wrong source state
			return allow()
		}
		return deny(ReasonInsufficientRole)
	}
	if actor.Role == RoleSuperAdmin {
		return allow()
	}
	if !sameCompany(actor.CompanyID, req.CompanyID) {
		return deny(ReasonOutOfScope)
	}
	return allow()
}

func sameCompany(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// Permits combines the gate and the table: true when actor could move req to target right now.
func Permits(actor Actor, req *MaintenanceRequest, target Status) (Decision, bool) {
	d := Authorize(actor, req, target)
	if !d.Allowed {
		return d, false
	}
	return d, TransitionLegal(req.Status, target, d)
}

// TransitionLegal applies the table to an already authorized move.
func TransitionLegal(from, to Status, d Decision) bool {
	if from == to || from.IsTerminal() {
		return false
	}
	if d.Override {
		return to == StatusCancelled
	}
	return StaffTransitionAllowed(from, to) || ResidentTransitionAllowed(from, to)
}

// AllowedTransitions lists every status actor may move req to, for clients
// that render only the actions that would succeed.
func AllowedTransitions(actor Actor, req *MaintenanceRequest) []Status {
	if req == nil {
		return nil
	}
	out := make([]Status, 0, 4)
	for _, target := range AllStatuses {
		if _, ok := Permits(actor, req, target); ok {
			out = append(out, target)
		}
	}
	return out
}

// CanView reports whether actor may read req and its history, with the
// denial reason when not.
func CanView(actor Actor, req *MaintenanceRequest) (bool, string) {
	if req == nil {
		return false, ReasonInsufficientRole
	}
	switch {
	case actor.ID != uuid.Nil && actor.ID == req.CreatedBy:
		return true, ""
	case actor.Role == RoleSuperAdmin:
		return true, ""
	case actor.Role.IsStaff():
		if sameCompany(actor.CompanyID, req.CompanyID) {
			return true, ""
		}
		return false, ReasonOutOfScope
	default:
		return false, ReasonNotOwner
	}
}
