package requests

// staffTransitions is the one table consulted for staff-driven moves.
var staffTransitions = map[Status][]Status{
	StatusNew:        {StatusAccepted, StatusRejected},
	StatusAccepted:   {StatusInProgress, StatusOnHold},
	StatusInProgress: {StatusCompleted, StatusOnHold},
	StatusOnHold:     {StatusInProgress, StatusRejected},
	StatusReopened:   {StatusAccepted, StatusRejected},
	StatusCompleted:  {},
	StatusRejected:   {},
	StatusCancelled:  {},
}

// residentTransitions are only available to the request's creator.
var residentTransitions = map[Status][]Status{
	StatusCompleted: {StatusReopened},
	StatusNew:       {StatusCancelled},
	StatusAccepted:  {StatusCancelled},
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func StaffTransitionAllowed(from, to Status) bool {
	return contains(staffTransitions[from], to)
}

func ResidentTransitionAllowed(from, to Status) bool {
	return contains(residentTransitions[from], to)
}

// IsResidentTransition reports whether from -> to is one of the creator-only moves.
func IsResidentTransition(from, to Status) bool {
	return ResidentTransitionAllowed(from, to)
}

func StaffNext(from Status) []Status {
	return append([]Status(nil), staffTransitions[from]...)
}

func ResidentNext(from Status) []Status {
	return append([]Status(nil), residentTransitions[from]...)
}

// Transition is one row of the combined table, used by tooling that prints it.
type Transition struct {
	From     Status
	To       Status
	Resident bool
}

func Table() []Transition {
	var out []Transition
	for _, from := range AllStatuses {
		for _, to := range staffTransitions[from] {
			out = append(out, Transition{From: from, To: to})
		}
		for _, to := range residentTransitions[from] {
			out = append(out, Transition{From: from, To: to, Resident: true})
		}
	}
	return out
}
