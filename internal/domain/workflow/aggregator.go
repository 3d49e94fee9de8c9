package workflow

// Aggregate derives the ticket status from the statuses of its active details.
// ok is false when there are no active details, in which case the ticket keeps
// its status.
//
// Decision table, first matching row wins:
//
//	all CANCELLED                      CANCELLED
//	all at Done                        Done (CLOSED / DONE)
//	any CANCELLED                      PARTIAL_CANCELLED
//	all at the same stage              that stage
//	otherwise                          PARTIAL_<most advanced stage reached>
//
// Every combination maps to exactly one status.
func Aggregate(def Definition, statuses []Status) (status Status, ok bool) {
	if len(statuses) == 0 {
		return "", false
	}

	var (
		allCancelled = true
		allDone      = true
		anyCancelled = false
		lowest       = len(def.Stages)
		highest      = -1
	)
	for _, s := range statuses {
		cancelled := s == StatusCancelled
		allCancelled = allCancelled && cancelled
		allDone = allDone && s == def.Done
		anyCancelled = anyCancelled || cancelled
		if cancelled {
			continue
		}
		st := def.stage(s)
		lowest = min(lowest, st)
		highest = max(highest, st)
	}

	switch {
	case allCancelled:
		return StatusCancelled, true
	case allDone:
		return def.Done, true
	case anyCancelled:
		return StatusPartialCancelled, true
	case lowest == highest:
		return def.Stages[highest], true
	default:
		return Partial(def.Stages[highest]), true
	}
}
