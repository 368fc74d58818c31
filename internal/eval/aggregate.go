package eval

// AggregateStatus reduces a case's trials to one status using pass^k
// semantics: the case passes only if every trial passed, errors only
// if every trial errored, and fails otherwise.
func AggregateStatus(trials []Trial) TrialStatus {
	if len(trials) == 0 {
		return StatusError
	}
	allPass, allError := true, true
	for _, t := range trials {
		if t.Status != StatusPass {
			allPass = false
		}
		if t.Status != StatusError {
			allError = false
		}
	}
	switch {
	case allPass:
		return StatusPass
	case allError:
		return StatusError
	default:
		return StatusFail
	}
}

// TrialsByCase groups trials by case id, preserving the order trials
// appear in. For a sorted run the per-case slices are ordered by
// trial index.
func TrialsByCase(trials []Trial) map[string][]Trial {
	out := make(map[string][]Trial)
	for _, t := range trials {
		out[t.CaseID] = append(out[t.CaseID], t)
	}
	return out
}
