package compliance

import (
	"github.com/carework/shift-engine/shift"
)

// QuickResult is the answer of the lightweight pre-check.
type QuickResult struct {
	CanCreate      bool      `json:"can_create"`
	BlockingErrors []Finding `json:"blocking_errors"`
}

// QuickValidate runs the overlap and daily ceiling rules only. It uses the
// same rule functions as Validate and keeps only blocking findings, so a
// candidate it blocks is always blocked by Validate too. A rule that fails
// here blocks nothing; Validate reports it.
func (v *Validator) QuickValidate(candidate shift.Shift, existing []shift.Shift) QuickResult {
	in := newInput(candidate, existing, nil)
	res := QuickResult{BlockingErrors: []Finding{}}
	for _, check := range []ruleFunc{checkOverlap, checkDailyHours} {
		fs, err := v.run(check, in)
		if err != nil {
			continue
		}
		for _, f := range fs {
			if f.Blocking {
				res.BlockingErrors = append(res.BlockingErrors, f)
			}
		}
	}
	res.CanCreate = len(res.BlockingErrors) == 0
	return res
}
