package decode

import "github.com/bft-labs/pitwall/pkg/telemetry"

// orderCalculated sorts calculated fields so each runs after the calculated
// fields it depends on. Ties keep declaration order. Dependencies on direct
// fields are always satisfied since direct fields decode first.
func orderCalculated(calcs []FieldInfo, known map[string]bool) ([]string, []error) {
	var errs []error
	isCalc := make(map[string]bool, len(calcs))
	for _, c := range calcs {
		isCalc[c.Name] = true
	}
	for _, c := range calcs {
		for _, d := range c.Depends {
			if !known[d] {
				errs = append(errs, &SchemaError{Kind: telemetry.ErrUnknownDependency, Field: c.Name, Variable: d})
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	done := make(map[string]bool, len(calcs))
	ordered := make([]string, 0, len(calcs))
	for len(ordered) < len(calcs) {
		progressed := false
		for _, c := range calcs {
			if done[c.Name] || !ready(c, isCalc, done) {
				continue
			}
			done[c.Name] = true
			ordered = append(ordered, c.Name)
			progressed = true
			break // restart so earlier declarations win ties
		}
		if !progressed {
			return nil, []error{&SchemaError{
				Kind:  telemetry.ErrCalculatedFieldOrderingCycle,
				Field: firstPending(calcs, done),
				Cycle: findCycle(calcs, isCalc, done),
			}}
		}
	}
	return ordered, nil
}

func ready(c FieldInfo, isCalc, done map[string]bool) bool {
	for _, d := range c.Depends {
		if isCalc[d] && !done[d] {
			return false
		}
	}
	return true
}

func firstPending(calcs []FieldInfo, done map[string]bool) string {
	for _, c := range calcs {
		if !done[c.Name] {
			return c.Name
		}
	}
	return ""
}

// findCycle walks pending calculated dependencies from the first pending
// field until a name repeats, and returns the loop including the repeat.
func findCycle(calcs []FieldInfo, isCalc, done map[string]bool) []string {
	deps := make(map[string][]string, len(calcs))
	for _, c := range calcs {
		deps[c.Name] = c.Depends
	}
	cur := firstPending(calcs, done)
	var path []string
	at := map[string]int{}
	for cur != "" {
		if i, ok := at[cur]; ok {
			return append(path[i:], cur)
		}
		at[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, d := range deps[cur] {
			if isCalc[d] && !done[d] {
				next = d
				break
			}
		}
		cur = next
	}
	return path
}
