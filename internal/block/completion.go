package block

// ChildCompletion is one child's contribution to an aggregator's rollup.
type ChildCompletion struct {
	Weight     float64
	Completion float64
	Mode       CompletionMode
}

// RollupCompletion computes an aggregator's progress as the weighted mean of
// its non-excluded children. Children with non-positive weight count with
// weight 1. An aggregator with no countable children is complete.
func RollupCompletion(children []ChildCompletion) float64 {
	var totalWeight, weighted float64
	for _, c := range children {
		if c.Mode == Excluded {
			continue
		}
		w := c.Weight
		if w <= 0 {
			w = 1
		}
		totalWeight += w
		weighted += w * clamp01(c.Completion)
	}
	if totalWeight == 0 {
		return 1
	}
	return weighted / totalWeight
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
