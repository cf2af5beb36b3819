package sheet

import "encoding/json"

// DefaultMaximumScore caps every ability unless a mutator raises it.
const DefaultMaximumScore uint = 20

const (
	sourceDefaultMaximum = "Default Maximum"
	sourceBaseScore      = "Base Score"
)

// AbilityBonus increases a score. When MaxTotal is set the bonus only counts
// if the resulting total stays at or below it.
type AbilityBonus struct {
	Value    uint  `json:"value"`
	MaxTotal *uint `json:"max_total,omitempty"`
}

// AbilityBonusEntry is one ledger row of an AbilityScore.
type AbilityBonusEntry struct {
	Bonus   AbilityBonus `json:"bonus"`
	Source  SourcePath   `json:"source"`
	Applied bool         `json:"applied"`
}

// AbilityMaxEntry is one cap contribution of an AbilityScore.
type AbilityMaxEntry struct {
	Max    uint       `json:"max"`
	Source SourcePath `json:"source"`
}

// AbilityScore accumulates bonuses and caps for one ability.
type AbilityScore struct {
	Bonuses  []AbilityBonusEntry `json:"bonuses,omitempty"`
	Maximums []AbilityMaxEntry   `json:"maximums"`
	Total    uint                `json:"total"`

	finalized bool
}

// NewAbilityScore returns a score carrying the default maximum.
func NewAbilityScore(maximum uint) AbilityScore {
	return AbilityScore{
		Maximums: []AbilityMaxEntry{{Max: maximum, Source: NewSourcePath(sourceDefaultMaximum)}},
	}
}

// PushBonus records bonus from source.
func (s *AbilityScore) PushBonus(bonus AbilityBonus, source SourcePath) {
	s.Bonuses = append(s.Bonuses, AbilityBonusEntry{Bonus: bonus, Source: source})
	s.finalized = false
}

// PushMaximum records a cap contribution.
func (s *AbilityScore) PushMaximum(maximum uint, source SourcePath) {
	s.Maximums = append(s.Maximums, AbilityMaxEntry{Max: maximum, Source: source})
	s.finalized = false
}

// Maximum is the largest cap offered.
func (s AbilityScore) Maximum() uint {
	var out uint
	for _, entry := range s.Maximums {
		out = max(out, entry.Max)
	}
	return out
}

// Finalized reports whether Total reflects the current ledger.
func (s AbilityScore) Finalized() bool {
	return s.finalized
}

// Finalize computes Total and marks the bonuses the optimizer counted.
// Calling it again without new pushes yields the same result.
func (s *AbilityScore) Finalize() {
	var (
		base   uint
		capped []CappedBonus
	)
	for idx, entry := range s.Bonuses {
		if entry.Bonus.MaxTotal == nil {
			base += entry.Bonus.Value
			continue
		}
		capped = append(capped, CappedBonus{Index: idx, Value: entry.Bonus.Value, Max: *entry.Bonus.MaxTotal})
	}

	total, winners := OptimizeMaxSums(base, capped)

	used := make(map[int]struct{}, len(winners))
	for _, position := range winners {
		used[capped[position].Index] = struct{}{}
	}
	for idx := range s.Bonuses {
		_, won := used[idx]
		s.Bonuses[idx].Applied = s.Bonuses[idx].Bonus.MaxTotal == nil || won
	}

	s.Total = min(total, s.Maximum())
	s.finalized = true
}

// Modifier returns the modifier of the finalized total.
func (s AbilityScore) Modifier() int {
	return Modifier(s.Total)
}

// AppliedSources returns the contributions counted toward Total.
func (s AbilityScore) AppliedSources() []Contribution[uint] {
	var out []Contribution[uint]
	for _, entry := range s.Bonuses {
		if entry.Applied {
			out = append(out, Contribution[uint]{Source: entry.Source, Amount: entry.Bonus.Value})
		}
	}
	return out
}

// MarshalJSON includes the finalized flag.
func (s AbilityScore) MarshalJSON() ([]byte, error) {
	type alias AbilityScore
	return json.Marshal(struct {
		alias
		Finalized bool `json:"finalized"`
	}{alias: alias(s), Finalized: s.finalized})
}

// CappedBonus is an optimizer input. Index is carried through for callers
// that map results back onto their own ledger.
type CappedBonus struct {
	Index int
	Value uint
	Max   uint
}

// OptimizeMaxSums finds the largest base + sum(subset) such that every bonus
// in the subset has Max >= the total. Subsets are searched exhaustively by
// increasing size in lexicographic order and the first best total found is
// kept. The returned positions index into bonuses; nil means no subset
// improved on base.
func OptimizeMaxSums(base uint, bonuses []CappedBonus) (uint, []int) {
	candidates := make([]int, 0, len(bonuses))
	for idx, bonus := range bonuses {
		if bonus.Max >= base {
			candidates = append(candidates, idx)
		}
	}

	best := base
	var winners []int
	combination := make([]int, 0, len(candidates))
	for size := 1; size <= len(candidates); size++ {
		forEachCombination(len(candidates), size, combination, func(picked []int) {
			total := base
			for _, position := range picked {
				total += bonuses[candidates[position]].Value
			}
			for _, position := range picked {
				if bonuses[candidates[position]].Max < total {
					return
				}
			}
			if total > best {
				best = total
				winners = winners[:0]
				for _, position := range picked {
					winners = append(winners, candidates[position])
				}
			}
		})
	}
	return best, winners
}

// forEachCombination calls fn with every size-k combination of 0..n-1 in
// lexicographic order. The slice passed to fn is reused between calls.
func forEachCombination(n, k int, buffer []int, fn func([]int)) {
	if k > n {
		return
	}
	picked := buffer[:k]
	for i := range picked {
		picked[i] = i
	}
	for {
		fn(picked)
		i := k - 1
		for i >= 0 && picked[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		picked[i]++
		for j := i + 1; j < k; j++ {
			picked[j] = picked[j-1] + 1
		}
	}
}
