package genetic

import "sort"

// HallOfFame retains the best individuals ever evaluated, fittest first.
// Members are copies and never change after insertion.
type HallOfFame struct {
	size    int
	members []*Individual
}

// NewHallOfFame returns an empty hall of fame holding at most size members.
func NewHallOfFame(size int) *HallOfFame {
	return &HallOfFame{size: size}
}

// Update inserts every evaluated individual fitter than the current worst
// member, keeping at most size members.
func (h *HallOfFame) Update(pop []*Individual) {
	for _, ind := range pop {
		if !ind.valid {
			continue
		}
		if len(h.members) == h.size && ind.Fitness <= h.members[len(h.members)-1].Fitness {
			continue
		}
		h.members = append(h.members, ind.clone())
		sort.SliceStable(h.members, func(i, j int) bool {
			return h.members[i].Fitness > h.members[j].Fitness
		})
		if len(h.members) > h.size {
			h.members = h.members[:h.size]
		}
	}
}

// Len returns the number of members.
func (h *HallOfFame) Len() int { return len(h.members) }

// At returns the i-th best member.
func (h *HallOfFame) At(i int) *Individual { return h.members[i] }

// Best returns the fittest member, or nil if none has been recorded.
func (h *HallOfFame) Best() *Individual {
	if len(h.members) == 0 {
		return nil
	}
	return h.members[0]
}
