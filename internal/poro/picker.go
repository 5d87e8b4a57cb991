package poro

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"
)

type Picker struct {
	reg         *Registry
	cumulative  []int
	totalWeight int
	rng         *mrand.Rand
}

func NewPicker(reg *Registry, rng *mrand.Rand) *Picker {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}

	p := &Picker{
		reg: reg,
		rng: rng,
	}

	all := reg.All()

	p.cumulative = make([]int, len(all))
	totalWeight := 0
	for i, sp := range all {
		if sp.Weight > 0 {
			totalWeight += sp.Weight
		}
		p.cumulative[i] = totalWeight
	}
	p.totalWeight = totalWeight
	return p
}

func (p *Picker) PickId() PoroId {
	// All-zero weights degrade to a uniform pick.
	if p.totalWeight <= 0 {
		return PoroId(p.rng.Intn(p.reg.Count()))
	}

	roll := p.rng.Intn(p.totalWeight) // random int from [0,totalWeight)

	// binary search for the poro using p.cumulative
	lo, hi := 0, len(p.cumulative)-1
	for lo < hi {
		mid := (lo + hi) >> 1
		if roll < p.cumulative[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return PoroId(lo)
}

// RollStats rolls per-instance attributes uniformly within the poro's
// declared ranges. Poros with fixed stats use them verbatim.
func (p *Picker) RollStats(id PoroId) Stats {
	sp, ok := p.reg.GetById(id)
	if !ok {
		return Stats{}
	}
	if sp.Fixed != nil {
		return *sp.Fixed
	}
	r := sp.Ranges
	return Stats{
		Size:          p.randInt(r.Size.Min, r.Size.Max),
		Weight:        p.randInt(r.Weight.Min, r.Weight.Max),
		ThrowDistance: p.randInt(r.ThrowDistance.Min, r.ThrowDistance.Max),
		Fluffiness:    p.randInt(r.Fluffiness.Min, r.Fluffiness.Max),
		Hunger:        p.randInt(r.Hunger.Min, r.Hunger.Max),
	}
}

func (p *Picker) randInt(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + p.rng.Intn(max-min+1)
}
