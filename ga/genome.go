// Package ga implements the genetic search over synthesizer parameters:
// genome bounds and initialization, fitness evaluation against a target
// waveform, selection, crossover, mutation and the generation loop.
package ga

import (
	"fmt"
	"math"
	"math/rand"
)

// Genome is one candidate parameter vector. Gene i is constrained by
// Bounds[i] of the run.
type Genome []float64

// Clone returns a copy that shares no storage with g.
func (g Genome) Clone() Genome {
	return append(Genome(nil), g...)
}

// Bound constrains one gene to [Min, Max]. Integer genes always hold whole
// numbers.
type Bound struct {
	Name    string  `json:"name,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Integer bool    `json:"integer,omitempty"`
}

func (b Bound) Range() float64 {
	return b.Max - b.Min
}

// Clamp limits v to the bound, rounding integer genes.
func (b Bound) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		v = b.Min
	}
	if b.Integer {
		v = math.Round(v)
	}
	if v < b.Min {
		v = b.Min
		if b.Integer {
			v = math.Ceil(b.Min)
		}
	}
	if v > b.Max {
		v = b.Max
		if b.Integer {
			v = math.Floor(b.Max)
		}
	}
	return v
}

// Sample draws a value uniformly in the bound.
func (b Bound) Sample(rng *rand.Rand) float64 {
	if b.Integer {
		lo := math.Ceil(b.Min)
		hi := math.Floor(b.Max)
		return lo + float64(rng.Int63n(int64(hi-lo)+1))
	}
	if b.Min == b.Max {
		return b.Min
	}
	u := rng.Float64()
	return math.Max(b.Min, math.Min(b.Max, b.Min*(1-u)+b.Max*u))
}

// maxIntegerSpan keeps integer genes exactly representable and within
// rand.Int63n.
const maxIntegerSpan = 1 << 53

// Bounds is the ordered per-gene constraint list of a run.
type Bounds []Bound

// Validate reports the first invalid bound as a ConfigurationError.
func (bs Bounds) Validate() error {
	if len(bs) == 0 {
		return configErr("Bounds", "at least one gene is required")
	}
	for i, b := range bs {
		field := fmt.Sprintf("Bounds[%d]", i)
		if b.Name != "" {
			field = fmt.Sprintf("Bounds[%d](%s)", i, b.Name)
		}
		if !finite(b.Min) || !finite(b.Max) {
			return configErr(field, "min and max must be finite")
		}
		if b.Min > b.Max {
			return configErr(field, fmt.Sprintf("min %g > max %g", b.Min, b.Max))
		}
		if !finite(b.Range()) {
			return configErr(field, fmt.Sprintf("range [%g, %g] overflows float64", b.Min, b.Max))
		}
		if b.Integer {
			lo, hi := math.Ceil(b.Min), math.Floor(b.Max)
			if lo > hi {
				return configErr(field, fmt.Sprintf("no integer in [%g, %g]", b.Min, b.Max))
			}
			if hi-lo >= maxIntegerSpan {
				return configErr(field, fmt.Sprintf("integer range [%g, %g] wider than 2^53", b.Min, b.Max))
			}
		}
	}
	return nil
}

// Clamp returns a copy of g with every gene clamped to its bound.
func (bs Bounds) Clamp(g Genome) Genome {
	out := make(Genome, len(bs))
	for i, b := range bs {
		if i < len(g) {
			out[i] = b.Clamp(g[i])
		} else {
			out[i] = b.Min
		}
	}
	return out
}

// Contains reports whether every gene of g lies inside its bound and
// integer genes are whole.
func (bs Bounds) Contains(g Genome) bool {
	if len(g) != len(bs) {
		return false
	}
	for i, b := range bs {
		v := g[i]
		if !finite(v) || v < b.Min || v > b.Max {
			return false
		}
		if b.Integer && v != math.Trunc(v) {
			return false
		}
	}
	return true
}

// Random draws one genome uniformly within the bounds.
func (bs Bounds) Random(rng *rand.Rand) Genome {
	g := make(Genome, len(bs))
	for i, b := range bs {
		g[i] = b.Sample(rng)
	}
	return g
}

// Names lists the gene names in order.
func (bs Bounds) Names() []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

// Individual is one population slot.
type Individual struct {
	Genome    Genome  `json:"genome"`
	Score     float64 `json:"score"`
	Evaluated bool    `json:"evaluated"`
	Failed    bool    `json:"failed,omitempty"`
}

// Population is the fixed-size arena of one generation.
type Population []Individual

// Genomes returns the genomes in slot order (not copied).
func (p Population) Genomes() []Genome {
	out := make([]Genome, len(p))
	for i := range p {
		out[i] = p[i].Genome
	}
	return out
}

// Initialize returns n genomes drawn uniformly within bounds.
func Initialize(rng *rand.Rand, bounds Bounds, n int) (Population, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, configErr("PopulationSize", fmt.Sprintf("must be > 0 (got %d)", n))
	}
	if rng == nil {
		return nil, configErr("Rand", "random source is nil")
	}
	pop := make(Population, n)
	for i := range pop {
		pop[i] = Individual{Genome: bounds.Random(rng)}
	}
	return pop, nil
}

// genomeKey identifies a genome by the exact bit patterns of its genes.
func genomeKey(g Genome) string {
	buf := make([]byte, 0, len(g)*8)
	for _, v := range g {
		bits := math.Float64bits(v)
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(bits>>s))
		}
	}
	return string(buf)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
