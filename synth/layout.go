package synth

import (
	"fmt"

	"github.com/cwbudde/algo-synthga/ga"
)

// NumHarmonics is the number of extra partials above the fundamental.
const NumHarmonics = 4

// ParamDef describes one searchable voice parameter.
type ParamDef struct {
	Name  string  `json:"name"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	IsInt bool    `json:"is_int,omitempty"`
}

// Layout maps genome positions to voice parameters.
type Layout []ParamDef

// DefaultLayout searches every voice parameter.
func DefaultLayout() Layout {
	l := Layout{
		{Name: "freq", Min: 20, Max: 2000},
		{Name: "sine_amp", Min: 0, Max: 1},
		{Name: "sine_phase", Min: 0, Max: 6.283185307179586},
		{Name: "square_amp", Min: 0, Max: 1},
		{Name: "square_phase", Min: 0, Max: 6.283185307179586},
		{Name: "saw_amp", Min: 0, Max: 1},
		{Name: "saw_phase", Min: 0, Max: 6.283185307179586},
	}
	for i := 0; i < NumHarmonics; i++ {
		l = append(l, ParamDef{Name: fmt.Sprintf("harmonic.%d", i+2), Min: 0, Max: 1})
	}
	l = append(l,
		ParamDef{Name: "attack", Min: 0, Max: 2},
		ParamDef{Name: "decay", Min: 0, Max: 3},
		ParamDef{Name: "sustain", Min: 0, Max: 1},
		ParamDef{Name: "release", Min: 0, Max: 5},
		ParamDef{Name: "cutoff", Min: 50, Max: 20000},
		ParamDef{Name: "q", Min: 0.3, Max: 8},
	)
	return l
}

// SubsetLayout keeps the named parameters of DefaultLayout in order.
func SubsetLayout(names ...string) (Layout, error) {
	all := DefaultLayout()
	out := make(Layout, 0, len(names))
	for _, n := range names {
		i := all.Index(n)
		if i < 0 {
			return nil, fmt.Errorf("unknown synth parameter %q", n)
		}
		if out.Index(n) >= 0 {
			return nil, fmt.Errorf("duplicate synth parameter %q", n)
		}
		out = append(out, all[i])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("layout has no parameters")
	}
	return out, nil
}

// Index returns the genome position of name or -1.
func (l Layout) Index(name string) int {
	for i, d := range l {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// Bounds converts the layout to GA gene bounds.
func (l Layout) Bounds() ga.Bounds {
	out := make(ga.Bounds, len(l))
	for i, d := range l {
		out[i] = ga.Bound{Name: d.Name, Min: d.Min, Max: d.Max, Integer: d.IsInt}
	}
	return out
}

// Decode applies genome g over base. Parameters missing from the layout keep
// their base value.
func (l Layout) Decode(g ga.Genome, base Voice) (Voice, error) {
	if len(g) != len(l) {
		return Voice{}, fmt.Errorf("genome has %d genes, layout has %d", len(g), len(l))
	}
	v := base
	for i, d := range l {
		if err := v.Set(d.Name, g[i]); err != nil {
			return Voice{}, err
		}
	}
	return v, nil
}

// Encode reads the layout's parameters from v.
func (l Layout) Encode(v Voice) (ga.Genome, error) {
	g := make(ga.Genome, len(l))
	for i, d := range l {
		x, err := v.Get(d.Name)
		if err != nil {
			return nil, err
		}
		g[i] = x
	}
	return g, nil
}
