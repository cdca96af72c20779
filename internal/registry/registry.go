// Package registry maps descriptor and decider names to constructors so
// tuning files and command-line tools can instantiate them from parameter
// bags.
package registry

import (
	"lcsweep/adapters/deciders"
	"lcsweep/adapters/descriptors"
	"lcsweep/domain/star"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Params is a named parameter bag, as parsed from a tuning file or built
// programmatically.
type Params map[string]interface{}

// Merge returns a copy of p overlaid with every entry of other.
func (p Params) Merge(other Params) Params {
	out := make(Params, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Float reads a numeric parameter.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int reads an integer parameter; float values with no fraction qualify.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Bool reads a boolean parameter.
func (p Params) Bool(key string) (bool, bool) {
	v, ok := p[key].(bool)
	return v, ok
}

// String reads a string parameter.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

// Stars reads a star-list parameter, as injected through static params.
func (p Params) Stars(key string) ([]*star.Star, bool) {
	v, ok := p[key].([]*star.Star)
	return v, ok
}

// StringPairs reads a list of two-element string tuples.
func (p Params) StringPairs(key string) ([][2]string, bool) {
	switch v := p[key].(type) {
	case [][2]string:
		return v, true
	case []interface{}:
		out := make([][2]string, 0, len(v))
		for _, item := range v {
			pair, ok := item.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, false
			}
			a, okA := pair[0].(string)
			b, okB := pair[1].(string)
			if !okA || !okB {
				return nil, false
			}
			out = append(out, [2]string{a, b})
		}
		return out, true
	}
	return nil, false
}

// Strings reads a string-list parameter.
func (p Params) Strings(key string) ([]string, bool) {
	switch v := p[key].(type) {
	case []string:
		return v, true
	case string:
		return []string{v}, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func missing(class, param string) error {
	return errors.QueryInputf("cannot construct %s: missing or invalid parameter %q", class, param)
}

// DescriptorFactory builds a descriptor from a parameter bag.
type DescriptorFactory func(p Params) (ports.Descriptor, error)

// DeciderFactory builds a decider from a parameter bag.
type DeciderFactory func(p Params) (ports.Decider, error)

var descriptorFactories = map[string]DescriptorFactory{}
var deciderFactories = map[string]DeciderFactory{}

// RegisterDescriptor adds a descriptor constructor under its class name.
func RegisterDescriptor(name string, f DescriptorFactory) {
	descriptorFactories[name] = f
}

// RegisterDecider adds a decider constructor under its class name.
func RegisterDecider(name string, f DeciderFactory) {
	deciderFactories[name] = f
}

// NewDescriptor instantiates a registered descriptor by class name.
func NewDescriptor(name string, p Params) (ports.Descriptor, error) {
	f, ok := descriptorFactories[name]
	if !ok {
		return nil, errors.QueryInputf("unknown descriptor %q", name)
	}
	return f(p)
}

// NewDecider instantiates a registered decider by class name.
func NewDecider(name string, p Params) (ports.Decider, error) {
	f, ok := deciderFactories[name]
	if !ok {
		return nil, errors.QueryInputf("unknown decider %q", name)
	}
	return f(p)
}

// HasDescriptor reports whether a descriptor is registered under name.
func HasDescriptor(name string) bool {
	_, ok := descriptorFactories[name]
	return ok
}

// HasDecider reports whether a decider is registered under name.
func HasDecider(name string) bool {
	_, ok := deciderFactories[name]
	return ok
}

// DescriptorNames lists the registered descriptor class names.
func DescriptorNames() []string {
	out := make([]string, 0, len(descriptorFactories))
	for name := range descriptorFactories {
		out = append(out, name)
	}
	return out
}

// DeciderNames lists the registered decider class names.
func DeciderNames() []string {
	out := make([]string, 0, len(deciderFactories))
	for name := range deciderFactories {
		out = append(out, name)
	}
	return out
}

// comparativeClasses name the descriptors built around comparison stars;
// their "comp_stars" parameter cannot come from a tuning file and must be
// injected by the caller before construction.
var comparativeClasses = map[string]struct{}{
	"CurvesShapeDescr":    {},
	"HistShapeDescr":      {},
	"VariogramShapeDescr": {},
}

// NeedsTemplates reports whether the class requires comparison stars.
func NeedsTemplates(name string) bool {
	_, ok := comparativeClasses[name]
	return ok
}

func comparativeArgs(class string, p Params) ([]*star.Star, int, bool, float64, string, error) {
	compStars, ok := p.Stars("comp_stars")
	if !ok {
		return nil, 0, false, 0, "", missing(class, "comp_stars")
	}
	alphabet, ok := p.Int("alphabet_size")
	if !ok {
		return nil, 0, false, 0, "", missing(class, "alphabet_size")
	}
	slide, _ := p.Bool("slide")
	overlay, hasOverlay := p.Float("slide")
	if hasOverlay && overlay > 0 && overlay < 1 {
		slide = true
	} else {
		overlay = 0
	}
	method, _ := p.String("meth")
	return compStars, alphabet, slide, overlay, method, nil
}

func init() {
	RegisterDescriptor("AbbeValueDescr", func(p Params) (ports.Descriptor, error) {
		bins, _ := p.Int("bins")
		return &descriptors.AbbeValue{Bins: bins}, nil
	})
	RegisterDescriptor("SkewnessDescr", func(p Params) (ports.Descriptor, error) {
		bins, _ := p.Int("bins")
		abs, _ := p.Bool("absolute")
		return &descriptors.Skewness{Bins: bins, Absolute: abs}, nil
	})
	RegisterDescriptor("KurtosisDescr", func(p Params) (ports.Descriptor, error) {
		bins, _ := p.Int("bins")
		abs, _ := p.Bool("absolute")
		return &descriptors.Kurtosis{Bins: bins, Absolute: abs}, nil
	})
	RegisterDescriptor("VariogramSlopeDescr", func(p Params) (ports.Descriptor, error) {
		rate, ok := p.Float("days_per_bin")
		if !ok {
			return nil, missing("VariogramSlopeDescr", "days_per_bin")
		}
		abs, _ := p.Bool("absolute")
		return &descriptors.VariogramSlope{DaysPerBin: rate, Absolute: abs}, nil
	})
	RegisterDescriptor("ColorIndexDescr", func(p Params) (ports.Descriptor, error) {
		colors, ok := p.StringPairs("colors")
		if !ok {
			return nil, missing("ColorIndexDescr", "colors")
		}
		pass, _ := p.Bool("pass_not_found")
		return &descriptors.ColorIndex{Colors: colors, PassNotFound: pass}, nil
	})
	RegisterDescriptor("PositionDescr", func(p Params) (ports.Descriptor, error) {
		return &descriptors.Position{}, nil
	})
	RegisterDescriptor("PropertyDescr", func(p Params) (ports.Descriptor, error) {
		attrs, ok := p.Strings("attribute_names")
		if !ok {
			return nil, missing("PropertyDescr", "attribute_names")
		}
		return &descriptors.Property{Attributes: attrs}, nil
	})
	RegisterDescriptor("CurveDescr", func(p Params) (ports.Descriptor, error) {
		bins, ok := p.Int("bins")
		if !ok {
			return nil, missing("CurveDescr", "bins")
		}
		height, _ := p.Float("height")
		return &descriptors.Curve{Bins: bins, Height: height}, nil
	})
	RegisterDescriptor("CurvesShapeDescr", func(p Params) (ports.Descriptor, error) {
		compStars, alphabet, slide, overlay, method, err := comparativeArgs("CurvesShapeDescr", p)
		if err != nil {
			return nil, err
		}
		rate, ok := p.Float("days_per_bin")
		if !ok {
			return nil, missing("CurvesShapeDescr", "days_per_bin")
		}
		return descriptors.NewCurvesShape(compStars, rate, alphabet, slide, overlay, method)
	})
	RegisterDescriptor("HistShapeDescr", func(p Params) (ports.Descriptor, error) {
		compStars, alphabet, slide, overlay, method, err := comparativeArgs("HistShapeDescr", p)
		if err != nil {
			return nil, err
		}
		bins, ok := p.Int("bins")
		if !ok {
			return nil, missing("HistShapeDescr", "bins")
		}
		return descriptors.NewHistShape(compStars, bins, alphabet, slide, overlay, method)
	})
	RegisterDescriptor("VariogramShapeDescr", func(p Params) (ports.Descriptor, error) {
		compStars, alphabet, slide, overlay, method, err := comparativeArgs("VariogramShapeDescr", p)
		if err != nil {
			return nil, err
		}
		bins, ok := p.Int("bins")
		if !ok {
			return nil, missing("VariogramShapeDescr", "bins")
		}
		return descriptors.NewVariogramShape(compStars, bins, alphabet, slide, overlay, method)
	})

	RegisterDecider("LDADec", func(p Params) (ports.Decider, error) {
		thresh, _ := p.Float("treshold")
		return &deciders.LDA{Thresh: thresh}, nil
	})
	RegisterDecider("QDADec", func(p Params) (ports.Decider, error) {
		thresh, _ := p.Float("treshold")
		return &deciders.QDA{Thresh: thresh}, nil
	})
	RegisterDecider("GaussianNBDec", func(p Params) (ports.Decider, error) {
		thresh, _ := p.Float("treshold")
		return &deciders.GaussianNB{Thresh: thresh}, nil
	})
	RegisterDecider("TreeDec", func(p Params) (ports.Decider, error) {
		thresh, _ := p.Float("treshold")
		depth, _ := p.Int("max_depth")
		return &deciders.Tree{Thresh: thresh, MaxDepth: depth}, nil
	})
	RegisterDecider("NeuronDecider", func(p Params) (ports.Decider, error) {
		thresh, _ := p.Float("treshold")
		hidden, _ := p.Int("hidden_neurons")
		epochs, _ := p.Int("max_epochs")
		return &deciders.Neuron{Thresh: thresh, HiddenNeurons: hidden, MaxEpochs: epochs}, nil
	})
	RegisterDecider("CustomDecider", func(p Params) (ports.Decider, error) {
		boxes, ok := p["boundaries"].([]deciders.Box)
		if !ok {
			return nil, missing("CustomDecider", "boundaries")
		}
		thresh, _ := p.Float("treshold")
		return &deciders.Custom{Thresh: thresh, Boxes: boxes}, nil
	})
}
