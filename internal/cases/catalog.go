package cases

import (
	"fmt"
	"sort"

	"github.com/pan-ssds/ptest/internal/ptest"
)

// Factory builds a fresh case instance.
type Factory func() ptest.Case

// Catalog maps case names to factories.
type Catalog struct {
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Default returns a catalog of the built-in cases.
func Default() *Catalog {
	c := NewCatalog()
	c.MustRegister(func() ptest.Case { return NewSpinMotors() })
	c.MustRegister(func() ptest.Case { return PiksiCheckout{} })
	c.MustRegister(func() ptest.Case { return NewDualSatLockstep() })
	return c
}

// Register adds a factory under the name of the case it builds.
func (c *Catalog) Register(f Factory) error {
	name := f().Name()
	if name == "" {
		return fmt.Errorf("case name is required")
	}
	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("case %q already registered", name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (c *Catalog) MustRegister(f Factory) {
	if err := c.Register(f); err != nil {
		panic(err)
	}
}

// Lookup builds the named case.
func (c *Catalog) Lookup(name string) (ptest.Case, bool) {
	f, ok := c.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names returns the registered case names, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.factories))
	for name := range c.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Info describes a registered case.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Satellites  string `json:"satellites"`
}

// Describe returns Info for every registered case, sorted by name.
func (c *Catalog) Describe() []Info {
	names := c.Names()
	out := make([]Info, len(names))
	for i, name := range names {
		out[i] = Describe(c.factories[name]())
	}
	return out
}

// Describe summarizes one case.
func Describe(cs ptest.Case) Info {
	info := Info{Name: cs.Name(), Satellites: "1"}
	if d, ok := cs.(ptest.Describer); ok {
		info.Description = d.Description()
	}
	if _, ok := cs.(ptest.MultiSatCase); ok {
		info.Satellites = "1+"
		if fc, ok := cs.(ptest.FixedCardinality); ok {
			info.Satellites = fmt.Sprint(fc.Satellites())
		}
	}
	return info
}
