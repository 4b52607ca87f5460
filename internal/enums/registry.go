package enums

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed tables.cue
var tablesCUE []byte

// Domain names declared in tables.cue.
const (
	MissionStates = "mission_states"
	ADCSStates    = "adcs_states"
	RWAModes      = "rwa_modes"
	PiksiModes    = "piksi_modes"
)

// UnknownEnumerantError is returned when a name or ordinal is absent from a
// domain's table, or the domain itself does not exist.
type UnknownEnumerantError struct {
	Domain string
	Name   string // set for name lookups
	Num    int64  // set for ordinal lookups
	ByNum  bool
}

// Error implements the error interface.
func (e *UnknownEnumerantError) Error() string {
	if e.ByNum {
		return fmt.Sprintf("unknown enumerant: ordinal %d not in domain %q", e.Num, e.Domain)
	}
	if e.Name == "" {
		return fmt.Sprintf("unknown enumerant: no domain %q", e.Domain)
	}
	return fmt.Sprintf("unknown enumerant: %q not in domain %q", e.Name, e.Domain)
}

// IsUnknownEnumerant reports whether err is or wraps an UnknownEnumerantError.
func IsUnknownEnumerant(err error) bool {
	var ue *UnknownEnumerantError
	return errors.As(err, &ue)
}

// Table is one immutable name <-> ordinal mapping.
type Table struct {
	domain string
	names  []string
	byName map[string]int64
}

func newTable(domain string, names []string) (*Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("domain %q: table is empty", domain)
	}
	t := &Table{
		domain: domain,
		names:  make([]string, len(names)),
		byName: make(map[string]int64, len(names)),
	}
	copy(t.names, names)
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("domain %q: empty name at ordinal %d", domain, i)
		}
		if prev, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("domain %q: %q declared at ordinals %d and %d", domain, name, prev, i)
		}
		t.byName[name] = int64(i)
	}
	return t, nil
}

// Domain returns the table's domain name.
func (t *Table) Domain() string { return t.domain }

// Len returns the number of enumerants.
func (t *Table) Len() int { return len(t.names) }

// Names returns the enumerant names in ordinal order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// GetByName returns the ordinal for name.
func (t *Table) GetByName(name string) (int64, error) {
	n, ok := t.byName[name]
	if !ok {
		return 0, &UnknownEnumerantError{Domain: t.domain, Name: name}
	}
	return n, nil
}

// GetByNum returns the name for ordinal n.
func (t *Table) GetByNum(n int64) (string, error) {
	if n < 0 || n >= int64(len(t.names)) {
		return "", &UnknownEnumerantError{Domain: t.domain, Num: n, ByNum: true}
	}
	return t.names[n], nil
}

// Registry holds one Table per domain.
type Registry struct {
	tables map[string]*Table
}

// Load compiles CUE source declaring a `domains` struct of string lists
// and builds a Registry from it.
func Load(src []byte) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("tables.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile enum tables: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate enum tables: %w", err)
	}

	domainsVal := v.LookupPath(cue.ParsePath("domains"))
	if !domainsVal.Exists() {
		return nil, fmt.Errorf("enum tables: domains is required")
	}

	iter, err := domainsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("enum tables: iterating domains: %w", err)
	}

	reg := &Registry{tables: make(map[string]*Table)}
	for iter.Next() {
		domain := iter.Label()

		list, err := iter.Value().List()
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", domain, err)
		}
		var names []string
		for list.Next() {
			name, err := list.Value().String()
			if err != nil {
				return nil, fmt.Errorf("domain %q: %w", domain, err)
			}
			names = append(names, name)
		}

		table, err := newTable(domain, names)
		if err != nil {
			return nil, err
		}
		reg.tables[domain] = table
	}

	if len(reg.tables) == 0 {
		return nil, fmt.Errorf("enum tables: no domains declared")
	}
	return reg, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg, err := Load(tablesCUE)
	if err != nil {
		panic(fmt.Sprintf("enums: embedded tables are invalid: %v", err))
	}
	return reg
})

// Default returns the process-wide registry built from the embedded tables.
// It is constructed on first use and lives for the rest of the process.
func Default() *Registry {
	return defaultRegistry()
}

// Table returns the table for a domain.
func (r *Registry) Table(domain string) (*Table, error) {
	t, ok := r.tables[domain]
	if !ok {
		return nil, &UnknownEnumerantError{Domain: domain}
	}
	return t, nil
}

// Domains returns the registered domain names in sorted order.
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.tables))
	for d := range r.tables {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// GetByName returns the ordinal of name within domain.
func (r *Registry) GetByName(domain, name string) (int64, error) {
	t, err := r.Table(domain)
	if err != nil {
		return 0, err
	}
	return t.GetByName(name)
}

// GetByNum returns the name of ordinal n within domain.
func (r *Registry) GetByNum(domain string, n int64) (string, error) {
	t, err := r.Table(domain)
	if err != nil {
		return "", err
	}
	return t.GetByNum(n)
}

// MustGetByName is GetByName for tables known at compile time. It panics
// on a miss.
func (r *Registry) MustGetByName(domain, name string) int64 {
	n, err := r.GetByName(domain, name)
	if err != nil {
		panic(err)
	}
	return n
}
