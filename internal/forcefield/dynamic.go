package forcefield

import (
	"github.com/vk/mdscript/internal/dag"
	"github.com/vk/mdscript/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// DerivationFunc computes one derived field from the effective record built
// so far. By the time it runs, every dependency it declared is present and
// fully computed. The function must be pure.
type DerivationFunc func(rec *record.Record) (cty.Value, error)

type derivation struct {
	name string
	deps []string
	fn   DerivationFunc
}

// Dynamic composes an ordered sequence of static definitions with a set of
// derived fields into one effective record. Composition order is precedence
// order: on a plain conflict a later definition wins, unless a different
// record precedence is selected with ComposePrecedence.
//
// Resolution is lazy and cached. The cache is keyed by a generation
// counter; Invalidate bumps the counter, forcing recomputation on the next
// Resolve. A Dynamic is not safe for concurrent use.
type Dynamic struct {
	defs        []*Definition
	derivations []derivation
	derivedIdx  map[string]int
	prec        record.Precedence

	cache     *record.Record
	gen       uint64
	cachedGen uint64
}

// ComposeOption configures a Dynamic at construction time.
type ComposeOption func(*Dynamic)

// ComposePrecedence overrides the default later-wins composition rule.
// record.PreferSelf makes earlier definitions win plain conflicts.
func ComposePrecedence(prec record.Precedence) ComposeOption {
	return func(d *Dynamic) { d.prec = prec }
}

// Compose builds a Dynamic from its constituent definitions. The
// definitions themselves are never mutated; composition produces new
// records.
func Compose(defs []*Definition, opts ...ComposeOption) *Dynamic {
	d := &Dynamic{
		defs:       defs,
		derivedIdx: make(map[string]int),
		prec:       record.PreferOther,
		gen:        1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddDerivation registers a derived field. deps names the fields (base or
// other derived) the function reads; they determine evaluation order.
// Registering the same derived name twice is an authoring mistake and fails
// with AmbiguousFieldError. Adding a derivation invalidates the cache.
func (d *Dynamic) AddDerivation(name string, deps []string, fn DerivationFunc) error {
	if _, dup := d.derivedIdx[name]; dup {
		return &AmbiguousFieldError{Field: name}
	}
	d.derivedIdx[name] = len(d.derivations)
	d.derivations = append(d.derivations, derivation{name: name, deps: deps, fn: fn})
	d.Invalidate()
	return nil
}

// Invalidate clears the resolution cache; the next Resolve recomputes.
func (d *Dynamic) Invalidate() {
	d.gen++
}

// Resolve computes the full effective record: the base composition of all
// definitions, then every derived field in topological order of the
// derivation dependency graph. Ties between independent derivations follow
// registration order, so results are deterministic.
//
// Errors: AmbiguousFieldError if a derived name collides with a base field,
// CycleError if the dependency graph is cyclic (no derivation is evaluated,
// there is no partially-derived state), DerivationError if a derivation
// function fails.
//
// Results are cached; repeated calls without Invalidate return equal
// records. The returned record is a copy, so callers cannot corrupt the
// cache.
func (d *Dynamic) Resolve() (*record.Record, error) {
	if d.cache != nil && d.cachedGen == d.gen {
		return d.cache.Copy(), nil
	}

	base := record.New()
	for _, def := range d.defs {
		base = base.Merge(def.Record(), d.prec)
	}

	order, err := d.derivationOrder(base)
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		der := d.derivations[d.derivedIdx[name]]
		v, err := der.fn(base)
		if err != nil {
			return nil, &DerivationError{Name: der.name, Err: err}
		}
		if err := base.Set(der.name, record.Val(v)); err != nil {
			return nil, &DerivationError{Name: der.name, Err: err}
		}
	}

	d.cache = base
	d.cachedGen = d.gen
	return d.cache.Copy(), nil
}

// derivationOrder validates derived names against the base record and
// returns the evaluation order. All graph checks happen before any
// derivation function runs.
func (d *Dynamic) derivationOrder(base *record.Record) ([]string, error) {
	for _, der := range d.derivations {
		if base.Has(der.name) {
			return nil, &AmbiguousFieldError{Field: der.name}
		}
	}

	g := dag.New()
	for _, der := range d.derivations {
		g.AddNode(der.name)
	}
	for _, der := range d.derivations {
		for _, dep := range der.deps {
			// Dependencies on base fields impose no ordering; only edges
			// between derivations matter.
			if !g.HasNode(dep) {
				continue
			}
			if err := g.AddEdge(dep, der.name); err != nil {
				return nil, &CycleError{Fields: []string{der.name}}
			}
		}
	}

	order, rem := g.Sort()
	if rem != nil {
		return nil, &CycleError{Fields: rem.Stuck}
	}
	return order, nil
}
