package customelements

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/agentflare-ai/go-customelements/builtin"
	"github.com/agentflare-ai/go-customelements/dom"
	"github.com/agentflare-ai/go-customelements/name"
	"github.com/agentflare-ai/go-xmldom"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("customelements")

// Config controls how a Registry validates names and reaches the document.
type Config struct {
	// Document is the document scanned for upgrade candidates when a definition is
	// added. A nil Document disables the scan.
	Document xmldom.Document

	// Namespace is the namespace upgrade candidates must be in. Defaults to
	// HTMLNamespaceURI.
	Namespace string

	// Walker enumerates candidate elements. Defaults to dom.NewWalker(nil).
	Walker TreeWalker

	// Upgrader receives upgrade work. If nil, upgrades are dropped.
	Upgrader Upgrader

	// ValidName reports whether a string is a valid custom element name.
	// Defaults to name.IsValid.
	ValidName func(string) bool

	// KnownElement reports whether a tag names a built-in element. Defaults to
	// builtin.IsKnown.
	KnownElement func(string) bool

	// IsValue returns the is value of an element. Defaults to dom.IsValue.
	IsValue func(xmldom.Element) string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Registry holds the custom element definitions of one document scope.
//
// Operations run to completion on the caller's goroutine. The mutex protects the
// tables between steps but is never held while host code runs, so host code may
// call back into the Registry; a nested Define is rejected with
// ReentrantDefinition.
type Registry struct {
	cfg Config

	mu          sync.Mutex
	definitions []*Definition
	defining    bool
	pending     map[string]*Promise
}

// New creates a Registry, filling unset Config fields with defaults.
func New(cfg Config) *Registry {
	if cfg.Namespace == "" {
		cfg.Namespace = HTMLNamespaceURI
	}
	if cfg.Walker == nil {
		cfg.Walker = dom.NewWalker(nil)
	}
	if cfg.Upgrader == nil {
		cfg.Upgrader = nopUpgrader{}
	}
	if cfg.ValidName == nil {
		cfg.ValidName = name.IsValid
	}
	if cfg.KnownElement == nil {
		cfg.KnownElement = builtin.IsKnown
	}
	if cfg.IsValue == nil {
		cfg.IsValue = dom.IsValue
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		pending: make(map[string]*Promise),
	}
}

// Define registers ctor under elementName.
//
// Checks run in a fixed order and the first failure is returned with the registry
// unchanged. Reading the definition off ctor may run host code; errors from that
// code are returned as-is. Upgrades of matching elements already in the document
// are handed to the Upgrader and not awaited. A pending WhenDefined promise for
// elementName is fulfilled before Define returns.
func (r *Registry) Define(ctx context.Context, elementName string, ctor Constructor, opts ElementDefinitionOptions) (err error) {
	ctx, span := tracer.Start(ctx, "customelements.define",
		trace.WithAttributes(
			attribute.String("customelements.name", elementName),
			attribute.String("customelements.extends", opts.Extends),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.cfg.Logger.DebugContext(ctx, "custom element definition rejected",
				"name", elementName,
				"kind", KindOf(err),
				"error", err)
		}
	}()

	localName, err := r.beginDefinition(elementName, ctor, opts)
	if err != nil {
		return err
	}
	var def *Definition
	defer func() {
		if def == nil {
			r.endDefinition(nil)
		}
	}()
	x, err := extractDefinition(ctx, ctor)
	if err != nil {
		return err
	}

	def = &Definition{
		name:               elementName,
		localName:          localName,
		constructor:        ctor,
		observedAttributes: x.observedAttributes,
		callbacks:          x.callbacks,
		formAssociated:     x.formAssociated,
		disableInternals:   x.disableInternals,
		disableShadow:      x.disableShadow,
	}

	promise := r.endDefinition(def)

	candidates := r.upgradeCandidates(def, opts.Extends != "")
	for _, el := range candidates {
		r.cfg.Upgrader.EnqueueUpgrade(ctx, el, def)
	}
	span.SetAttributes(attribute.Int("customelements.upgrade_candidates", len(candidates)))

	if promise != nil {
		promise.resolve(ctor)
	}

	r.cfg.Logger.DebugContext(ctx, "custom element defined",
		"name", elementName,
		"local_name", localName,
		"form_associated", def.formAssociated,
		"upgrade_candidates", len(candidates))
	return nil
}

// beginDefinition runs the checks that precede extraction and marks a definition as
// running. Every successful call must be paired with endDefinition.
func (r *Registry) beginDefinition(elementName string, ctor Constructor, opts ElementDefinitionOptions) (string, error) {
	if !isConstructor(ctor) {
		return "", newError(NotAConstructor, elementName, "%s is not a constructor", describe(ctor))
	}
	if !r.cfg.ValidName(elementName) {
		return "", newError(InvalidName, elementName, "'%s' is not a valid custom element name", elementName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByName(elementName) != nil {
		return "", newError(DuplicateName, elementName, "a custom element with name '%s' is already defined", elementName)
	}
	if r.findByConstructor(ctor) != nil {
		return "", newError(DuplicateConstructor, elementName, "the given constructor is already in use by another custom element")
	}

	localName := elementName
	if opts.Extends != "" {
		if r.cfg.ValidName(opts.Extends) {
			return "", newError(InvalidExtends, opts.Extends, "'%s' is a custom element name, only non-custom elements can be extended", opts.Extends)
		}
		if !r.cfg.KnownElement(opts.Extends) {
			return "", newError(UnknownBuiltinElement, opts.Extends, "'%s' is an unknown HTML element", opts.Extends)
		}
		localName = opts.Extends
	}

	if r.defining {
		return "", newError(ReentrantDefinition, elementName, "cannot recursively define custom elements")
	}
	r.defining = true
	return localName, nil
}

// endDefinition clears the running flag and, when def is non-nil, appends it and
// takes the pending promise for its name, all under one lock so no other Define
// can observe the flag cleared before def is visible.
func (r *Registry) endDefinition(def *Definition) *Promise {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defining = false
	if def == nil {
		return nil
	}
	r.definitions = append(r.definitions, def)
	promise := r.pending[def.name]
	delete(r.pending, def.name)
	return promise
}

func (r *Registry) upgradeCandidates(def *Definition, extends bool) []xmldom.Element {
	if r.cfg.Document == nil {
		return nil
	}
	root := r.cfg.Document.DocumentElement()
	if root == nil {
		return nil
	}
	var candidates []xmldom.Element
	for _, el := range r.cfg.Walker.InclusiveDescendants(root) {
		if string(el.NamespaceURI()) != r.cfg.Namespace || string(el.LocalName()) != def.localName {
			continue
		}
		if extends && r.cfg.IsValue(el) != def.name {
			continue
		}
		candidates = append(candidates, el)
	}
	return candidates
}

// Get returns the constructor registered under elementName.
func (r *Registry) Get(elementName string) (Constructor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def := r.findByName(elementName); def != nil {
		return def.constructor, true
	}
	return nil, false
}

// GetName returns the name ctor is registered under.
func (r *Registry) GetName(ctor Constructor) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def := r.findByConstructor(ctor); def != nil {
		return def.name, true
	}
	return "", false
}

// WhenDefined returns a promise fulfilled with the constructor registered under
// elementName. Invalid names yield an already rejected promise. Callers asking for
// the same undefined name share one promise.
func (r *Registry) WhenDefined(elementName string) *Promise {
	if !r.cfg.ValidName(elementName) {
		return rejectedPromise(newError(InvalidName, elementName, "'%s' is not a valid custom element name", elementName))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if def := r.findByName(elementName); def != nil {
		return resolvedPromise(def.constructor)
	}
	if p, ok := r.pending[elementName]; ok {
		return p
	}
	p := newPromise()
	r.pending[elementName] = p
	return p
}

// Upgrade tries to upgrade root and its shadow-including descendant elements, in
// tree order. The candidate list is taken before the first upgrade runs, so
// upgrades that change the tree do not affect which elements are visited.
func (r *Registry) Upgrade(ctx context.Context, root xmldom.Node) {
	ctx, span := tracer.Start(ctx, "customelements.upgrade")
	defer span.End()
	if root == nil {
		return
	}

	candidates := r.cfg.Walker.InclusiveDescendants(root)
	span.SetAttributes(attribute.Int("customelements.candidates", len(candidates)))
	for _, el := range candidates {
		r.cfg.Upgrader.TryUpgrade(ctx, r, el)
	}
}

// LookUp finds the definition that applies to an element with the given namespace,
// local name and is value.
func (r *Registry) LookUp(namespace, localName, is string) *Definition {
	if namespace != r.cfg.Namespace {
		return nil
	}
	if def := r.FindByNameAndLocalName(localName, localName); def != nil {
		return def
	}
	if is != "" {
		return r.FindByNameAndLocalName(is, localName)
	}
	return nil
}

// FindByNameAndLocalName returns the first definition with the given name and local
// name.
func (r *Registry) FindByNameAndLocalName(elementName, localName string) *Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, def := range r.definitions {
		if def.name == elementName && def.localName == localName {
			return def
		}
	}
	return nil
}

// FindByConstructor returns the first definition registered with ctor.
func (r *Registry) FindByConstructor(ctor Constructor) *Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByConstructor(ctor)
}

// Definitions returns the definitions in the order they were added.
func (r *Registry) Definitions() []*Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.definitions)
}

// Pending returns the names that have an unsettled WhenDefined promise.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.pending))
	for n := range r.pending {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Defining reports whether a Define call is reading a constructor.
func (r *Registry) Defining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defining
}

func (r *Registry) findByName(elementName string) *Definition {
	for _, def := range r.definitions {
		if def.name == elementName {
			return def
		}
	}
	return nil
}

func (r *Registry) findByConstructor(ctor Constructor) *Definition {
	if !isComparable(ctor) {
		return nil
	}
	for _, def := range r.definitions {
		if def.constructor == ctor {
			return def
		}
	}
	return nil
}

func isConstructor(ctor Constructor) bool {
	if !isComparable(ctor) {
		return false
	}
	if c, ok := ctor.(interface{ IsConstructor() bool }); ok {
		return c.IsConstructor()
	}
	return true
}

func isComparable(ctor Constructor) bool {
	if ctor == nil {
		return false
	}
	v := reflect.ValueOf(ctor)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return false
	}
	// Value.Comparable looks inside interface fields, unlike Type.Comparable.
	return v.Comparable()
}

var _ DefinitionLookup = (*Registry)(nil)

type nopUpgrader struct{}

func (nopUpgrader) EnqueueUpgrade(context.Context, xmldom.Element, *Definition) {}

func (nopUpgrader) TryUpgrade(context.Context, DefinitionLookup, xmldom.Element) {}
