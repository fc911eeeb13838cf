package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-xmldom"
)

// Binder supplies the implementation of a callback listed in a manifest entry.
type Binder func(ctx context.Context, entry Entry, name customelements.CallbackName) (customelements.Callback, error)

// LogBinder binds every callback to one that logs its invocation.
func LogBinder(logger *slog.Logger) Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, entry Entry, name customelements.CallbackName) (customelements.Callback, error) {
		return customelements.CallbackFunc(func(ctx context.Context, this xmldom.Element, args ...any) error {
			logger.InfoContext(ctx, "custom element callback",
				"definition", entry.Name,
				"element", string(this.LocalName()),
				"callback", string(name),
				"args", args)
			return nil
		}), nil
	}
}

// Constructor is a customelements.Constructor built from a manifest entry. It is
// used through its pointer, which gives it identity in a registry.
type Constructor struct {
	entry     Entry
	prototype customelements.Properties
}

var _ customelements.Constructor = (*Constructor)(nil)

// NewConstructor binds the entry's callbacks and returns its constructor.
func NewConstructor(ctx context.Context, entry Entry, binder Binder) (*Constructor, error) {
	if binder == nil {
		binder = LogBinder(nil)
	}
	proto := customelements.Properties{}
	for _, cb := range entry.Callbacks {
		name := customelements.CallbackName(cb)
		fn, err := binder(ctx, entry, name)
		if err != nil {
			return nil, fmt.Errorf("manifest: bind %s.%s: %w", entry.Name, cb, err)
		}
		proto[cb] = fn
	}
	return &Constructor{entry: entry, prototype: proto}, nil
}

// Entry returns the manifest entry the constructor was built from.
func (c *Constructor) Entry() Entry { return c.entry }

func (c *Constructor) Get(_ context.Context, key string) (any, error) {
	switch key {
	case customelements.PrototypeProperty:
		return c.prototype, nil
	case customelements.ObservedAttributesProperty:
		if c.entry.ObservedAttributes == nil {
			return nil, nil
		}
		return slices.Clone(c.entry.ObservedAttributes), nil
	case customelements.DisabledFeaturesProperty:
		if c.entry.DisabledFeatures == nil {
			return nil, nil
		}
		return slices.Clone(c.entry.DisabledFeatures), nil
	case customelements.FormAssociatedProperty:
		return c.entry.FormAssociated, nil
	}
	return nil, nil
}

// Construct accepts the element being upgraded as the constructed instance.
func (c *Constructor) Construct(_ context.Context, el xmldom.Element) (xmldom.Element, error) {
	return el, nil
}

// Definer is the part of customelements.Registry DefineAll needs.
type Definer interface {
	Define(ctx context.Context, name string, ctor customelements.Constructor, opts customelements.ElementDefinitionOptions) error
}

// DefineAll defines every entry of m in order and returns the constructors. It stops
// at the first failure; entries defined before it stay defined.
func DefineAll(ctx context.Context, reg Definer, m *Manifest, binder Binder) ([]*Constructor, error) {
	ctors := make([]*Constructor, 0, len(m.Definitions))
	for _, entry := range m.Definitions {
		ctor, err := NewConstructor(ctx, entry, binder)
		if err != nil {
			return ctors, err
		}
		opts := customelements.ElementDefinitionOptions{Extends: entry.Extends}
		if err := reg.Define(ctx, entry.Name, ctor, opts); err != nil {
			return ctors, fmt.Errorf("manifest: define %q: %w", entry.Name, err)
		}
		ctors = append(ctors, ctor)
	}
	return ctors, nil
}
