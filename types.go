package customelements

import (
	"context"
	"iter"

	"github.com/agentflare-ai/go-xmldom"
)

// HTMLNamespaceURI is the namespace custom elements live in.
const HTMLNamespaceURI = "http://www.w3.org/1999/xhtml"

// CallbackName identifies a lifecycle callback read off a constructor's prototype.
type CallbackName string

const (
	ConnectedCallback        CallbackName = "connectedCallback"
	DisconnectedCallback     CallbackName = "disconnectedCallback"
	AdoptedCallback          CallbackName = "adoptedCallback"
	ConnectedMoveCallback    CallbackName = "connectedMoveCallback"
	AttributeChangedCallback CallbackName = "attributeChangedCallback"

	FormAssociatedCallback   CallbackName = "formAssociatedCallback"
	FormResetCallback        CallbackName = "formResetCallback"
	FormDisabledCallback     CallbackName = "formDisabledCallback"
	FormStateRestoreCallback CallbackName = "formStateRestoreCallback"
)

// LifecycleCallbacks lists the base callbacks in the order they are read.
var LifecycleCallbacks = []CallbackName{
	ConnectedCallback,
	DisconnectedCallback,
	AdoptedCallback,
	ConnectedMoveCallback,
	AttributeChangedCallback,
}

// FormCallbacks lists the callbacks read only for form-associated definitions.
var FormCallbacks = []CallbackName{
	FormAssociatedCallback,
	FormResetCallback,
	FormDisabledCallback,
	FormStateRestoreCallback,
}

// Property keys read off a constructor during definition.
const (
	PrototypeProperty          = "prototype"
	ObservedAttributesProperty = "observedAttributes"
	DisabledFeaturesProperty   = "disabledFeatures"
	FormAssociatedProperty     = "formAssociated"
)

// Object is a host value whose properties can be read. Get may run arbitrary host
// code, including code that calls back into the Registry. A nil value with a nil
// error means the property is absent.
type Object interface {
	Get(ctx context.Context, key string) (any, error)
}

// Constructor is a host constructor that can be registered under a name.
//
// Two constructors are the same when they compare equal as interface values, so
// implementations must have comparable dynamic types (typically pointers).
type Constructor interface {
	Object
	// Construct runs the constructor against an element being upgraded and returns
	// the constructed element, which must be the element it was given.
	Construct(ctx context.Context, element xmldom.Element) (xmldom.Element, error)
}

// Callback is a lifecycle callback invoked with the element as receiver.
type Callback interface {
	Invoke(ctx context.Context, this xmldom.Element, args ...any) error
}

// CallbackFunc adapts an ordinary function to Callback.
type CallbackFunc func(ctx context.Context, this xmldom.Element, args ...any) error

func (f CallbackFunc) Invoke(ctx context.Context, this xmldom.Element, args ...any) error {
	return f(ctx, this, args...)
}

// Iterable is a host value that yields a sequence of items.
type Iterable interface {
	All() iter.Seq2[any, error]
}

// Properties is a map-backed Object. Values that are themselves Objects, Callbacks
// or Iterables are returned as-is.
type Properties map[string]any

func (p Properties) Get(_ context.Context, key string) (any, error) {
	return p[key], nil
}

// ElementDefinitionOptions are the options accepted by Define.
type ElementDefinitionOptions struct {
	// Extends names the built-in element the definition customizes. Empty means an
	// autonomous custom element.
	Extends string
}

// TreeWalker enumerates elements of a document tree in shadow-including tree order.
type TreeWalker interface {
	// Descendants returns the shadow-including descendant elements of node.
	Descendants(node xmldom.Node) []xmldom.Element
	// InclusiveDescendants returns node (when it is an element) followed by its
	// shadow-including descendant elements.
	InclusiveDescendants(node xmldom.Node) []xmldom.Element
}

// DefinitionLookup resolves definitions for the upgrade machinery.
type DefinitionLookup interface {
	LookUp(namespace, localName, is string) *Definition
	FindByNameAndLocalName(name, localName string) *Definition
	FindByConstructor(ctor Constructor) *Definition
}

// Upgrader performs upgrades on behalf of the Registry.
type Upgrader interface {
	// EnqueueUpgrade schedules an upgrade of element with definition and returns
	// without waiting for it.
	EnqueueUpgrade(ctx context.Context, element xmldom.Element, definition *Definition)
	// TryUpgrade upgrades element if lookup yields a definition for it.
	TryUpgrade(ctx context.Context, lookup DefinitionLookup, element xmldom.Element)
}
