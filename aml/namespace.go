// Package aml exposes a custom element registry to AgentML documents.
//
// Usage in AgentML:
//
//	<agentml xmlns:ce="github.com/agentflare-ai/go-customelements/aml">
//	  <ce:define name="user-card" constructor="UserCard" />
//	  <ce:whendefined name="user-card" event="card.ready" />
//	  <ce:get name="user-card" location="ctor" />
//	  <ce:upgrade />
//	</agentml>
package aml

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentflare-ai/agentml-go"
	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-customelements/reactions"
	"github.com/agentflare-ai/go-xmldom"
	"go.opentelemetry.io/otel"
)

// NamespaceURI is the XML namespace for custom element executable content.
const NamespaceURI = "github.com/agentflare-ai/go-customelements/aml"

// DefinedEvent is raised by <ce:whendefined> when no event attribute is given.
const DefinedEvent = "customelements.defined"

var tracer = otel.Tracer("github.com/agentflare-ai/go-customelements/aml")

// Namespace implements agentml.Namespace for custom element executable content.
type Namespace struct {
	itp      agentml.Interpreter
	doc      xmldom.Document
	registry *customelements.Registry
	queue    *reactions.Queue
	resolve  Resolver
	logger   *slog.Logger
}

var _ agentml.Namespace = (*Namespace)(nil)

func (n *Namespace) URI() string { return NamespaceURI }

func (n *Namespace) Unload(ctx context.Context) error { return nil }

// Handle executes custom element executables.
func (n *Namespace) Handle(ctx context.Context, el xmldom.Element) (bool, error) {
	if el == nil {
		return false, fmt.Errorf("aml: element cannot be nil")
	}

	switch strings.ToLower(string(el.LocalName())) {
	case "define":
		return true, n.define(ctx, el)
	case "get":
		return true, n.get(ctx, el)
	case "whendefined":
		return true, n.whenDefined(ctx, el)
	case "upgrade":
		return true, n.upgrade(ctx, el)
	default:
		return false, nil
	}
}

// Registry returns the registry backing the namespace.
func (n *Namespace) Registry() *customelements.Registry { return n.registry }

// Resolver turns the value of a constructor expression into a Constructor. The
// default accepts values that already implement customelements.Constructor.
type Resolver func(ctx context.Context, name string, value any) (customelements.Constructor, error)

// Deps wires external dependencies for the namespace.
type Deps struct {
	// Registry is shared with the host. When nil a registry scoped to the loaded
	// document is created.
	Registry *customelements.Registry
	// Queue runs upgrades and callbacks. It must be the Registry's Upgrader when
	// both are given.
	Queue *reactions.Queue
	// Namespace is the element namespace custom elements live in when a registry
	// is created. Defaults to customelements.HTMLNamespaceURI.
	Namespace string
	Resolver  Resolver
	Logger    *slog.Logger
}

// Loader returns a NamespaceLoader that initializes the custom elements namespace.
func Loader(maybeDeps ...Deps) agentml.NamespaceLoader {
	var deps Deps
	if len(maybeDeps) > 0 {
		deps = maybeDeps[0]
	}
	return func(ctx context.Context, itp agentml.Interpreter, doc xmldom.Document) (agentml.Namespace, error) {
		actual := deps
		if actual.Logger == nil {
			actual.Logger = slog.Default()
		}
		if actual.Queue == nil {
			actual.Queue = reactions.New(reactions.Options{Logger: actual.Logger})
		}
		if actual.Registry == nil {
			actual.Registry = customelements.New(customelements.Config{
				Document:  doc,
				Namespace: actual.Namespace,
				Upgrader:  actual.Queue,
				Logger:    actual.Logger,
			})
		}
		if actual.Resolver == nil {
			actual.Resolver = resolveConstructor
		}
		return &Namespace{
			itp:      itp,
			doc:      doc,
			registry: actual.Registry,
			queue:    actual.Queue,
			resolve:  actual.Resolver,
			logger:   actual.Logger,
		}, nil
	}
}

func resolveConstructor(_ context.Context, name string, value any) (customelements.Constructor, error) {
	ctor, ok := value.(customelements.Constructor)
	if !ok {
		return nil, fmt.Errorf("%w: constructor for %q is %T", customelements.ErrNotAConstructor, name, value)
	}
	return ctor, nil
}
