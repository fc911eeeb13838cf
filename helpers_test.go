package customelements

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/stretchr/testify/require"
)

// fakeConstructor serves properties from a map. The prototype is served from
// props[PrototypeProperty] unless get overrides the read.
type fakeConstructor struct {
	props Properties
	get   func(ctx context.Context, key string) (any, error)
}

func newConstructor(proto Properties) *fakeConstructor {
	return &fakeConstructor{props: Properties{PrototypeProperty: proto}}
}

func (c *fakeConstructor) Get(ctx context.Context, key string) (any, error) {
	if c.get != nil {
		return c.get(ctx, key)
	}
	return c.props[key], nil
}

func (c *fakeConstructor) Construct(_ context.Context, el xmldom.Element) (xmldom.Element, error) {
	return el, nil
}

// notConstructible is a callable host function that cannot be used with new.
type notConstructible struct{ fakeConstructor }

func (*notConstructible) IsConstructor() bool { return false }

// mapConstructor is not comparable and therefore has no identity.
type mapConstructor map[string]any

func (m mapConstructor) Get(_ context.Context, key string) (any, error) { return m[key], nil }

func (m mapConstructor) Construct(_ context.Context, el xmldom.Element) (xmldom.Element, error) {
	return el, nil
}

// valueConstructor has a comparable type, but its identity depends on what f holds.
type valueConstructor struct{ f any }

func (valueConstructor) Get(_ context.Context, key string) (any, error) {
	if key == PrototypeProperty {
		return Properties{}, nil
	}
	return nil, nil
}

func (valueConstructor) Construct(_ context.Context, el xmldom.Element) (xmldom.Element, error) {
	return el, nil
}

type seq []any

func (s seq) All() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for _, v := range s {
			if !yield(v, nil) {
				return
			}
		}
	}
}

type failingSeq struct{ err error }

func (s failingSeq) All() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if !yield("first", nil) {
			return
		}
		yield(nil, s.err)
	}
}

var noop = CallbackFunc(func(context.Context, xmldom.Element, ...any) error { return nil })

type upgradeCall struct {
	element    xmldom.Element
	definition *Definition
}

type recordingUpgrader struct {
	enqueued []upgradeCall
	tried    []xmldom.Element
	onTry    func(xmldom.Element)
}

func (u *recordingUpgrader) EnqueueUpgrade(_ context.Context, el xmldom.Element, def *Definition) {
	u.enqueued = append(u.enqueued, upgradeCall{element: el, definition: def})
}

func (u *recordingUpgrader) TryUpgrade(_ context.Context, _ DefinitionLookup, el xmldom.Element) {
	u.tried = append(u.tried, el)
	if u.onTry != nil {
		u.onTry(el)
	}
}

func parseDocument(t *testing.T, src string) xmldom.Document {
	t.Helper()
	doc, err := xmldom.NewDecoder(strings.NewReader(src)).Decode()
	require.NoError(t, err)
	return doc
}

func ids(els []xmldom.Element) []string {
	out := make([]string, len(els))
	for i, el := range els {
		out[i] = string(el.GetAttribute("id"))
	}
	return out
}
