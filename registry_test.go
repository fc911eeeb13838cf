package customelements

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefine_GetAndGetName(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	c1 := newConstructor(Properties{})
	c2 := newConstructor(Properties{})

	require.NoError(t, r.Define(ctx, "x-one", c1, ElementDefinitionOptions{}))
	require.NoError(t, r.Define(ctx, "x-two", c2, ElementDefinitionOptions{}))

	got, ok := r.Get("x-one")
	require.True(t, ok)
	assert.Same(t, c1, got)
	got, ok = r.Get("x-two")
	require.True(t, ok)
	assert.Same(t, c2, got)

	n, ok := r.GetName(c1)
	assert.True(t, ok)
	assert.Equal(t, "x-one", n)
	n, ok = r.GetName(c2)
	assert.True(t, ok)
	assert.Equal(t, "x-two", n)

	_, ok = r.Get("x-three")
	assert.False(t, ok)
	_, ok = r.GetName(newConstructor(Properties{}))
	assert.False(t, ok)
	_, ok = r.GetName(nil)
	assert.False(t, ok)
	_, ok = r.GetName(mapConstructor{})
	assert.False(t, ok)
}

func TestDefine_DuplicateName(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	c := newConstructor(Properties{})
	require.NoError(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}))
	before := r.Definitions()

	err := r.Define(ctx, "x-foo", newConstructor(Properties{}), ElementDefinitionOptions{})
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Equal(t, "NotSupportedError", KindOf(err).Class())

	assert.Equal(t, before, r.Definitions())
	assert.False(t, r.Defining())
	got, _ := r.Get("x-foo")
	assert.Same(t, c, got)
}

func TestDefine_DuplicateConstructor(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	c := newConstructor(Properties{})
	require.NoError(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}))

	err := r.Define(ctx, "x-bar", c, ElementDefinitionOptions{})
	require.ErrorIs(t, err, ErrDuplicateConstructor)
	_, ok := r.Get("x-bar")
	assert.False(t, ok)
	assert.Len(t, r.Definitions(), 1)
}

func TestDefine_NotAConstructor(t *testing.T) {
	var typedNil *fakeConstructor
	tests := []struct {
		name string
		ctor Constructor
	}{
		{"nil", nil},
		{"typed nil", typedNil},
		{"callable but not constructible", &notConstructible{fakeConstructor{props: Properties{PrototypeProperty: Properties{}}}}},
		{"no identity", mapConstructor{PrototypeProperty: Properties{}}},
		{"value holding a map", valueConstructor{f: map[string]int{}}},
		{"value holding a func", valueConstructor{f: func() {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{})
			err := r.Define(context.Background(), "x-foo", tt.ctor, ElementDefinitionOptions{})
			require.ErrorIs(t, err, ErrNotAConstructor)
			assert.Equal(t, "TypeError", KindOf(err).Class())
			assert.Empty(t, r.Definitions())
		})
	}
}

func TestDefine_ValueConstructor(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	require.NoError(t, r.Define(ctx, "x-a", valueConstructor{f: 1}, ElementDefinitionOptions{}))

	assert.ErrorIs(t, r.Define(ctx, "x-b", valueConstructor{f: 1}, ElementDefinitionOptions{}), ErrDuplicateConstructor)
	assert.ErrorIs(t, r.Define(ctx, "x-c", valueConstructor{f: map[string]int{}}, ElementDefinitionOptions{}), ErrNotAConstructor)
	require.NoError(t, r.Define(ctx, "x-d", valueConstructor{f: 2}, ElementDefinitionOptions{}))

	name, ok := r.GetName(valueConstructor{f: 1})
	assert.True(t, ok)
	assert.Equal(t, "x-a", name)
	assert.NotPanics(t, func() {
		_, ok = r.GetName(valueConstructor{f: map[string]int{}})
	})
	assert.False(t, ok)
	assert.Nil(t, r.FindByConstructor(valueConstructor{f: []int{1}}))
}

func TestDefine_ConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	for range 50 {
		r := New(Config{})
		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = r.Define(ctx, "x-foo", newConstructor(Properties{}), ElementDefinitionOptions{})
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			switch KindOf(err) {
			case "":
				require.NoError(t, err)
				succeeded++
			case DuplicateName, ReentrantDefinition:
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Len(t, r.Definitions(), 1)
		assert.False(t, r.Defining())
	}
}

func TestDefine_CheckOrder(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	c := newConstructor(Properties{})
	require.NoError(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}))

	// Constructor check comes before the name check.
	assert.ErrorIs(t, r.Define(ctx, "Bad", nil, ElementDefinitionOptions{}), ErrNotAConstructor)
	// Name validity before duplicates.
	assert.ErrorIs(t, r.Define(ctx, "Bad", c, ElementDefinitionOptions{}), ErrInvalidName)
	// Duplicate name before duplicate constructor.
	assert.ErrorIs(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}), ErrDuplicateName)
	// Duplicate constructor before extends.
	assert.ErrorIs(t, r.Define(ctx, "x-bar", c, ElementDefinitionOptions{Extends: "blink"}), ErrDuplicateConstructor)
}

func TestDefine_InvalidName(t *testing.T) {
	r := New(Config{})
	err := r.Define(context.Background(), "Invalid_Name", newConstructor(Properties{}), ElementDefinitionOptions{})
	require.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, "SyntaxError", KindOf(err).Class())

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "Invalid_Name", e.Name)
}

func TestDefine_Extends(t *testing.T) {
	ctx := context.Background()

	t.Run("custom name cannot be extended", func(t *testing.T) {
		r := New(Config{})
		err := r.Define(ctx, "x-foo", newConstructor(Properties{}), ElementDefinitionOptions{Extends: "x-bar"})
		assert.ErrorIs(t, err, ErrInvalidExtends)
	})

	t.Run("unknown element", func(t *testing.T) {
		r := New(Config{})
		err := r.Define(ctx, "x-foo", newConstructor(Properties{}), ElementDefinitionOptions{Extends: "blink"})
		assert.ErrorIs(t, err, ErrUnknownBuiltinElement)
	})

	t.Run("built-in element", func(t *testing.T) {
		r := New(Config{})
		require.NoError(t, r.Define(ctx, "fancy-button", newConstructor(Properties{}), ElementDefinitionOptions{Extends: "button"}))
		def := r.FindByNameAndLocalName("fancy-button", "button")
		require.NotNil(t, def)
		assert.Equal(t, "button", def.LocalName())
		assert.False(t, def.IsAutonomous())
		assert.Nil(t, r.FindByNameAndLocalName("fancy-button", "fancy-button"))
	})
}

func TestDefine_ExtractionFailureReleasesGuard(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("prototype getter threw")

	r := New(Config{})
	c := &fakeConstructor{get: func(context.Context, string) (any, error) { return nil, boom }}
	err := r.Define(ctx, "x-foo", c, ElementDefinitionOptions{})
	require.Same(t, boom, err)
	assert.False(t, r.Defining())
	assert.Empty(t, r.Definitions())

	// The registry still accepts definitions afterwards.
	require.NoError(t, r.Define(ctx, "x-foo", newConstructor(Properties{}), ElementDefinitionOptions{}))
}

func TestDefine_PanicReleasesGuard(t *testing.T) {
	r := New(Config{})
	c := &fakeConstructor{get: func(context.Context, string) (any, error) { panic("host bug") }}

	assert.Panics(t, func() {
		_ = r.Define(context.Background(), "x-foo", c, ElementDefinitionOptions{})
	})
	assert.False(t, r.Defining())
	assert.Empty(t, r.Definitions())
}

func TestDefine_PrototypeNotObject(t *testing.T) {
	for _, proto := range []any{nil, "string", 42} {
		r := New(Config{})
		c := &fakeConstructor{props: Properties{PrototypeProperty: proto}}
		err := r.Define(context.Background(), "x-foo", c, ElementDefinitionOptions{})
		assert.ErrorIs(t, err, ErrPrototypeNotObject)
		assert.False(t, r.Defining())
	}
}

func TestDefine_Reentrant(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	inner := newConstructor(Properties{})
	var innerErr error

	outerProto := Properties{string(ConnectedCallback): noop}
	outer := &fakeConstructor{}
	outer.get = func(ctx context.Context, key string) (any, error) {
		if key == PrototypeProperty {
			innerErr = r.Define(ctx, "x-inner", inner, ElementDefinitionOptions{})
			return outerProto, nil
		}
		return nil, nil
	}

	require.NoError(t, r.Define(ctx, "x-outer", outer, ElementDefinitionOptions{}))
	require.ErrorIs(t, innerErr, ErrReentrantDefinition)

	_, ok := r.Get("x-inner")
	assert.False(t, ok)
	got, ok := r.Get("x-outer")
	require.True(t, ok)
	assert.Same(t, outer, got)
	assert.False(t, r.Defining())

	// A later, non-nested define of the inner constructor succeeds.
	require.NoError(t, r.Define(ctx, "x-inner", inner, ElementDefinitionOptions{}))
}

func TestDefine_LifecycleCallbacks(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	connected := CallbackFunc(func(context.Context, xmldom.Element, ...any) error { return nil })
	plainFunc := func(context.Context, xmldom.Element, ...any) error { return nil }

	c := newConstructor(Properties{
		string(ConnectedCallback):        connected,
		string(AttributeChangedCallback): plainFunc,
		string(FormResetCallback):        noop,
	})
	c.props[ObservedAttributesProperty] = []string{"title", "size", "title"}
	require.NoError(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}))

	def := r.FindByConstructor(c)
	require.NotNil(t, def)
	assert.Equal(t, LifecycleCallbacks, def.CallbackNames())
	assert.NotNil(t, def.Callback(ConnectedCallback))
	assert.NotNil(t, def.Callback(AttributeChangedCallback))
	assert.Nil(t, def.Callback(DisconnectedCallback))
	assert.True(t, def.HasCallbackSlot(DisconnectedCallback))
	// Form callbacks are only read for form-associated definitions.
	assert.False(t, def.HasCallbackSlot(FormResetCallback))
	assert.Equal(t, []string{"title", "size", "title"}, def.ObservedAttributes())
	assert.True(t, def.Observes("size"))
	assert.False(t, def.Observes("color"))
}

func TestDefine_ObservedAttributesNeedAttributeChangedCallback(t *testing.T) {
	c := newConstructor(Properties{})
	c.props[ObservedAttributesProperty] = 42 // never read
	r := New(Config{})
	require.NoError(t, r.Define(context.Background(), "x-foo", c, ElementDefinitionOptions{}))
	assert.Empty(t, r.FindByConstructor(c).ObservedAttributes())
}

func TestDefine_ConversionErrors(t *testing.T) {
	boom := errors.New("iterator threw")
	tests := []struct {
		name  string
		proto Properties
		props Properties
		want  error
	}{
		{
			name:  "callback not callable",
			proto: Properties{string(DisconnectedCallback): "nope"},
			want:  ErrCallbackNotCallable,
		},
		{
			name:  "observed attributes not iterable",
			proto: Properties{string(AttributeChangedCallback): noop},
			props: Properties{ObservedAttributesProperty: "title"},
			want:  ErrNotIterable,
		},
		{
			name:  "observed attribute not stringifiable",
			proto: Properties{string(AttributeChangedCallback): noop},
			props: Properties{ObservedAttributesProperty: []any{"title", struct{}{}}},
			want:  ErrConversionFailed,
		},
		{
			name:  "disabled features not iterable",
			props: Properties{DisabledFeaturesProperty: true},
			want:  ErrNotIterable,
		},
		{
			name:  "iteration error propagates",
			props: Properties{DisabledFeaturesProperty: failingSeq{err: boom}},
			want:  boom,
		},
		{
			name:  "form callback not callable",
			proto: Properties{string(FormDisabledCallback): 7},
			props: Properties{FormAssociatedProperty: true},
			want:  ErrCallbackNotCallable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConstructor(tt.proto)
			for k, v := range tt.props {
				c.props[k] = v
			}
			r := New(Config{})
			err := r.Define(context.Background(), "x-foo", c, ElementDefinitionOptions{})
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, r.Definitions())
			assert.False(t, r.Defining())
		})
	}
}

func TestDefine_FeaturesAndFormAssociation(t *testing.T) {
	c := newConstructor(Properties{
		string(FormAssociatedCallback):   noop,
		string(FormStateRestoreCallback): noop,
	})
	c.props[DisabledFeaturesProperty] = seq{"shadow", "internals", "other"}
	c.props[FormAssociatedProperty] = "yes"

	r := New(Config{})
	require.NoError(t, r.Define(context.Background(), "x-field", c, ElementDefinitionOptions{}))
	def := r.FindByConstructor(c)
	require.NotNil(t, def)
	assert.True(t, def.DisableShadow())
	assert.True(t, def.DisableInternals())
	assert.True(t, def.FormAssociated())
	assert.NotNil(t, def.Callback(FormAssociatedCallback))
	assert.NotNil(t, def.Callback(FormStateRestoreCallback))
	assert.False(t, def.HasCallbackSlot(FormResetCallback))
	assert.Equal(t,
		append(append([]CallbackName{}, LifecycleCallbacks...), FormAssociatedCallback, FormStateRestoreCallback),
		def.CallbackNames())
}

func TestWhenDefined(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})

	p1 := r.WhenDefined("x-foo")
	p2 := r.WhenDefined("x-foo")
	require.Same(t, p1, p2)
	assert.Equal(t, Pending, p1.State())
	assert.Equal(t, []string{"x-foo"}, r.Pending())

	var notified []Constructor
	p1.Then(func(c Constructor, err error) {
		assert.NoError(t, err)
		notified = append(notified, c)
	})

	c := newConstructor(Properties{})
	require.NoError(t, r.Define(ctx, "x-foo", c, ElementDefinitionOptions{}))

	// Fulfilled synchronously by Define.
	assert.Equal(t, Fulfilled, p1.State())
	require.Len(t, notified, 1)
	assert.Same(t, c, notified[0])
	got, err := p2.Wait(ctx)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Empty(t, r.Pending())

	p3 := r.WhenDefined("x-foo")
	assert.NotSame(t, p1, p3)
	got, err, ok := p3.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestWhenDefined_InvalidName(t *testing.T) {
	r := New(Config{})
	p := r.WhenDefined("Invalid_Name")

	assert.Equal(t, Rejected, p.State())
	_, err, ok := p.Result()
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, r.Pending())
}

func TestWhenDefined_FailedDefineKeepsPending(t *testing.T) {
	r := New(Config{})
	p := r.WhenDefined("x-foo")

	c := &fakeConstructor{props: Properties{PrototypeProperty: 1}}
	require.Error(t, r.Define(context.Background(), "x-foo", c, ElementDefinitionOptions{}))
	assert.Equal(t, Pending, p.State())
	assert.Same(t, p, r.WhenDefined("x-foo"))
}

const document = `<html xmlns="http://www.w3.org/1999/xhtml">
  <body>
    <user-card id="a"/>
    <div>
      <user-card id="b"><user-card id="c"/></user-card>
      <button id="d" is="fancy-button"/>
      <button id="e"/>
    </div>
    <other xmlns="urn:other"><user-card id="f"/></other>
  </body>
</html>`

func TestDefine_EnqueuesUpgradeCandidates(t *testing.T) {
	ctx := context.Background()
	doc := parseDocument(t, document)
	up := &recordingUpgrader{}
	r := New(Config{Document: doc, Upgrader: up})

	require.NoError(t, r.Define(ctx, "user-card", newConstructor(Properties{}), ElementDefinitionOptions{}))
	require.Len(t, up.enqueued, 3)
	var els []xmldom.Element
	for _, call := range up.enqueued {
		els = append(els, call.element)
		assert.Equal(t, "user-card", call.definition.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids(els))

	up.enqueued = nil
	require.NoError(t, r.Define(ctx, "fancy-button", newConstructor(Properties{}), ElementDefinitionOptions{Extends: "button"}))
	require.Len(t, up.enqueued, 1)
	assert.Equal(t, "d", string(up.enqueued[0].element.GetAttribute("id")))
}

func TestDefine_ExtensionPredicate(t *testing.T) {
	doc := parseDocument(t, document)
	up := &recordingUpgrader{}
	r := New(Config{
		Document: doc,
		Upgrader: up,
		IsValue:  func(el xmldom.Element) string { return "fancy-button" },
	})
	require.NoError(t, r.Define(context.Background(), "fancy-button", newConstructor(Properties{}), ElementDefinitionOptions{Extends: "button"}))
	assert.Len(t, up.enqueued, 2)
}

func TestUpgrade_SnapshotsCandidates(t *testing.T) {
	doc := parseDocument(t, `<html xmlns="http://www.w3.org/1999/xhtml"><body id="root"><x-a id="1"/><x-a id="2"/><x-a id="3"/></body></html>`)
	up := &recordingUpgrader{}
	r := New(Config{Document: doc, Upgrader: up})
	body := r.cfg.Walker.Descendants(doc.DocumentElement())[0]

	up.onTry = func(el xmldom.Element) {
		if string(el.GetAttribute("id")) == "1" {
			// Removing a later candidate must not shorten the walk.
			for _, other := range r.cfg.Walker.Descendants(body) {
				if string(other.GetAttribute("id")) == "3" {
					other.Remove()
				}
			}
		}
	}

	r.Upgrade(context.Background(), body)
	assert.Equal(t, []string{"root", "1", "2", "3"}, ids(up.tried))
	assert.Len(t, r.cfg.Walker.Descendants(body), 2)

	up.tried = nil
	r.Upgrade(context.Background(), nil)
	assert.Empty(t, up.tried)
}

func TestLookUp(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})
	card := newConstructor(Properties{})
	button := newConstructor(Properties{})
	require.NoError(t, r.Define(ctx, "user-card", card, ElementDefinitionOptions{}))
	require.NoError(t, r.Define(ctx, "fancy-button", button, ElementDefinitionOptions{Extends: "button"}))

	assert.Same(t, card, r.LookUp(HTMLNamespaceURI, "user-card", "").Constructor())
	assert.Same(t, card, r.LookUp(HTMLNamespaceURI, "user-card", "fancy-button").Constructor())
	assert.Same(t, button, r.LookUp(HTMLNamespaceURI, "button", "fancy-button").Constructor())
	assert.Nil(t, r.LookUp(HTMLNamespaceURI, "button", ""))
	assert.Nil(t, r.LookUp(HTMLNamespaceURI, "div", "fancy-button"))
	assert.Nil(t, r.LookUp("urn:other", "user-card", ""))

	assert.Same(t, button, r.FindByConstructor(button).Constructor())
	assert.Nil(t, r.FindByConstructor(newConstructor(Properties{})))
}

func TestEndToEnd_UserCard(t *testing.T) {
	ctx := context.Background()
	r := New(Config{})

	c := newConstructor(Properties{string(AttributeChangedCallback): noop})
	c.props[ObservedAttributesProperty] = seq{"title", "size"}
	c.props[FormAssociatedProperty] = false

	require.NoError(t, r.Define(ctx, "user-card", c, ElementDefinitionOptions{}))

	got, ok := r.Get("user-card")
	require.True(t, ok)
	assert.Same(t, c, got)
	n, ok := r.GetName(got)
	require.True(t, ok)
	assert.Equal(t, "user-card", n)

	def := r.FindByConstructor(c)
	assert.Equal(t, []string{"title", "size"}, def.ObservedAttributes())
	assert.False(t, def.FormAssociated())
	assert.Equal(t, "user-card", def.LocalName())
}
