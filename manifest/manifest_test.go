package manifest

import (
	"context"
	"errors"
	"strings"
	"testing"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-xmldom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cards = `
definitions:
  - name: user-card
    observedAttributes: [title, size]
    disabledFeatures: [shadow]
    callbacks: [connectedCallback, attributeChangedCallback]
  - name: fancy-button
    extends: button
    formAssociated: true
    callbacks: [formResetCallback]
`

func TestLoad(t *testing.T) {
	m, err := Load(strings.NewReader(cards))
	require.NoError(t, err)
	require.Len(t, m.Definitions, 2)

	assert.Equal(t, Entry{
		Name:               "user-card",
		ObservedAttributes: []string{"title", "size"},
		DisabledFeatures:   []string{"shadow"},
		Callbacks:          []string{"connectedCallback", "attributeChangedCallback"},
	}, m.Definitions[0])
	assert.Equal(t, "button", m.Definitions[1].Extends)
	assert.True(t, m.Definitions[1].FormAssociated)
}

func TestParse_JSON(t *testing.T) {
	m, err := Parse([]byte(`{"definitions":[{"name":"x-a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "x-a"}}, m.Definitions)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"no definitions", `other: 1`},
		{"missing name", "definitions:\n  - extends: button\n"},
		{"unknown callback", "definitions:\n  - name: x-a\n    callbacks: [renderCallback]\n"},
		{"wrong type", "definitions:\n  - name: x-a\n    formAssociated: yes please\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Messages)
		})
	}

	_, err := Parse([]byte("definitions: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest: decode")
}

func TestConstructor_Get(t *testing.T) {
	ctx := context.Background()
	m, err := Load(strings.NewReader(cards))
	require.NoError(t, err)

	ctor, err := NewConstructor(ctx, m.Definitions[0], nil)
	require.NoError(t, err)
	proto, err := ctor.Get(ctx, customelements.PrototypeProperty)
	require.NoError(t, err)
	assert.Len(t, proto, 2)

	attrs, err := ctor.Get(ctx, customelements.ObservedAttributesProperty)
	require.NoError(t, err)
	attrs.([]string)[0] = "changed"
	assert.Equal(t, "title", ctor.Entry().ObservedAttributes[0])

	v, err := ctor.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNewConstructor_BinderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewConstructor(context.Background(), Entry{Name: "x-a", Callbacks: []string{"connectedCallback"}},
		func(context.Context, Entry, customelements.CallbackName) (customelements.Callback, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "x-a.connectedCallback")
}

func TestDefineAll(t *testing.T) {
	ctx := context.Background()
	m, err := Load(strings.NewReader(cards))
	require.NoError(t, err)

	var bound []string
	binder := func(_ context.Context, e Entry, name customelements.CallbackName) (customelements.Callback, error) {
		bound = append(bound, e.Name+"."+string(name))
		return customelements.CallbackFunc(func(context.Context, xmldom.Element, ...any) error { return nil }), nil
	}

	reg := customelements.New(customelements.Config{})
	ctors, err := DefineAll(ctx, reg, m, binder)
	require.NoError(t, err)
	require.Len(t, ctors, 2)
	assert.Equal(t, []string{
		"user-card.connectedCallback",
		"user-card.attributeChangedCallback",
		"fancy-button.formResetCallback",
	}, bound)

	def := reg.FindByConstructor(ctors[0])
	require.NotNil(t, def)
	assert.Equal(t, []string{"title", "size"}, def.ObservedAttributes())
	assert.True(t, def.DisableShadow())
	assert.NotNil(t, def.Callback(customelements.ConnectedCallback))

	button := reg.FindByNameAndLocalName("fancy-button", "button")
	require.NotNil(t, button)
	assert.True(t, button.FormAssociated())
	assert.NotNil(t, button.Callback(customelements.FormResetCallback))
}

func TestDefineAll_StopsAtFirstFailure(t *testing.T) {
	m := &Manifest{Definitions: []Entry{{Name: "x-a"}, {Name: "x-a"}, {Name: "x-b"}}}
	reg := customelements.New(customelements.Config{})

	ctors, err := DefineAll(context.Background(), reg, m, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, customelements.ErrDuplicateName)
	assert.Len(t, ctors, 1)
	_, ok := reg.Get("x-b")
	assert.False(t, ok)
}
