package reactions

import (
	"context"
	"fmt"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-xmldom"
)

// upgrade runs the upgrade reaction for el. It reports whether el became custom.
func (q *Queue) upgrade(ctx context.Context, el xmldom.Element, def *customelements.Definition) (bool, error) {
	q.mu.Lock()
	rec := q.record(el)
	rec.definition = def
	rec.state = Failed
	q.mu.Unlock()

	q.enqueueAttributeChanges(el, def)
	if el.IsConnected() {
		if cb := def.Callback(customelements.ConnectedCallback); cb != nil {
			q.enqueue(el, reaction{kind: callbackReaction, definition: def, name: customelements.ConnectedCallback, callback: cb})
		}
	}

	q.push(def, el)
	result, err := q.construct(ctx, def, el)
	q.popConstruction(def)

	if err == nil && result != el {
		err = &Error{
			Kind:    ConstructorMismatch,
			Element: string(el.LocalName()),
			Message: fmt.Sprintf("constructor for %q did not return the element being upgraded", def.Name()),
		}
	}
	if err != nil {
		q.mu.Lock()
		rec.definition = nil
		rec.queue = nil
		q.mu.Unlock()
		return false, err
	}

	q.mu.Lock()
	rec.state = Custom
	q.mu.Unlock()
	q.opts.Logger.DebugContext(ctx, "element upgraded",
		"element", string(el.LocalName()),
		"definition", def.Name())
	return true, nil
}

// construct calls the definition's constructor and converts a panic into an error
// so a misbehaving constructor cannot leave the construction stack unbalanced.
func (q *Queue) construct(ctx context.Context, def *customelements.Definition, el xmldom.Element) (result xmldom.Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor for %q panicked: %v", def.Name(), r)
		}
	}()
	return def.Constructor().Construct(ctx, el)
}

// enqueueAttributeChanges enqueues attributeChangedCallback for every observed
// attribute present on el, in attribute order, with a null old value.
func (q *Queue) enqueueAttributeChanges(el xmldom.Element, def *customelements.Definition) {
	cb := def.Callback(customelements.AttributeChangedCallback)
	if cb == nil {
		return
	}
	attrs := el.Attributes()
	if attrs == nil {
		return
	}
	for i := uint(0); i < attrs.Length(); i++ {
		attr := attrs.Item(i)
		if attr == nil {
			continue
		}
		local := string(attr.LocalName())
		if !def.Observes(local) {
			continue
		}
		var ns any
		if uri := string(attr.NamespaceURI()); uri != "" {
			ns = uri
		}
		q.enqueue(el, reaction{
			kind:       callbackReaction,
			definition: def,
			name:       customelements.AttributeChangedCallback,
			callback:   cb,
			args:       []any{local, nil, string(attr.NodeValue()), ns},
		})
	}
}

func (q *Queue) push(def *customelements.Definition, el xmldom.Element) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.construction[def] = append(q.construction[def], constructionEntry{element: el})
}

func (q *Queue) popConstruction(def *customelements.Definition) {
	q.mu.Lock()
	defer q.mu.Unlock()
	stack := q.construction[def]
	if len(stack) == 0 {
		return
	}
	if len(stack) == 1 {
		delete(q.construction, def)
		return
	}
	q.construction[def] = stack[:len(stack)-1]
}

// Constructing is called by a constructor while it runs. It finds the definition
// for ctor and returns the element being upgraded, marking it as constructed. A
// constructor invoked outside an upgrade gets IllegalConstructor; calling Constructing
// twice during one upgrade gets InvalidState.
func (q *Queue) Constructing(lookup customelements.DefinitionLookup, ctor customelements.Constructor) (xmldom.Element, error) {
	def := lookup.FindByConstructor(ctor)
	if def == nil {
		return nil, &Error{Kind: IllegalConstructor, Message: "constructor is not registered"}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	stack := q.construction[def]
	if len(stack) == 0 {
		return nil, &Error{
			Kind:    IllegalConstructor,
			Message: fmt.Sprintf("%q constructed outside of an upgrade", def.Name()),
		}
	}
	top := &stack[len(stack)-1]
	if top.constructed {
		return nil, &Error{
			Kind:    InvalidState,
			Element: string(top.element.LocalName()),
			Message: "element already constructed",
		}
	}
	top.constructed = true
	return top.element, nil
}
