package customelements

import (
	"context"
	"slices"
)

// extracted is the transient working state of a definition being read off a
// constructor. It is discarded if any step fails.
type extracted struct {
	observedAttributes []string
	callbacks          []callbackSlot
	formAssociated     bool
	disableInternals   bool
	disableShadow      bool
}

func (x *extracted) set(name CallbackName, cb Callback) {
	for i := range x.callbacks {
		if x.callbacks[i].name == name {
			x.callbacks[i].callback = cb
			return
		}
	}
	x.callbacks = append(x.callbacks, callbackSlot{name: name, callback: cb})
}

func (x *extracted) has(name CallbackName) bool {
	for _, slot := range x.callbacks {
		if slot.name == name && slot.callback != nil {
			return true
		}
	}
	return false
}

// extractDefinition reads the prototype callbacks, observed attributes, disabled
// features and form association off ctor. Every read may run host code.
func extractDefinition(ctx context.Context, ctor Constructor) (*extracted, error) {
	protoValue, err := ctor.Get(ctx, PrototypeProperty)
	if err != nil {
		return nil, err
	}
	prototype, ok := protoValue.(Object)
	if !ok {
		return nil, newError(PrototypeNotObject, "", "prototype is %s, not an object", describe(protoValue))
	}

	x := &extracted{}
	for _, name := range LifecycleCallbacks {
		x.set(name, nil)
	}
	for _, name := range LifecycleCallbacks {
		cb, err := readCallback(ctx, prototype, name)
		if err != nil {
			return nil, err
		}
		if cb != nil {
			x.set(name, cb)
		}
	}

	if x.has(AttributeChangedCallback) {
		observed, err := readStrings(ctx, ctor, ObservedAttributesProperty)
		if err != nil {
			return nil, err
		}
		x.observedAttributes = observed
	}

	disabled, err := readStrings(ctx, ctor, DisabledFeaturesProperty)
	if err != nil {
		return nil, err
	}
	x.disableInternals = slices.Contains(disabled, "internals")
	x.disableShadow = slices.Contains(disabled, "shadow")

	formValue, err := ctor.Get(ctx, FormAssociatedProperty)
	if err != nil {
		return nil, err
	}
	x.formAssociated = ToBoolean(formValue)

	if x.formAssociated {
		for _, name := range FormCallbacks {
			cb, err := readCallback(ctx, prototype, name)
			if err != nil {
				return nil, err
			}
			if cb != nil {
				x.set(name, cb)
			}
		}
	}
	return x, nil
}

func readCallback(ctx context.Context, obj Object, name CallbackName) (Callback, error) {
	v, err := obj.Get(ctx, string(name))
	if err != nil || v == nil {
		return nil, err
	}
	return ToCallback(v)
}

func readStrings(ctx context.Context, obj Object, key string) ([]string, error) {
	v, err := obj.Get(ctx, key)
	if err != nil || v == nil {
		return nil, err
	}
	return ToStringSequence(v)
}
