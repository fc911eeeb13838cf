package customelements

import "slices"

type callbackSlot struct {
	name     CallbackName
	callback Callback
}

// Definition is the immutable record created by a successful Define.
type Definition struct {
	name               string
	localName          string
	constructor        Constructor
	observedAttributes []string
	callbacks          []callbackSlot
	formAssociated     bool
	disableInternals   bool
	disableShadow      bool
}

// Name returns the name the definition was registered under.
func (d *Definition) Name() string { return d.name }

// LocalName returns the tag name instances use.
func (d *Definition) LocalName() string { return d.localName }

// Constructor returns the registered constructor.
func (d *Definition) Constructor() Constructor { return d.constructor }

// IsAutonomous reports whether the definition does not customize a built-in element.
func (d *Definition) IsAutonomous() bool { return d.name == d.localName }

// ObservedAttributes returns a copy of the observed attribute names, in order and
// including duplicates.
func (d *Definition) ObservedAttributes() []string {
	return slices.Clone(d.observedAttributes)
}

// Observes reports whether attr is one of the observed attributes.
func (d *Definition) Observes(attr string) bool {
	return slices.Contains(d.observedAttributes, attr)
}

// Callback returns the callback registered for name, or nil when it is absent.
func (d *Definition) Callback(name CallbackName) Callback {
	for _, slot := range d.callbacks {
		if slot.name == name {
			return slot.callback
		}
	}
	return nil
}

// HasCallbackSlot reports whether name was looked up while defining. The base
// lifecycle callbacks always have a slot, even when the prototype lacks them.
func (d *Definition) HasCallbackSlot(name CallbackName) bool {
	for _, slot := range d.callbacks {
		if slot.name == name {
			return true
		}
	}
	return false
}

// CallbackNames returns the callback slots in the order they were recorded.
func (d *Definition) CallbackNames() []CallbackName {
	names := make([]CallbackName, len(d.callbacks))
	for i, slot := range d.callbacks {
		names[i] = slot.name
	}
	return names
}

func (d *Definition) FormAssociated() bool   { return d.formAssociated }
func (d *Definition) DisableInternals() bool { return d.disableInternals }
func (d *Definition) DisableShadow() bool    { return d.disableShadow }
