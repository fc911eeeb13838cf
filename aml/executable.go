package aml

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentflare-ai/agentml-go"
	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-muid"
	"github.com/agentflare-ai/go-xmldom"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func attr(el xmldom.Element, name string) string {
	return strings.TrimSpace(string(el.GetAttribute(xmldom.DOMString(name))))
}

func executionError(element, message string, data map[string]any, cause error) *agentml.PlatformError {
	if data == nil {
		data = map[string]any{}
	}
	data["element"] = element
	return &agentml.PlatformError{
		EventName: "error.execution",
		Message:   message,
		Data:      data,
		Cause:     cause,
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// define handles <ce:define name constructor [extends]>. The constructor attribute
// is an expression evaluated in the data model.
func (n *Namespace) define(ctx context.Context, el xmldom.Element) error {
	name := attr(el, "name")
	ctorExpr := attr(el, "constructor")
	extends := attr(el, "extends")

	ctx, span := tracer.Start(ctx, "aml.define",
		trace.WithAttributes(
			attribute.String("aml.define.name", name),
			attribute.String("aml.define.extends", extends),
		))
	defer span.End()

	if name == "" || ctorExpr == "" {
		return fail(span, executionError("ce:define", "ce:define requires name and constructor attributes", nil, nil))
	}
	dm := n.itp.DataModel()
	if dm == nil {
		return fail(span, executionError("ce:define", "ce:define requires a data model", nil, nil))
	}

	val, err := dm.EvaluateValue(ctx, ctorExpr)
	if err != nil {
		return fail(span, executionError("ce:define",
			fmt.Sprintf("ce:define failed to evaluate constructor expression: %v", err),
			map[string]any{"name": name, "expr": ctorExpr}, err))
	}
	ctor, err := n.resolve(ctx, name, val)
	if err != nil {
		return fail(span, executionError("ce:define", err.Error(),
			map[string]any{"name": name, "expr": ctorExpr, "kind": string(customelements.KindOf(err))}, err))
	}

	opts := customelements.ElementDefinitionOptions{Extends: extends}
	if err := n.registry.Define(ctx, name, ctor, opts); err != nil {
		kind := customelements.KindOf(err)
		return fail(span, executionError("ce:define",
			fmt.Sprintf("ce:define failed: %v", err),
			map[string]any{"name": name, "kind": string(kind), "class": kind.Class()}, err))
	}
	return nil
}

// get handles <ce:get name location>. An undefined name assigns nil.
func (n *Namespace) get(ctx context.Context, el xmldom.Element) error {
	name := attr(el, "name")
	location := attr(el, "location")

	ctx, span := tracer.Start(ctx, "aml.get",
		trace.WithAttributes(attribute.String("aml.get.name", name)))
	defer span.End()

	if location == "" {
		return fail(span, executionError("ce:get", "ce:get requires a location attribute", nil, nil))
	}
	dm := n.itp.DataModel()
	if dm == nil {
		return fail(span, executionError("ce:get", "ce:get requires a data model", nil, nil))
	}

	var value any
	if ctor, ok := n.registry.Get(name); ok {
		value = ctor
	}
	span.SetAttributes(attribute.Bool("aml.get.defined", value != nil))
	if err := dm.Assign(ctx, location, value); err != nil {
		return fail(span, executionError("ce:get",
			fmt.Sprintf("ce:get failed to assign %q: %v", location, err),
			map[string]any{"name": name, "location": location}, err))
	}
	return nil
}

// whenDefined handles <ce:whendefined name [event] [location]>. The event is raised
// once name is defined, which may be immediately. When location is set the
// constructor is assigned there before the event is raised.
func (n *Namespace) whenDefined(ctx context.Context, el xmldom.Element) error {
	name := attr(el, "name")
	eventName := attr(el, "event")
	if eventName == "" {
		eventName = DefinedEvent
	}
	location := attr(el, "location")

	ctx, span := tracer.Start(ctx, "aml.whendefined",
		trace.WithAttributes(
			attribute.String("aml.whendefined.name", name),
			attribute.String("aml.whendefined.event", eventName),
		))
	defer span.End()

	p := n.registry.WhenDefined(name)
	if p.State() == customelements.Rejected {
		_, err, _ := p.Result()
		return fail(span, executionError("ce:whendefined",
			fmt.Sprintf("ce:whendefined: %v", err),
			map[string]any{"name": name, "kind": string(customelements.KindOf(err))}, err))
	}
	span.SetAttributes(attribute.String("aml.whendefined.state", p.State().String()))

	// The promise may settle during a later define; keep values but not cancellation.
	raiseCtx := context.WithoutCancel(ctx)
	p.Then(func(ctor customelements.Constructor, err error) {
		if err != nil {
			return
		}
		if location != "" {
			if dm := n.itp.DataModel(); dm != nil {
				if err := dm.Assign(raiseCtx, location, ctor); err != nil {
					n.logger.WarnContext(raiseCtx, "aml: failed to assign defined constructor",
						"name", name,
						"location", location,
						"error", err)
				}
			}
		}
		n.itp.Raise(raiseCtx, &agentml.Event{
			ID:        muid.MakeString(),
			Name:      eventName,
			Type:      agentml.EventTypeInternal,
			Timestamp: time.Now().UTC(),
			Data: map[string]any{
				"component": "customelements",
				"action":    "defined",
				"name":      name,
			},
		})
	})
	return nil
}

// upgrade handles <ce:upgrade [location]>: upgrade the document, then run every
// pending reaction. When location is set a summary is assigned there.
func (n *Namespace) upgrade(ctx context.Context, el xmldom.Element) error {
	location := attr(el, "location")

	ctx, span := tracer.Start(ctx, "aml.upgrade")
	defer span.End()

	if n.doc != nil {
		if root := n.doc.DocumentElement(); root != nil {
			n.registry.Upgrade(ctx, root)
		}
	}
	report := n.queue.Process(ctx)
	span.SetAttributes(
		attribute.Int("aml.upgrade.upgraded", report.Upgraded),
		attribute.Int("aml.upgrade.errors", len(report.Errors)),
	)
	n.logger.DebugContext(ctx, "aml: upgrade complete",
		"reactions", report.Reactions,
		"upgraded", report.Upgraded,
		"errors", len(report.Errors))

	if location != "" {
		dm := n.itp.DataModel()
		if dm == nil {
			return fail(span, executionError("ce:upgrade", "ce:upgrade requires a data model when location is set", nil, nil))
		}
		summary := map[string]any{
			"reactions": report.Reactions,
			"upgraded":  report.Upgraded,
			"errors":    len(report.Errors),
		}
		if err := dm.Assign(ctx, location, summary); err != nil {
			return fail(span, executionError("ce:upgrade",
				fmt.Sprintf("ce:upgrade failed to assign %q: %v", location, err),
				map[string]any{"location": location}, err))
		}
	}

	if len(report.Errors) > 0 {
		err := errors.Join(report.Errors...)
		return fail(span, executionError("ce:upgrade",
			fmt.Sprintf("ce:upgrade: %d reaction(s) failed", len(report.Errors)),
			map[string]any{"errors": len(report.Errors), "upgraded": report.Upgraded}, err))
	}
	return nil
}
