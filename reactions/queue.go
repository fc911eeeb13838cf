// Package reactions upgrades elements and runs custom element lifecycle callbacks.
//
// Each element has a reaction queue. Enqueueing a reaction also appends the element
// to the backup element queue, which Process drains in order. Reactions are run
// through a go-pipeline chain so tracing and error reporting wrap every reaction
// the same way.
package reactions

import (
	"context"
	"log/slog"
	"sync"

	customelements "github.com/agentflare-ai/go-customelements"
	"github.com/agentflare-ai/go-customelements/dom"
	"github.com/agentflare-ai/go-pipeline"
	"github.com/agentflare-ai/go-xmldom"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("reactions")

// State is an element's custom element state.
type State int

const (
	Undefined State = iota
	Failed
	Uncustomized
	Precustomized
	Custom
)

func (s State) String() string {
	switch s {
	case Failed:
		return "failed"
	case Uncustomized:
		return "uncustomized"
	case Precustomized:
		return "precustomized"
	case Custom:
		return "custom"
	default:
		return "undefined"
	}
}

type reactionKind int

const (
	upgradeReaction reactionKind = iota
	callbackReaction
)

type reaction struct {
	kind       reactionKind
	definition *customelements.Definition
	name       customelements.CallbackName
	callback   customelements.Callback
	args       []any
}

type elementRecord struct {
	state      State
	definition *customelements.Definition
	queue      []reaction
}

type constructionEntry struct {
	element     xmldom.Element
	constructed bool
}

// Options configures a Queue.
type Options struct {
	// IsValue returns the is value of an element. Defaults to dom.IsValue.
	IsValue func(xmldom.Element) string
	// OnError receives errors raised by reactions. Defaults to logging them.
	OnError func(ctx context.Context, element xmldom.Element, err error)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Queue tracks custom element state and pending reactions for elements. It
// implements customelements.Upgrader.
type Queue struct {
	opts Options

	mu           sync.Mutex
	elements     map[xmldom.Element]*elementRecord
	backup       []xmldom.Element
	construction map[*customelements.Definition][]constructionEntry
}

// New creates an empty Queue.
func New(opts Options) *Queue {
	if opts.IsValue == nil {
		opts.IsValue = dom.IsValue
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	q := &Queue{
		opts:         opts,
		elements:     make(map[xmldom.Element]*elementRecord),
		construction: make(map[*customelements.Definition][]constructionEntry),
	}
	if q.opts.OnError == nil {
		q.opts.OnError = q.logError
	}
	return q
}

// State returns the custom element state of el.
func (q *Queue) State(el xmldom.Element) State {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.elements[el]; ok {
		return rec.state
	}
	return Undefined
}

// SetState records the state an element was created in, for example Uncustomized
// for built-in elements created without an is value.
func (q *Queue) SetState(el xmldom.Element, state State) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.record(el).state = state
}

// Definition returns the definition el was upgraded with, or nil.
func (q *Queue) Definition(el xmldom.Element) *customelements.Definition {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec, ok := q.elements[el]; ok {
		return rec.definition
	}
	return nil
}

// Len returns the number of reactions waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, rec := range q.elements {
		n += len(rec.queue)
	}
	return n
}

// EnqueueUpgrade schedules an upgrade of el with def. It runs on the next Process.
func (q *Queue) EnqueueUpgrade(ctx context.Context, el xmldom.Element, def *customelements.Definition) {
	if el == nil || def == nil {
		return
	}
	q.enqueue(el, reaction{kind: upgradeReaction, definition: def})
	q.opts.Logger.DebugContext(ctx, "upgrade reaction enqueued",
		"element", string(el.LocalName()),
		"definition", def.Name())
}

// TryUpgrade enqueues an upgrade of el when lookup has a definition for it.
func (q *Queue) TryUpgrade(ctx context.Context, lookup customelements.DefinitionLookup, el xmldom.Element) {
	if el == nil || lookup == nil {
		return
	}
	def := lookup.LookUp(string(el.NamespaceURI()), string(el.LocalName()), q.opts.IsValue(el))
	if def == nil {
		return
	}
	q.EnqueueUpgrade(ctx, el, def)
}

// EnqueueCallback schedules the lifecycle callback name for a custom element. It is
// a no-op when el is not custom or its definition lacks the callback. An
// attributeChangedCallback is only enqueued for observed attributes; its first
// argument must be the attribute's local name.
func (q *Queue) EnqueueCallback(ctx context.Context, el xmldom.Element, name customelements.CallbackName, args ...any) {
	if el == nil {
		return
	}
	q.mu.Lock()
	rec, ok := q.elements[el]
	if !ok || rec.state != Custom || rec.definition == nil {
		q.mu.Unlock()
		return
	}
	def := rec.definition
	q.mu.Unlock()

	cb := def.Callback(name)
	if cb == nil {
		return
	}
	if name == customelements.AttributeChangedCallback {
		if len(args) == 0 {
			return
		}
		attr, _ := args[0].(string)
		if !def.Observes(attr) {
			return
		}
	}
	q.enqueue(el, reaction{kind: callbackReaction, definition: def, name: name, callback: cb, args: args})
	q.opts.Logger.DebugContext(ctx, "callback reaction enqueued",
		"element", string(el.LocalName()),
		"callback", string(name))
}

func (q *Queue) enqueue(el xmldom.Element, r reaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec := q.record(el)
	rec.queue = append(rec.queue, r)
	q.backup = append(q.backup, el)
}

// record must be called with q.mu held.
func (q *Queue) record(el xmldom.Element) *elementRecord {
	rec, ok := q.elements[el]
	if !ok {
		rec = &elementRecord{}
		q.elements[el] = rec
	}
	return rec
}

func (q *Queue) next() (xmldom.Element, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.backup) == 0 {
		return nil, false
	}
	el := q.backup[0]
	q.backup = q.backup[1:]
	return el, true
}

func (q *Queue) pop(el xmldom.Element) (reaction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.elements[el]
	if !ok || len(rec.queue) == 0 {
		return reaction{}, false
	}
	r := rec.queue[0]
	rec.queue = rec.queue[1:]
	return r, true
}

// Report summarizes one Process call.
type Report struct {
	Reactions int     // reactions run
	Upgraded  int     // elements that became custom
	Errors    []error // errors raised by reactions
}

type job struct {
	element  xmldom.Element
	reaction reaction
}

// Process drains the backup element queue, running each element's reactions in
// order until no work is left, including reactions enqueued while processing.
// Errors raised by reactions are reported through Options.OnError and collected in
// the Report rather than stopping the drain.
func (q *Queue) Process(ctx context.Context) Report {
	ctx, span := tracer.Start(ctx, "reactions.process")
	defer span.End()

	stages := []pipeline.Pipe[context.Context, *Report, *job]{
		q.traceStage,
		q.stateStage,
		q.invokeStage,
	}
	p := pipeline.New(ctx, stages...)

	report := &Report{}
	for {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			break
		}
		el, ok := q.next()
		if !ok {
			break
		}
		for {
			r, ok := q.pop(el)
			if !ok {
				break
			}
			if err := p.Process(ctx, report, &job{element: el, reaction: r}); err != nil {
				report.Errors = append(report.Errors, err)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("reactions.count", report.Reactions),
		attribute.Int("reactions.upgraded", report.Upgraded),
		attribute.Int("reactions.errors", len(report.Errors)),
	)
	return *report
}

func (q *Queue) traceStage(ctx context.Context, w *Report, j *job, next pipeline.Next[context.Context, *Report, *job]) error {
	name := "reactions.upgrade"
	if j.reaction.kind == callbackReaction {
		name = "reactions.callback"
	}
	ctx, span := tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("reactions.element", string(j.element.LocalName())),
			attribute.String("reactions.definition", j.reaction.definition.Name()),
			attribute.String("reactions.callback", string(j.reaction.name)),
		))
	defer span.End()

	err := next(ctx, w, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// stateStage drops reactions the element's current state no longer allows: a second
// upgrade of a custom or failed element, or a callback for an element that is not
// custom.
func (q *Queue) stateStage(ctx context.Context, w *Report, j *job, next pipeline.Next[context.Context, *Report, *job]) error {
	state := q.State(j.element)
	switch j.reaction.kind {
	case upgradeReaction:
		if state == Custom || state == Failed {
			q.opts.Logger.DebugContext(ctx, "upgrade skipped",
				"element", string(j.element.LocalName()),
				"state", state.String())
			return nil
		}
	case callbackReaction:
		if state != Custom {
			return nil
		}
	}
	return next(ctx, w, j)
}

func (q *Queue) invokeStage(ctx context.Context, w *Report, j *job, next pipeline.Next[context.Context, *Report, *job]) error {
	w.Reactions++
	var err error
	switch j.reaction.kind {
	case upgradeReaction:
		var upgraded bool
		upgraded, err = q.upgrade(ctx, j.element, j.reaction.definition)
		if upgraded {
			w.Upgraded++
		}
	case callbackReaction:
		err = j.reaction.callback.Invoke(ctx, j.element, j.reaction.args...)
	}
	if err != nil {
		w.Errors = append(w.Errors, err)
		q.opts.OnError(ctx, j.element, err)
		return nil
	}
	return next(ctx, w, j)
}

func (q *Queue) logError(ctx context.Context, el xmldom.Element, err error) {
	q.opts.Logger.WarnContext(ctx, "custom element reaction failed",
		"element", string(el.LocalName()),
		"error", err)
}

var _ customelements.Upgrader = (*Queue)(nil)
