// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dag"
	"github.com/apbuild/apb/internal/environment"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type (
	// Engine runs commands with graphs from a command.Cache.
	Engine struct {
		cache *command.Cache
		env   *environment.Environment
	}

	// Request asks for one command on one element. An empty Command selects
	// the element's default command.
	Request struct {
		Element command.Element
		Command string
	}

	// Execution is one (element, command) pair that ran.
	Execution struct {
		Element string
		Command string
	}

	// Report summarizes a run.
	Report struct {
		// Executed lists the pairs in completion order.
		Executed []Execution
		// Failures lists every error reported to the environment, including
		// those the run continued past.
		Failures []error
		// Stopped is set when help ended the run.
		Stopped bool
	}

	run struct {
		eng *Engine

		// slots bounds running actions across every forwarding level.
		slots *semaphore.Weighted

		mu       sync.Mutex
		states   map[pairKey]*pairState
		executed []Execution
	}

	pairKey struct {
		element command.Element
		cmd     *command.Command
	}

	pairState struct {
		done chan struct{}
		err  error
	}

	runKey   struct{}
	stackKey struct{}
	slotKey  struct{}
)

// New creates an Engine.
func New(cache *command.Cache, env *environment.Environment) *Engine {
	return &Engine{cache: cache, env: env}
}

// Env returns the environment the engine reports to.
func (e *Engine) Env() *environment.Environment { return e.env }

// Run executes the requests in order. It fails before running anything when
// a name does not resolve or when related elements form a cycle. Under
// fail-on-error the first failing target aborts the run and its error is
// returned; otherwise failures are recorded in the Report. Help stops the
// run with a nil error.
func (e *Engine) Run(ctx context.Context, reqs ...Request) (*Report, error) {
	targets := make([]*command.Command, len(reqs))
	for i, req := range reqs {
		g, err := e.cache.Graph(req.Element.Type())
		if err != nil {
			return nil, err
		}
		c, ok := g.Lookup(req.Command)
		if !ok {
			return nil, &command.CommandNotFoundError{Element: req.Element.Name(), Command: req.Command}
		}
		targets[i] = c
	}
	if err := checkElementCycles(reqs); err != nil {
		return nil, err
	}

	r := &run{
		eng:    e,
		slots:  semaphore.NewWeighted(int64(e.env.Parallelism())),
		states: make(map[pairKey]*pairState),
	}
	ctx = context.WithValue(ctx, runKey{}, r)

	var err error
	for i, req := range reqs {
		if err = r.execute(ctx, req.Element, targets[i]); err != nil {
			break
		}
	}

	report := &Report{Executed: r.executions(), Failures: e.env.Failures()}
	if errors.Is(err, command.ErrStop) {
		report.Stopped = true
		err = nil
	}
	return report, err
}

// Forward runs the command called name on each element, within the run ctx
// belongs to. Elements whose graph has no such command are skipped. The
// calling action gives up its parallelism slot until the elements finish.
func Forward(ctx context.Context, name string, elements ...command.Element) error {
	r, ok := ctx.Value(runKey{}).(*run)
	if !ok {
		return ErrNoRun
	}
	if held, _ := ctx.Value(slotKey{}).(bool); held {
		r.slots.Release(1)
		defer r.reacquire(ctx)
	}
	return r.forward(ctx, name, elements)
}

// reacquire takes back a released slot even after cancellation, since the
// invoking action still releases it on return.
func (r *run) reacquire(ctx context.Context) {
	_ = r.slots.Acquire(context.WithoutCancel(ctx), 1)
}

func (r *run) env() *environment.Environment { return r.eng.env }

func (r *run) executions() []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.executed)
}

// execute runs (el, c) once. Concurrent callers of a running pair wait for it.
func (r *run) execute(ctx context.Context, el command.Element, c *command.Command) error {
	key := pairKey{element: el, cmd: c}
	stack := stackFromContext(ctx)
	if i := slices.Index(stack, key); i >= 0 {
		return runtimeCycle(append(slices.Clone(stack[i:]), key))
	}

	r.mu.Lock()
	if st, ok := r.states[key]; ok {
		r.mu.Unlock()
		select {
		case <-st.done:
			return st.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	st := &pairState{done: make(chan struct{})}
	r.states[key] = st
	r.mu.Unlock()

	ctx = context.WithValue(ctx, stackKey{}, append(slices.Clip(stack), key))
	st.err = r.invoke(ctx, el, c)
	close(st.done)
	return st.err
}

func (r *run) invoke(ctx context.Context, el command.Element, c *command.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, dep := range c.Dependencies() {
		if err := r.execute(ctx, el, dep); err != nil {
			return err
		}
	}
	if c.Recursive() && !r.env().NonRecursive() {
		if err := r.forward(ctx, c.Name(), el.Related()); err != nil {
			return err
		}
	}

	log := r.env().Logger()
	if c.Kind() == command.KindHelp {
		g, err := r.eng.cache.Graph(el.Type())
		if err != nil {
			return err
		}
		if err := command.WriteHelp(r.env().Stdout(), el.Name(), g); err != nil {
			return err
		}
		return command.ErrStop
	}

	log.Info("running", "element", el.Name(), "command", c.Name())
	var err error
	if action := c.Action(); action != nil {
		if acquireErr := r.slots.Acquire(ctx, 1); acquireErr != nil {
			return acquireErr
		}
		err = action(context.WithValue(ctx, slotKey{}, true), el, r.env())
		r.slots.Release(1)
	}
	r.mu.Lock()
	r.executed = append(r.executed, Execution{Element: el.Name(), Command: c.Name()})
	r.mu.Unlock()

	if err == nil {
		return nil
	}
	if alreadyHandled(err) {
		return err
	}
	return r.env().Handle(&ActionFailedError{Element: el.Name(), Command: c.Name(), Err: err})
}

// alreadyHandled reports errors that went through the environment (or end the
// run) inside a forwarded call and must not be reported twice.
func alreadyHandled(err error) bool {
	var failed *ActionFailedError
	var cycle *dag.CycleError
	return errors.As(err, &failed) || errors.As(err, &cycle) ||
		errors.Is(err, command.ErrStop) || errors.Is(err, context.Canceled)
}

// forward runs name on each element that has it. With parallelism above one
// the elements run concurrently; every branch error is joined.
func (r *run) forward(ctx context.Context, name string, elements []command.Element) error {
	type job struct {
		el command.Element
		c  *command.Command
	}
	var jobs []job
	for _, el := range elements {
		g, err := r.eng.cache.Graph(el.Type())
		if err != nil {
			return err
		}
		c, ok := g.Lookup(name)
		if !ok {
			r.env().Logger().Debug("skipping element without command", "element", el.Name(), "command", name)
			continue
		}
		jobs = append(jobs, job{el: el, c: c})
	}

	if len(jobs) < 2 || r.env().Parallelism() < 2 {
		for _, j := range jobs {
			if err := r.execute(ctx, j.el, j.c); err != nil {
				return err
			}
		}
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.env().Parallelism())
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, j := range jobs {
		eg.Go(func() error {
			err := r.execute(egCtx, j.el, j.c)
			if err != nil {
				mu.Lock()
				if !slices.ContainsFunc(errs, func(e error) bool { return e == err }) {
					errs = append(errs, err)
				}
				mu.Unlock()
			}
			return err
		})
	}
	_ = eg.Wait()
	return joinBranchErrors(errs)
}

// joinBranchErrors drops cancellations caused by a sibling failure.
func joinBranchErrors(errs []error) error {
	var failures []error
	for _, err := range errs {
		if !errors.Is(err, context.Canceled) {
			failures = append(failures, err)
		}
	}
	switch len(failures) {
	case 0:
		return errors.Join(errs...)
	case 1:
		return failures[0]
	default:
		return errors.Join(failures...)
	}
}

func stackFromContext(ctx context.Context) []pairKey {
	stack, _ := ctx.Value(stackKey{}).([]pairKey)
	return stack
}

func runtimeCycle(path []pairKey) error {
	cycle := make([]string, len(path))
	for i, k := range path {
		cycle[i] = fmt.Sprintf("%s.%s", k.element.Name(), k.cmd.Name())
	}
	return &dag.CycleError{Cycle: cycle}
}

// checkElementCycles rejects related-element cycles reachable from reqs.
func checkElementCycles(reqs []Request) error {
	d := dag.New()
	seen := make(map[command.Element]bool)
	var roots []string
	var walk func(el command.Element)
	walk = func(el command.Element) {
		if seen[el] {
			return
		}
		seen[el] = true
		d.AddNode(el.Name())
		for _, rel := range el.Related() {
			d.AddEdge(rel.Name(), el.Name())
			walk(rel)
		}
	}
	for _, req := range reqs {
		walk(req.Element)
		roots = append(roots, req.Element.Name())
	}
	_, err := d.Order(roots...)
	return err
}
