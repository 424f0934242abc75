// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dag"
	"github.com/apbuild/apb/internal/environment"

	"github.com/google/go-cmp/cmp"
)

type (
	recorder struct {
		mu    sync.Mutex
		calls []string
	}

	testElement struct {
		name    string
		typ     *command.Type
		related []command.Element
	}
)

func (e *testElement) Name() string               { return e.name }
func (e *testElement) Type() *command.Type        { return e.typ }
func (e *testElement) Related() []command.Element { return e.related }

func (r *recorder) record(el command.Element, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, el.Name()+"."+name)
}

func (r *recorder) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) target(ident string, recursive bool, depends ...string) command.Descriptor {
	name := command.IDFromIdent(ident)
	return command.Descriptor{
		Ident:     ident,
		Recursive: recursive,
		Depends:   depends,
		Action: func(_ context.Context, el command.Element, _ *environment.Environment) error {
			r.record(el, name)
			return nil
		},
	}
}

func failing(ident string, err error) command.Descriptor {
	return command.Descriptor{
		Ident: ident,
		Action: func(context.Context, command.Element, *environment.Environment) error {
			return err
		},
	}
}

func moduleType(r *recorder) *command.Type {
	return command.NewType("module", &command.Behavior{
		Name:    "module",
		Default: "package",
		Targets: []command.Descriptor{
			r.target("clean", true),
			r.target("resources", true),
			r.target("compile", true, "resources"),
			{Ident: "packageIt", Name: "package", Recursive: true, Depends: []string{"compile"}, Action: func(_ context.Context, el command.Element, _ *environment.Environment) error {
				r.record(el, "package")
				return nil
			}},
		},
	})
}

func newEngine(t *testing.T, opts environment.Options) (*Engine, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	env := environment.New(t.TempDir(), opts, environment.WithStdout(&stdout), environment.WithStderr(io.Discard))
	return New(command.NewCache(nil), env), &stdout
}

func TestRun_DependenciesRunFirstAndOnce(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	typ := command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{
		r.target("a", false),
		r.target("b", false, "a"),
	}})
	el := &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	report, err := eng.Run(context.Background(), Request{el, "b"}, Request{el, "b"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"core.a", "core.b"}, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if len(report.Executed) != 2 {
		t.Errorf("Executed = %v", report.Executed)
	}
}

func TestRun_DefaultCommandEndToEnd(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	el := &testElement{name: "core", typ: moduleType(r)}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	if _, err := eng.Run(context.Background(), Request{Element: el}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"core.resources", "core.compile", "core.package"}, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	el := &testElement{name: "core", typ: moduleType(r)}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	_, err := eng.Run(context.Background(), Request{el, "compile"}, Request{el, "deploy"})
	if !errors.Is(err, command.ErrCommandNotFound) {
		t.Fatalf("Run() error = %v, want ErrCommandNotFound", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("nothing should run when a name does not resolve, got %v", r.calls)
	}
}

func TestRun_RecursiveForwarding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		nonRecursive bool
		want         []string
	}{
		{
			name: "recursive",
			want: []string{"core.resources", "app.resources", "core.compile", "app.compile"},
		},
		{
			name:         "non-recursive",
			nonRecursive: true,
			want:         []string{"app.resources", "app.compile"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &recorder{}
			typ := moduleType(r)
			core := &testElement{name: "core", typ: typ}
			app := &testElement{name: "app", typ: typ, related: []command.Element{core}}
			eng, _ := newEngine(t, environment.Options{FailOnError: true, NonRecursive: tt.nonRecursive})

			if _, err := eng.Run(context.Background(), Request{app, "compile"}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, r.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_ForwardSkipsElementsWithoutCommand(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	testType := command.NewType("test-module", &command.Behavior{Name: "test", Targets: []command.Descriptor{r.target("run", false)}})
	tests := &testElement{name: "core-tests", typ: testType}
	core := &testElement{name: "core", typ: moduleType(r), related: []command.Element{tests}}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	if _, err := eng.Run(context.Background(), Request{core, "clean"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"core.clean"}, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FailOnErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("javac exited with status 1")
	r := &recorder{}
	typ := command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{
		failing("compile", boom),
		r.target("package", false, "compile"),
		r.target("docs", false),
	}})
	el := &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	report, err := eng.Run(context.Background(), Request{el, "package"}, Request{el, "docs"})
	if !errors.Is(err, ErrActionFailed) || !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want the failing action's error", err)
	}
	var failed *ActionFailedError
	if !errors.As(err, &failed) || failed.Element != "core" || failed.Command != "compile" {
		t.Errorf("ActionFailedError = %+v", failed)
	}
	if len(r.calls) != 0 {
		t.Errorf("nothing should run after the failure, got %v", r.calls)
	}
	if len(report.Failures) != 1 {
		t.Errorf("Failures = %v", report.Failures)
	}
}

func TestRun_ContinueRecordsFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := &recorder{}
	typ := command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{
		failing("compile", boom),
		r.target("package", false, "compile"),
	}})
	el := &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{})

	report, err := eng.Run(context.Background(), Request{el, "package"})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil in continue mode", err)
	}
	if diff := cmp.Diff([]string{"core.package"}, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if len(report.Failures) != 1 || !errors.Is(report.Failures[0], boom) {
		t.Errorf("Failures = %v", report.Failures)
	}
}

func TestRun_HelpStopsRun(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	el := &testElement{name: "core", typ: moduleType(r)}
	eng, stdout := newEngine(t, environment.Options{FailOnError: true})

	report, err := eng.Run(context.Background(), Request{el, "help"}, Request{el, "compile"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Stopped {
		t.Error("Report.Stopped should be set")
	}
	if len(r.calls) != 0 {
		t.Errorf("nothing should run after help, got %v", r.calls)
	}
	if !strings.HasPrefix(stdout.String(), "Commands for 'core' : \n") {
		t.Errorf("help output = %q", stdout.String())
	}
}

func TestRun_ElementCycleRejected(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	typ := moduleType(r)
	a := &testElement{name: "a", typ: typ}
	b := &testElement{name: "b", typ: typ, related: []command.Element{a}}
	a.related = []command.Element{b}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	_, err := eng.Run(context.Background(), Request{a, "compile"})
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Run() error = %v, want dag.CycleError", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("nothing should run, got %v", r.calls)
	}
}

func TestRun_ParallelSharedDependencyRunsOnce(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	typ := moduleType(r)
	common := &testElement{name: "common", typ: typ}
	var leaves []command.Element
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		leaves = append(leaves, &testElement{name: n, typ: typ, related: []command.Element{common}})
	}
	root := &testElement{name: "root", typ: typ, related: leaves}
	eng, _ := newEngine(t, environment.Options{FailOnError: true, Parallelism: 4})

	report, err := eng.Run(context.Background(), Request{Element: root})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, el := range append(leaves, common, root) {
		for _, c := range []string{"resources", "compile", "package"} {
			if n := r.count(el.Name() + "." + c); n != 1 {
				t.Errorf("%s.%s ran %d times, want 1", el.Name(), c, n)
			}
		}
	}
	if got := report.Executed[len(report.Executed)-1]; got != (Execution{"root", "package"}) {
		t.Errorf("last execution = %v, want root.package", got)
	}
}

func TestRun_ParallelFailuresAreJoined(t *testing.T) {
	t.Parallel()

	var started sync.WaitGroup
	started.Add(2)
	errA, errB := errors.New("a failed"), errors.New("b failed")
	branch := func(err error) *command.Type {
		return command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{{
			Ident:     "compile",
			Recursive: true,
			Action: func(context.Context, command.Element, *environment.Environment) error {
				started.Done()
				started.Wait()
				return err
			},
		}}})
	}
	a := &testElement{name: "a", typ: branch(errA)}
	b := &testElement{name: "b", typ: branch(errB)}
	root := &testElement{
		name:    "root",
		typ:     command.NewType("root", &command.Behavior{Name: "root", Targets: []command.Descriptor{{Ident: "compile", Recursive: true}}}),
		related: []command.Element{a, b},
	}
	eng, _ := newEngine(t, environment.Options{FailOnError: true, Parallelism: 2})

	_, err := eng.Run(context.Background(), Request{root, "compile"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Run() error = %v, want both branch failures", err)
	}
}

func TestRun_ParallelismBoundsNestedForwarding(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	typ := command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{{
		Ident:     "compile",
		Recursive: true,
		Action: func(context.Context, command.Element, *environment.Environment) error {
			n := running.Add(1)
			defer running.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			return nil
		},
	}}})
	leaf := func(name string) command.Element { return &testElement{name: name, typ: typ} }
	a := &testElement{name: "a", typ: typ, related: []command.Element{leaf("a1"), leaf("a2")}}
	b := &testElement{name: "b", typ: typ, related: []command.Element{leaf("b1"), leaf("b2")}}
	root := &testElement{name: "root", typ: typ, related: []command.Element{a, b}}
	eng, _ := newEngine(t, environment.Options{FailOnError: true, Parallelism: 2})

	report, err := eng.Run(context.Background(), Request{root, "compile"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Executed) != 7 {
		t.Errorf("Executed = %v, want 7 actions", report.Executed)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent actions = %d, want at most 2", got)
	}
}

func TestForward_FromActionReleasesSlot(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	testType := command.NewType("test-module", &command.Behavior{Name: "test", Targets: []command.Descriptor{r.target("compile", false)}})
	tests := []command.Element{&testElement{name: "a-tests", typ: testType}, &testElement{name: "b-tests", typ: testType}}
	typ := command.NewType("module", &command.Behavior{Name: "module", Targets: []command.Descriptor{{
		Ident: "compileTests",
		Action: func(ctx context.Context, _ command.Element, _ *environment.Environment) error {
			return Forward(ctx, "compile", tests...)
		},
	}}})
	core := &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{FailOnError: true, Parallelism: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := eng.Run(ctx, Request{core, "compile-tests"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, call := range []string{"a-tests.compile", "b-tests.compile"} {
		if n := r.count(call); n != 1 {
			t.Errorf("%s ran %d times, want 1", call, n)
		}
	}
}

func TestForward_FromAction(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	testType := command.NewType("test-module", &command.Behavior{Name: "test", Targets: []command.Descriptor{r.target("compile", false)}})
	tests := []command.Element{&testElement{name: "core-tests", typ: testType}}
	typ := command.NewType("module", &command.Behavior{Name: "module", Targets: []command.Descriptor{
		r.target("compile", false),
		{
			Ident:   "compileTests",
			Depends: []string{"compile"},
			Action: func(ctx context.Context, el command.Element, _ *environment.Environment) error {
				return Forward(ctx, "compile", tests...)
			},
		},
	}})
	core := &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	if _, err := eng.Run(context.Background(), Request{core, "compile-tests"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"core.compile", "core-tests.compile"}, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestForward_RuntimeCycle(t *testing.T) {
	t.Parallel()

	var self *testElement
	typ := command.NewType("t", &command.Behavior{Name: "t", Targets: []command.Descriptor{{
		Ident: "loop",
		Action: func(ctx context.Context, _ command.Element, _ *environment.Environment) error {
			return Forward(ctx, "loop", self)
		},
	}}})
	self = &testElement{name: "core", typ: typ}
	eng, _ := newEngine(t, environment.Options{FailOnError: true})

	_, err := eng.Run(context.Background(), Request{self, "loop"})
	var cycle *dag.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Run() error = %v, want a runtime cycle", err)
	}
	if diff := cmp.Diff([]string{"core.loop", "core.loop"}, cycle.Cycle); diff != "" {
		t.Errorf("Cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestForward_OutsideRun(t *testing.T) {
	t.Parallel()

	if err := Forward(context.Background(), "compile"); !errors.Is(err, ErrNoRun) {
		t.Errorf("Forward() = %v, want ErrNoRun", err)
	}
}
