// SPDX-License-Identifier: MPL-2.0

package project

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apbuild/apb/internal/command"
	"github.com/apbuild/apb/internal/dependency"
	"github.com/apbuild/apb/internal/engine"
	"github.com/apbuild/apb/internal/environment"
	"github.com/apbuild/apb/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

type harness struct {
	dir     string
	project *Project
	stdout  *bytes.Buffer
}

func newHarness(t *testing.T, file, content string) *harness {
	t.Helper()
	dir := writeProject(t, file, content)
	p, err := Load(dir, dependency.NewRegistry())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return &harness{dir: p.Dir(), project: p, stdout: &bytes.Buffer{}}
}

func (h *harness) run(t *testing.T, opts environment.Options, targets ...string) *engine.Report {
	t.Helper()
	opts.FailOnError = true
	env := environment.New(h.dir, opts, environment.WithStdout(h.stdout), environment.WithStderr(io.Discard))
	eng := engine.New(command.NewCache(nil), env)

	var reqs []engine.Request
	for _, target := range targets {
		name, cmd, _ := strings.Cut(target, ".")
		el, err := h.project.Element(name)
		if err != nil {
			t.Fatal(err)
		}
		reqs = append(reqs, engine.Request{Element: el, Command: cmd})
	}
	report, err := eng.Run(context.Background(), reqs...)
	if err != nil {
		t.Fatalf("Run(%v) error = %v", targets, err)
	}
	return report
}

func (h *harness) buildLog(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, "build.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Fields(string(data))
}

func TestRun_ModuleDefault(t *testing.T) {
	t.Parallel()

	h := newHarness(t, CUEFile, demoCUE)
	h.run(t, environment.Options{}, "app")

	want := []string{"core.compile", "core.package", "app.deploy"}
	if diff := cmp.Diff(want, h.buildLog(t)); diff != "" {
		t.Errorf("build log mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_TestsAfterPackage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, demoTOML)
	h.run(t, environment.Options{}, "core.run-tests")

	want := []string{"core.compile", "core.package", "core-tests.run"}
	if diff := cmp.Diff(want, h.buildLog(t)); diff != "" {
		t.Errorf("build log mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_MinimalTestsFallBackToRunScript(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, `
[[modules]]
name = "core"

  [[modules.tests]]
  name = "core-tests"
  targets = [{ name = "run", script = "echo group=$APB_TEST_GROUP >> build.log" }]
`)
	h.run(t, environment.Options{}, "core.run-minimal-tests")

	if diff := cmp.Diff([]string{"group=minimal"}, h.buildLog(t)); diff != "" {
		t.Errorf("build log mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ResourcesMapping(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, "[[modules]]\nname = \"core\"\n")
	src := filepath.Join(h.dir, "core", "resources", "conf", "app.properties")
	dst := filepath.Join(h.dir, "output", "core", "classes", "conf", "app.properties")
	testutil.MustWriteFile(t, src, "level=info\n")
	testutil.MustChtimes(t, src, time.Now().Add(-time.Hour))

	h.run(t, environment.Options{}, "core.resources")
	assertFile(t, dst, "level=info\n")

	// Up to date: a local edit of the copy survives.
	testutil.MustWriteFile(t, dst, "edited\n")
	h.run(t, environment.Options{}, "core.resources")
	assertFile(t, dst, "edited\n")

	h.run(t, environment.Options{ForceBuild: true}, "core.resources")
	assertFile(t, dst, "level=info\n")
}

func TestRun_ScriptStaleness(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, `
[[modules]]
name = "core"

  [[modules.targets]]
  name = "compile"
  target = "$output-base/compile.stamp"
  sources = ["Main.java"]
  script = "echo compiled >> build.log; echo ok > output/core/compile.stamp"
`)
	source := filepath.Join(h.dir, "core", "src", "Main.java")
	testutil.MustWriteFile(t, source, "class Main {}\n")
	testutil.MustChtimes(t, source, time.Now().Add(-time.Hour))
	testutil.MustMkdirAll(t, filepath.Join(h.dir, "output", "core"))

	h.run(t, environment.Options{}, "core.compile")
	h.run(t, environment.Options{}, "core.compile")
	if got := len(h.buildLog(t)); got != 1 {
		t.Fatalf("script ran %d times, want once while the stamp is newer", got)
	}

	testutil.MustChtimes(t, source, time.Now().Add(time.Hour))
	h.run(t, environment.Options{}, "core.compile")
	if got := len(h.buildLog(t)); got != 2 {
		t.Errorf("script ran %d times, want a rebuild after the source changed", got)
	}
}

func TestRun_CleanForwardsToTests(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, demoTOML)
	for _, dir := range []string{"output/core/classes", "output/core-tests/test-classes"} {
		testutil.MustMkdirAll(t, filepath.Join(h.dir, dir))
	}

	report := h.run(t, environment.Options{}, "core.clean")

	for _, dir := range []string{"output/core", "output/core-tests"} {
		if _, err := os.Stat(filepath.Join(h.dir, dir)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed, stat error = %v", dir, err)
		}
	}
	want := []engine.Execution{{Element: "core-tests", Command: "clean"}, {Element: "core", Command: "clean"}}
	if diff := cmp.Diff(want, report.Executed); diff != "" {
		t.Errorf("Executed mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Properties(t *testing.T) {
	t.Parallel()

	h := newHarness(t, TOMLFile, demoTOML)
	h.run(t, environment.Options{}, "core.properties")

	out := h.stdout.String()
	for _, want := range []string{"name         = core\n", "output       = output/core/classes\n", "package      = jar\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("properties output missing %q:\n%s", want, out)
		}
	}
}

func assertFile(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want %q", path, data, want)
	}
}
