// SPDX-License-Identifier: MPL-2.0

package staleness

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apbuild/apb/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

type recordingWarner struct {
	mu   sync.Mutex
	msgs []string
}

func (w *recordingWarner) Warn(msg string, _ ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msg)
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func file(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	testutil.MustWriteFile(t, path, "x")
	testutil.MustChtimes(t, path, mtime)
}

func TestCheckTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		targetTime  *time.Time
		depTime     time.Time
		force       bool
		wantExecute bool
	}{
		{"target absent", nil, epoch, false, true},
		{"dependency older", ptr(epoch), epoch.Add(-time.Hour), false, false},
		{"dependency equal", ptr(epoch), epoch, false, false},
		{"dependency strictly newer", ptr(epoch), epoch.Add(time.Second), false, true},
		{"force with up to date target", ptr(epoch), epoch.Add(-time.Hour), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base := t.TempDir()
			src := filepath.Join(base, "src")
			target := filepath.Join(base, "out", "app.jar")
			file(t, filepath.Join(src, "App.java"), tt.depTime)
			if tt.targetTime != nil {
				file(t, target, *tt.targetTime)
			}

			d := CheckTarget(Target{
				Path:         target,
				Dependencies: []string{"App.java"},
				SourceRoot:   src,
				BaseRoot:     base,
				Force:        tt.force,
			}, nil)
			if d.Execute != tt.wantExecute {
				t.Errorf("Execute = %v, want %v (%s)", d.Execute, tt.wantExecute, d.Reason)
			}
			if d.Reason == "" {
				t.Error("a decision should carry a reason")
			}
		})
	}
}

func TestCheckTarget_SourceRootBeforeBaseRoot(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	src := filepath.Join(base, "src")
	target := filepath.Join(base, "out")
	file(t, target, epoch)
	file(t, filepath.Join(src, "conf.xml"), epoch.Add(-time.Hour))
	file(t, filepath.Join(base, "conf.xml"), epoch.Add(time.Hour))

	d := CheckTarget(Target{Path: target, Dependencies: []string{"conf.xml"}, SourceRoot: src, BaseRoot: base}, nil)
	if d.Execute {
		t.Error("the source-root copy should shadow the newer base-root copy")
	}

	file(t, filepath.Join(base, "build.xml"), epoch.Add(time.Hour))
	d = CheckTarget(Target{Path: target, Dependencies: []string{"build.xml"}, SourceRoot: src, BaseRoot: base}, nil)
	if !d.Execute {
		t.Error("a dependency only under the base root should still be found")
	}
}

func TestCheckTarget_MissingDependencyOnlyWarns(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	target := filepath.Join(base, "out")
	file(t, target, epoch)
	file(t, filepath.Join(base, "old.txt"), epoch.Add(-time.Minute))

	w := &recordingWarner{}
	d := CheckTarget(Target{
		Path:         target,
		Dependencies: []string{"gone.txt", "old.txt"},
		BaseRoot:     base,
	}, w)

	if d.Execute {
		t.Error("a missing dependency must not force execution on its own")
	}
	if diff := cmp.Diff([]string{"gone.txt"}, d.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dependency not found"}, w.msgs); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckMapping(t *testing.T) {
	t.Parallel()

	t.Run("missing mapped target executes", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		file(t, filepath.Join(base, "src", "FooTest.src"), epoch)

		d := CheckMapping(Mapping{
			SourceDir: filepath.Join(base, "src"),
			TargetDir: filepath.Join(base, "out"),
			From:      "Test",
			Files:     []string{"FooTest.src"},
		})
		if !d.Execute {
			t.Error("expected execute when out/Foo.src is missing")
		}
	})

	t.Run("targets newer than sources skip", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		file(t, filepath.Join(base, "src", "FooTest.src"), epoch)
		file(t, filepath.Join(base, "src", "BarTest.src"), epoch)
		file(t, filepath.Join(base, "out", "Foo.src"), epoch.Add(time.Hour))
		file(t, filepath.Join(base, "out", "Bar.src"), epoch)

		m := Mapping{
			SourceDir: filepath.Join(base, "src"),
			TargetDir: filepath.Join(base, "out"),
			From:      "Test",
			Files:     []string{"FooTest.src", "BarTest.src"},
		}
		if d := CheckMapping(m); d.Execute {
			t.Errorf("expected skip, got %s", d.Reason)
		}

		m.Force = true
		if d := CheckMapping(m); !d.Execute {
			t.Error("force should execute")
		}
	})

	t.Run("source newer executes", func(t *testing.T) {
		t.Parallel()
		base := t.TempDir()
		file(t, filepath.Join(base, "src", "a.txt"), epoch.Add(time.Second))
		file(t, filepath.Join(base, "out", "a.txt"), epoch)

		d := CheckMapping(Mapping{SourceDir: filepath.Join(base, "src"), TargetDir: filepath.Join(base, "out"), Files: []string{"a.txt"}})
		if !d.Execute {
			t.Error("expected execute for a newer source")
		}
	})
}

func TestGuard_SerializesSameTarget(t *testing.T) {
	t.Parallel()

	g := NewGuard()
	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Do("out/app.jar", func() error {
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside.Load())
	}
}

func ptr[T any](v T) *T { return &v }
