// SPDX-License-Identifier: MPL-2.0

package dependency

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_InternIsIdempotent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := &RepositoryLibrary{Group: "g", ID: "a", Version: "1"}

	first := reg.Intern(a)
	if first != a {
		t.Fatal("the first intern should return its input")
	}
	if reg.Intern(first) != first {
		t.Error("intern(intern(x)) should equal intern(x)")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_SameNameCollapses(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := &RepositoryLibrary{Group: "g", ID: "a", Version: "1"}
	dup := &RepositoryLibrary{Group: "g", ID: "a", Version: "1"}

	reg.Intern(a)
	if reg.Intern(dup) != a {
		t.Error("a distinct object with the same name should collapse to the first")
	}
	got, ok := reg.Lookup("g.1.a")
	if !ok || got != a {
		t.Errorf("Lookup() = (%v, %v)", got, ok)
	}
}

func TestRegistry_DecoratedWrapsCanonical(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := &RepositoryLibrary{ID: "a"}
	reg.Intern(a)

	wrapped := reg.Intern(RuntimeOnly(&RepositoryLibrary{ID: "a"})[0])
	d, ok := wrapped.(*Decorated)
	if !ok {
		t.Fatalf("Intern() of a decorated dependency returned %T", wrapped)
	}
	if d.Inner != a || d.Scope != ScopeRuntimeOnly {
		t.Errorf("decorated should wrap the canonical instance, got %v", d)
	}
	if reg.Len() != 1 {
		t.Errorf("the decoration itself must not be registered, Len() = %d", reg.Len())
	}
}

func TestRegistry_DecoratedIdentityCoversInnerOnly(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	a := &RepositoryLibrary{ID: "a"}
	reg.Intern(a)

	stale := CompileOnly(&RepositoryLibrary{ID: "a"})[0]
	first, second := reg.Intern(stale), reg.Intern(stale)
	if first == second {
		t.Error("a wrapper around a non-canonical inner should be rebuilt on each call")
	}
	if first.Name() != second.Name() {
		t.Errorf("names differ: %q and %q", first.Name(), second.Name())
	}
	if first.(*Decorated).Inner != a || second.(*Decorated).Inner != a {
		t.Error("every rebuilt wrapper should hold the canonical inner")
	}

	canonical := CompileOnly(a)[0]
	if reg.Intern(canonical) != canonical {
		t.Error("a wrapper around the canonical inner should be returned as is")
	}
	if reg.Intern(first) != first {
		t.Error("interning a returned wrapper should be idempotent")
	}
}

func TestRegistry_ConcurrentIntern(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	results := make([]Dependency, 32)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = reg.Intern(&RepositoryLibrary{ID: "shared"})
		}()
	}
	wg.Wait()

	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d is a different instance", i)
		}
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_NamesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	for _, id := range []string{"c", "a", "b", "a"} {
		reg.Intern(&RepositoryLibrary{ID: id})
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func ExampleRegistry_Intern() {
	reg := NewRegistry()
	first := reg.Intern(&LocalLibrary{Path: "lib/a.jar"})
	second := reg.Intern(&LocalLibrary{Path: "lib/a.jar", Optional: true})
	fmt.Println(first == second, reg.Len())
	// Output: true 1
}
