// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	ids := []Id{
		ProjectNotFoundId,
		ProjectParseErrorId,
		ElementNotFoundId,
		CommandNotFoundId,
		DefaultTargetUnresolvedId,
		DependencyCycleId,
		LibraryNotFoundId,
		TargetFailedId,
		ConfigLoadFailedId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if ProjectNotFoundId != 1 {
		t.Errorf("ProjectNotFoundId = %d, want 1", ProjectNotFoundId)
	}
}

func TestIssue_DocLinksAreCloned(t *testing.T) {
	i := &Issue{id: Id(100), docLinks: []HttpLink{"https://example.com/docs"}}

	links := i.DocLinks()
	links[0] = "modified"
	if i.DocLinks()[0] != "https://example.com/docs" {
		t.Error("DocLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	var gotStyle string
	render = func(in string, stylePath string) (string, error) {
		gotStyle = stylePath
		return in, nil
	}

	issue := Get(DependencyCycleId)
	if issue == nil {
		t.Fatal("Get(DependencyCycleId) returned nil")
	}

	rendered, err := issue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "Dependency cycle detected") {
		t.Errorf("Render() output should contain the heading, got %q", rendered)
	}
	if gotStyle != "auto" {
		t.Errorf("Render() style = %q, want %q", gotStyle, "auto")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{ProjectNotFoundId, false, "No project definition found"},
		{ProjectParseErrorId, false, "Failed to parse"},
		{ElementNotFoundId, false, "Module not found"},
		{CommandNotFoundId, false, "Command not found"},
		{DefaultTargetUnresolvedId, false, "Default target"},
		{DependencyCycleId, false, "Dependency cycle"},
		{LibraryNotFoundId, false, "Library not found"},
		{TargetFailedId, false, "Target failed"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValues_OrderedById(t *testing.T) {
	values := Values()
	if len(values) != 9 {
		t.Fatalf("Values() returned %d issues, want 9", len(values))
	}
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Errorf("Values() not ordered: %d before %d", values[i-1].Id(), values[i].Id())
		}
	}
}
