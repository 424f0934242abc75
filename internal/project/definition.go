// SPDX-License-Identifier: MPL-2.0

package project

type (
	// Definition is the decoded form of a project file.
	Definition struct {
		Name    string             `json:"name,omitempty" toml:"name"`
		Modules []ModuleDefinition `json:"modules" toml:"modules"`
	}

	// ModuleDefinition declares one module. Empty fields take the defaults
	// documented on Module.
	ModuleDefinition struct {
		Name         string                 `json:"name" toml:"name"`
		Dir          string                 `json:"dir,omitempty" toml:"dir"`
		Group        string                 `json:"group,omitempty" toml:"group"`
		Version      string                 `json:"version,omitempty" toml:"version"`
		Description  string                 `json:"description,omitempty" toml:"description"`
		Source       string                 `json:"source,omitempty" toml:"source"`
		OutputBase   string                 `json:"output_base,omitempty" toml:"output_base"`
		Output       string                 `json:"output,omitempty" toml:"output"`
		Resources    string                 `json:"resources,omitempty" toml:"resources"`
		Package      string                 `json:"package,omitempty" toml:"package"`
		Default      string                 `json:"default,omitempty" toml:"default"`
		Dependencies []DependencyDefinition `json:"dependencies,omitempty" toml:"dependencies"`
		Tests        []TestModuleDefinition `json:"tests,omitempty" toml:"tests"`
		Targets      []TargetDefinition     `json:"targets,omitempty" toml:"targets"`
	}

	// TestModuleDefinition declares a test module attached to a module.
	TestModuleDefinition struct {
		Name         string                 `json:"name" toml:"name"`
		Dir          string                 `json:"dir,omitempty" toml:"dir"`
		Source       string                 `json:"source,omitempty" toml:"source"`
		Output       string                 `json:"output,omitempty" toml:"output"`
		Dependencies []DependencyDefinition `json:"dependencies,omitempty" toml:"dependencies"`
		Targets      []TargetDefinition     `json:"targets,omitempty" toml:"targets"`
	}

	// DependencyDefinition names exactly one of Module, Library or Local.
	DependencyDefinition struct {
		Module  string             `json:"module,omitempty" toml:"module"`
		Library *LibraryDefinition `json:"library,omitempty" toml:"library"`
		Local   *LocalDefinition   `json:"local,omitempty" toml:"local"`
		// Scope is "all" (the default), "compile" or "runtime".
		Scope string `json:"scope,omitempty" toml:"scope"`
	}

	LibraryDefinition struct {
		Group   string `json:"group" toml:"group"`
		ID      string `json:"id" toml:"id"`
		Version string `json:"version" toml:"version"`
	}

	LocalDefinition struct {
		Path     string `json:"path" toml:"path"`
		Runtime  string `json:"runtime,omitempty" toml:"runtime"`
		Sources  string `json:"sources,omitempty" toml:"sources"`
		Optional bool   `json:"optional,omitempty" toml:"optional"`
	}

	// TargetDefinition attaches a script to a built-in target, or declares a
	// custom target when Name is not built in. When Target is set the script
	// only runs if that file is missing or older than one of Sources.
	TargetDefinition struct {
		Name        string   `json:"name" toml:"name"`
		Description string   `json:"description,omitempty" toml:"description"`
		Script      string   `json:"script,omitempty" toml:"script"`
		Depends     []string `json:"depends,omitempty" toml:"depends"`
		Before      string   `json:"before,omitempty" toml:"before"`
		Recursive   bool     `json:"recursive,omitempty" toml:"recursive"`
		Target      string   `json:"target,omitempty" toml:"target"`
		Sources     []string `json:"sources,omitempty" toml:"sources"`
	}
)
