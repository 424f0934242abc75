// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
)

const (
	ProjectNotFoundId Id = iota + 1
	ProjectParseErrorId
	ElementNotFoundId
	CommandNotFoundId
	DefaultTargetUnresolvedId
	DependencyCycleId
	LibraryNotFoundId
	TargetFailedId
	ConfigLoadFailedId
)

type (
	// Id identifies an entry of the issue catalog.
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or external reference.
	HttpLink string

	// Issue is a catalog entry with Markdown guidance for one class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue Markdown, followed by its links, for the terminal.
// An empty stylePath selects glamour's default style.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- [" + string(link) + "](" + string(link) + ")\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- [" + string(link) + "](" + string(link) + ")\n")
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# No project definition found!

apb looks for ` + "`project.cue`" + ` or ` + "`project.toml`" + ` in the current directory.

## Things you can try:
- Run apb from the directory that contains your project definition
- Point to the file explicitly:
~~~
$ apb --project path/to/project.cue core.compile
~~~`,
	}

	projectParseErrorIssue = &Issue{
		id: ProjectParseErrorId,
		mdMsg: `
# Failed to parse the project definition!

The project file does not match the expected schema.

## Things you can try:
- Check that every module has a unique ` + "`name`" + `
- Check that module dependencies refer to modules declared in the same project
- Check that library entries set ` + "`id`" + ` (repository libraries) or ` + "`path`" + ` (local libraries)`,
	}

	elementNotFoundIssue = &Issue{
		id: ElementNotFoundId,
		mdMsg: `
# Module not found!

The module or test module you asked for is not declared in the project.

## Things you can try:
- List the declared elements:
~~~
$ apb elements
~~~`,
	}

	commandNotFoundIssue = &Issue{
		id: CommandNotFoundId,
		mdMsg: `
# Command not found!

The target you asked for does not exist for this module.

## Things you can try:
- List the targets of the module:
~~~
$ apb core.help
~~~
- Namespaced targets are written ` + "`namespace:name`" + `, for example ` + "`core.info:deps`",
	}

	defaultTargetUnresolvedIssue = &Issue{
		id: DefaultTargetUnresolvedId,
		mdMsg: `
# Default target cannot be resolved!

A module type declares a default target that none of its targets provide.

## Things you can try:
- Check the spelling of the ` + "`default`" + ` field of the module
- Declare the target under ` + "`targets`" + ` before naming it as the default`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Targets or modules depend on each other in a loop, so no build order exists.

## Things you can try:
- Review the ` + "`depends`" + ` and ` + "`before`" + ` fields of the targets named in the error
- Review the module dependencies named in the error`,
	}

	libraryNotFoundIssue = &Issue{
		id: LibraryNotFoundId,
		mdMsg: `
# Library not found!

A mandatory library file does not exist.

## Things you can try:
- Check the ` + "`path`" + ` of the local library (relative paths start at the project directory)
- Mark the library ` + "`optional: true`" + ` if its absence is acceptable
- Check ` + "`build.library_dir`" + ` in your configuration for repository libraries`,
	}

	targetFailedIssue = &Issue{
		id: TargetFailedId,
		mdMsg: `
# Target failed!

A build target returned an error and the build stopped.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to see why each target ran
- Re-run with ` + "`--continue`" + ` to build the remaining targets and collect every failure`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Check the CUE syntax of your config file
- Show the effective configuration:
~~~
$ apb config show
~~~`,
	}

	issues = map[Id]*Issue{
		projectNotFoundIssue.Id():         projectNotFoundIssue,
		projectParseErrorIssue.Id():       projectParseErrorIssue,
		elementNotFoundIssue.Id():         elementNotFoundIssue,
		commandNotFoundIssue.Id():         commandNotFoundIssue,
		defaultTargetUnresolvedIssue.Id(): defaultTargetUnresolvedIssue,
		dependencyCycleIssue.Id():         dependencyCycleIssue,
		libraryNotFoundIssue.Id():         libraryNotFoundIssue,
		targetFailedIssue.Id():            targetFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := maps.Keys(issues)
	slices.Sort(ids)
	result := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		result = append(result, issues[id])
	}
	return result
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
