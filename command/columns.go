package command

import "strings"

// ColumnCategory is the closed set of canonical column roles free text maps
// onto.
type ColumnCategory string

const (
	CategoryTodo       ColumnCategory = "todo"
	CategoryInProgress ColumnCategory = "in_progress"
	CategoryReview     ColumnCategory = "review"
	CategoryDone       ColumnCategory = "done"
)

type columnAlias struct {
	fragment string
	category ColumnCategory
}

// Checked in order, substring containment, first match wins. Longer fragments
// come first so "to do" is not shadowed by "do".
var columnAliases = []columnAlias{
	{"in progress", CategoryInProgress},
	{"in_progress", CategoryInProgress},
	{"progress", CategoryInProgress},
	{"doing", CategoryInProgress},
	{"wip", CategoryInProgress},
	{"active", CategoryInProgress},
	{"review", CategoryReview},
	{"qa", CategoryReview},
	{"testing", CategoryReview},
	{"verify", CategoryReview},
	{"done", CategoryDone},
	{"complete", CategoryDone},
	{"finished", CategoryDone},
	{"shipped", CategoryDone},
	{"closed", CategoryDone},
	{"to do", CategoryTodo},
	{"todo", CategoryTodo},
	{"backlog", CategoryTodo},
	{"inbox", CategoryTodo},
}

// ResolveColumnCategory maps free text ("doing", "In Progress", "shipped")
// onto a canonical category.
func ResolveColumnCategory(text string) (ColumnCategory, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return "", false
	}
	for _, alias := range columnAliases {
		if strings.Contains(needle, alias.fragment) {
			return alias.category, true
		}
	}
	return "", false
}
