package task

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldTitle returns the comparison key for a title: NFC-normalized,
// Unicode case-folded, with runs of whitespace collapsed.
func FoldTitle(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// MatchExact returns the tasks whose folded title equals the folded ref.
func MatchExact(tasks []Task, ref string) []Task {
	key := FoldTitle(ref)
	if key == "" {
		return nil
	}
	var out []Task
	for _, t := range tasks {
		if FoldTitle(t.Title) == key {
			out = append(out, t)
		}
	}
	return out
}

// MatchFuzzy returns the tasks whose folded title contains the folded ref
// as a run of whole words ("laundry" matches "Do laundry", "laun" does not).
// A longer ref never matches a shorter title.
func MatchFuzzy(tasks []Task, ref string) []Task {
	key := titleWords(ref)
	if len(key) == 0 {
		return nil
	}
	var out []Task
	for _, t := range tasks {
		if containsWords(titleWords(t.Title), key) {
			out = append(out, t)
		}
	}
	return out
}

// titleWords splits the folded title on anything that is not a letter or digit.
func titleWords(s string) []string {
	return strings.FieldsFunc(FoldTitle(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func containsWords(words, run []string) bool {
	for i := 0; i+len(run) <= len(words); i++ {
		if slices.Equal(words[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

// likeEscaper escapes LIKE wildcards for an ESCAPE '\' clause.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern is a LIKE pattern matching s literally anywhere in a column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// Sort orders tasks for listing: open before completed, then priority high
// to low, then newest first.
func Sort(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if a.Priority.rank() != b.Priority.rank() {
			return a.Priority.rank() > b.Priority.rank()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

// findByTitle implements Store.FindByTitle on top of FindMany so that every
// backend folds titles the same way.
func findByTitle(ctx context.Context, s Store, userID, title string) ([]Task, error) {
	all, err := s.FindMany(ctx, userID, Filter{})
	if err != nil {
		return nil, err
	}
	return MatchExact(all, title), nil
}

// findByIDOrTitle implements Store.FindByIDOrTitle: id first, then a unique
// exact title match.
func findByIDOrTitle(ctx context.Context, s Store, userID, ref string) (*Task, error) {
	t, err := s.FindByID(ctx, userID, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	matches, err := s.FindByTitle(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}
