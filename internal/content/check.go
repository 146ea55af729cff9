package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Entry is one chapter of a collection.
type Entry struct {
	Collection string
	Slug       string
	Path       string
	Book       Book
}

// Issue is one problem found by Check. Warnings do not fail a check.
type Issue struct {
	Path    string
	Message string
	Warning bool
}

func (i Issue) String() string {
	level := "error"
	if i.Warning {
		level = "warning"
	}
	return fmt.Sprintf("%s: %s: %s", i.Path, level, i.Message)
}

// Report is the outcome of checking a content root.
type Report struct {
	Entries []Entry
	Issues  []Issue
}

// OK reports whether the check found no errors.
func (r *Report) OK() bool {
	for _, i := range r.Issues {
		if !i.Warning {
			return false
		}
	}
	return true
}

// Sorted returns the published entries of collection in reading order.
func (r *Report) Sorted(collection string) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Collection == collection && !e.Book.Draft {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Book.Order != out[j].Book.Order {
			return out[i].Book.Order < out[j].Book.Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func isChapter(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// Check reads every chapter under root/koBook and root/enBook and validates
// it. A missing collection directory is not an error.
func Check(root string) (*Report, error) {
	r := &Report{}
	for _, coll := range Collections {
		dir := filepath.Join(root, coll)
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isChapter(d.Name()) {
				return nil
			}
			r.checkFile(coll, dir, p)
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}
	r.checkOrder()
	return r, nil
}

func (r *Report) checkFile(coll, dir, p string) {
	rel, _ := filepath.Rel(dir, p)
	slug := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

	src, err := os.ReadFile(p)
	if err != nil {
		r.Issues = append(r.Issues, Issue{Path: p, Message: err.Error()})
		return
	}
	parsed, err := Parse(src)
	if err != nil {
		r.Issues = append(r.Issues, Issue{Path: p, Message: err.Error()})
		return
	}

	for _, key := range parsed.Missing {
		r.Issues = append(r.Issues, Issue{Path: p, Message: fmt.Sprintf("required field %q is missing", key)})
	}
	for _, key := range parsed.Unknown {
		r.Issues = append(r.Issues, Issue{Path: p, Message: fmt.Sprintf("unknown field %q is ignored", key), Warning: true})
	}
	b := parsed.Book
	if len(parsed.Missing) == 0 && strings.TrimSpace(b.Title) == "" {
		r.Issues = append(r.Issues, Issue{Path: p, Message: "title is empty"})
	}
	if b.Date != nil && b.Updated != nil && b.Updated.Before(*b.Date) {
		r.Issues = append(r.Issues, Issue{Path: p, Message: "updated is before date"})
	}

	r.Entries = append(r.Entries, Entry{Collection: coll, Slug: slug, Path: p, Book: b})
}

// checkOrder reports published chapters of one collection sharing an order.
func (r *Report) checkOrder() {
	for _, coll := range Collections {
		byOrder := map[float64][]string{}
		for _, e := range r.Sorted(coll) {
			byOrder[e.Book.Order] = append(byOrder[e.Book.Order], e.Slug)
		}
		orders := make([]float64, 0, len(byOrder))
		for o := range byOrder {
			orders = append(orders, o)
		}
		sort.Float64s(orders)
		for _, o := range orders {
			if slugs := byOrder[o]; len(slugs) > 1 {
				r.Issues = append(r.Issues, Issue{
					Path:    coll,
					Message: fmt.Sprintf("order %s is shared by %s", strconv.FormatFloat(o, 'f', -1, 64), strings.Join(slugs, ", ")),
				})
			}
		}
	}
}
