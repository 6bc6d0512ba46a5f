package tracker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tracker is one public issue tracker hosted on the shared backend.
type Tracker struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id" yaml:"id"`
	URL  string `json:"url" yaml:"url"`
}

var builtinTrackers = []Tracker{
	{Name: "chromium", ID: "157", URL: "https://issues.chromium.org"},
	{Name: "fuchsia", ID: "183", URL: "https://issues.fuchsia.dev"},
}

// Registry resolves tracker names to IDs. The zero value knows the built-in
// trackers only.
type Registry struct {
	extra []Tracker
}

// NewRegistry layers extra trackers over the built-in ones. An extra entry
// with a built-in name replaces it.
func NewRegistry(extra ...Tracker) Registry {
	normalized := make([]Tracker, 0, len(extra))
	for _, candidate := range extra {
		candidate.Name = strings.ToLower(strings.TrimSpace(candidate.Name))
		candidate.ID = strings.TrimSpace(candidate.ID)
		candidate.URL = strings.TrimRight(strings.TrimSpace(candidate.URL), "/")
		if candidate.Name == "" || candidate.ID == "" {
			continue
		}
		normalized = append(normalized, candidate)
	}
	return Registry{extra: normalized}
}

// All returns every known tracker ordered by name.
func (r Registry) All() []Tracker {
	byName := make(map[string]Tracker, len(builtinTrackers)+len(r.extra))
	for _, known := range builtinTrackers {
		byName[known.Name] = known
	}
	for _, known := range r.extra {
		byName[known.Name] = known
	}

	all := make([]Tracker, 0, len(byName))
	for _, known := range byName {
		all = append(all, known)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func (r Registry) Lookup(name string) (Tracker, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i := len(r.extra) - 1; i >= 0; i-- {
		if r.extra[i].Name == key {
			return r.extra[i], true
		}
	}
	for _, known := range builtinTrackers {
		if known.Name == key {
			return known, true
		}
	}
	return Tracker{}, false
}

// ResolveIDs maps tracker names or numeric IDs to tracker IDs, dropping
// duplicates. An empty input means all public trackers and yields nil.
func (r Registry) ResolveIDs(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(values))
	ids := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}

		id := ""
		if known, ok := r.Lookup(trimmed); ok {
			id = known.ID
		} else if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil && numeric > 0 {
			id = strconv.FormatInt(numeric, 10)
		} else {
			return nil, &Error{
				Code:    ErrorCodeInvalidInput,
				Message: fmt.Sprintf("unknown tracker %q", trimmed),
			}
		}

		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}
