package session

import (
	"encoding/json"
	"sort"
)

// SelectionSet is the set of product ids chosen for partial checkout. Reads go
// through Filter so callers only ever see ids that exist in the current cart.
type SelectionSet map[string]struct{}

func NewSelectionSet(ids ...string) SelectionSet {
	s := make(SelectionSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s SelectionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SelectionSet) Len() int {
	return len(s)
}

// Toggle flips membership and reports whether id is selected afterwards.
func (s SelectionSet) Toggle(id string) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s SelectionSet) Remove(ids ...string) {
	for _, id := range ids {
		delete(s, id)
	}
}

// Filter returns the members of s that appear in ids, in ids order.
func (s SelectionSet) Filter(ids []string) []string {
	out := make([]string, 0, len(s))
	for _, id := range ids {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// Sorted returns every stored id in lexical order.
func (s SelectionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s SelectionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SelectionSet) UnmarshalJSON(raw []byte) error {
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*s = NewSelectionSet(ids...)
	return nil
}
