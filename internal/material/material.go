package material

import (
	"github.com/google/uuid"
)

type Kind string

const (
	KindFile Kind = "file"
	KindURL  Kind = "url"
)

// Item is one uploaded file or added URL. ID is assigned locally when the
// item is first seen and survives resyncs; Source is what the server knows.
type Item struct {
	ID     string
	Kind   Kind
	Source string
}

// Set is the material list of a single context
type Set struct {
	Files []Item
	URLs  []Item
}

// FromLists builds a Set from the server lists. Items already present in
// prev with the same kind and source keep their ids, matched in order so
// duplicate sources map one to one.
func FromLists(files, urls []string, prev Set) Set {
	return Set{
		Files: reconcile(KindFile, files, prev.Files),
		URLs:  reconcile(KindURL, urls, prev.URLs),
	}
}

func reconcile(kind Kind, sources []string, prev []Item) []Item {
	known := make(map[string][]string, len(prev))
	for _, it := range prev {
		known[it.Source] = append(known[it.Source], it.ID)
	}

	items := make([]Item, 0, len(sources))
	for _, src := range sources {
		var id string
		if ids := known[src]; len(ids) > 0 {
			id, known[src] = ids[0], ids[1:]
		} else {
			id = uuid.NewString()
		}
		items = append(items, Item{ID: id, Kind: kind, Source: src})
	}
	return items
}

func (s Set) IsEmpty() bool {
	return len(s.Files) == 0 && len(s.URLs) == 0
}

func (s Set) Len() int {
	return len(s.Files) + len(s.URLs)
}

// FileNames returns the file sources; never nil so it encodes as []
func (s Set) FileNames() []string {
	return sources(s.Files)
}

// URLStrings returns the url sources; never nil so it encodes as []
func (s Set) URLStrings() []string {
	return sources(s.URLs)
}

func sources(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Source)
	}
	return out
}

// At returns the item of the given kind at index
func (s Set) At(kind Kind, index int) (Item, bool) {
	items := s.Files
	if kind == KindURL {
		items = s.URLs
	}
	if index < 0 || index >= len(items) {
		return Item{}, false
	}
	return items[index], true
}

// Find looks an item up by id
func (s Set) Find(id string) (Item, bool) {
	for _, it := range s.Files {
		if it.ID == id {
			return it, true
		}
	}
	for _, it := range s.URLs {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Without returns a copy of s with the item id removed
func (s Set) Without(id string) (Set, bool) {
	files, removedFile := without(s.Files, id)
	urls, removedURL := without(s.URLs, id)
	return Set{Files: files, URLs: urls}, removedFile || removedURL
}

func without(items []Item, id string) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	removed := false
	for _, it := range items {
		if it.ID == id {
			removed = true
			continue
		}
		out = append(out, it)
	}
	return out, removed
}

// Clone returns a deep copy
func (s Set) Clone() Set {
	return Set{
		Files: append([]Item(nil), s.Files...),
		URLs:  append([]Item(nil), s.URLs...),
	}
}
