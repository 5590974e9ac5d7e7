// Package entity turns decoded catalog elements into intermediate records.
//
// A Record is the denormalized form of one entity: scalar fields are
// strings, list fields are []string and structured sub-lists (sub-labels)
// are []Record. Absent scalars are omitted from the map; list fields are
// always present, possibly empty.
package entity

import xmlparser "discogs/internal/parser/xml"

// Record is one entity's fields keyed by namespaced field name.
type Record map[string]any

// Normalizer converts one top-level element into a Record. The boolean is
// false when the element lacks its identifying key and must be dropped.
type Normalizer interface {
	// Tag is the element name this normalizer consumes.
	Tag() string
	Normalize(n *xmlparser.Node) (Record, bool)
}

// String returns a scalar field, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Lookup returns a scalar field and whether it is present.
func (r Record) Lookup(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Strings returns a list field, or nil when absent.
func (r Record) Strings(key string) []string {
	l, _ := r[key].([]string)
	return l
}

// Subs returns a structured sub-list, or nil when absent.
func (r Record) Subs(key string) []Record {
	l, _ := r[key].([]Record)
	return l
}

// Merge copies fields of other that r does not already have. Existing keys
// are never overwritten.
func (r Record) Merge(other Record) Record {
	for k, v := range other {
		if _, ok := r[k]; !ok {
			r[k] = v
		}
	}
	return r
}

// PutText stores v under key unless it is empty.
func (r Record) PutText(key, v string) {
	if v != "" {
		r[key] = v
	}
}

// ForTag returns the normalizer for an entity tag.
func ForTag(tag string) (Normalizer, bool) {
	switch tag {
	case "label":
		return Label{}, true
	case "artist":
		return Artist{}, true
	case "release":
		return Release{}, true
	case "master":
		return Master{}, true
	}
	return nil, false
}
