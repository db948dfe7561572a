package models

import (
	"sort"
	"strconv"
)

// TagKind discriminates the closed set of tag value types
type TagKind int

const (
	TagString TagKind = iota
	TagNumber
)

// TagValue is a closed tagged-value variant. Reconciliation logic can switch
// on Kind exhaustively instead of inspecting runtime types.
type TagValue struct {
	Kind TagKind `json:"kind"`
	Str  string  `json:"str,omitempty"`
	Num  float64 `json:"num,omitempty"`
}

// String creates a string tag value
func String(s string) TagValue {
	return TagValue{Kind: TagString, Str: s}
}

// Number creates a numeric tag value
func Number(n float64) TagValue {
	return TagValue{Kind: TagNumber, Num: n}
}

// Text returns the value rendered as a string, the form it takes inside a
// LIST-INFO subchunk
func (v TagValue) Text() string {
	switch v.Kind {
	case TagNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Str
	}
}

// Equal reports whether two tag values are identical
func (v TagValue) Equal(o TagValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind == TagNumber {
		return v.Num == o.Num
	}
	return v.Str == o.Str
}

// Well-known tag fields. The map gives the RIFF INFO subchunk ID each field
// is stored under inside the audio file.
const (
	TagTitle    = "title"
	TagArtist   = "artist"
	TagLocation = "location"
	TagNotes    = "notes"
	TagRating   = "rating"
	TagDate     = "date"
	TagSoftware = "software"
	TagEngineer = "engineer"
)

// WellKnownFields maps logical tag keys to RIFF INFO identifiers
var WellKnownFields = map[string]string{
	TagTitle:    "INAM",
	TagArtist:   "IART",
	TagLocation: "IARL",
	TagNotes:    "ICMT",
	TagRating:   "IRTG",
	TagDate:     "ICRD",
	TagSoftware: "ISFT",
	TagEngineer: "IENG",
}

// infoIDToField is the reverse of WellKnownFields
var infoIDToField = func() map[string]string {
	m := make(map[string]string, len(WellKnownFields))
	for field, id := range WellKnownFields {
		m[id] = field
	}
	return m
}()

// FieldForInfoID returns the logical key for a RIFF INFO identifier. Unknown
// identifiers map to themselves so foreign keys survive a round trip.
func FieldForInfoID(id string) string {
	if field, ok := infoIDToField[id]; ok {
		return field
	}
	return id
}

// InfoIDForField returns the RIFF INFO identifier for a logical tag key.
func InfoIDForField(field string) string {
	if id, ok := WellKnownFields[field]; ok {
		return id
	}
	return field
}

// IsEditableField reports whether a tag key is one the application edits.
// Foreign keys coming from the recorder are carried but never reconciled
// sidecar-first.
func IsEditableField(key string) bool {
	_, ok := WellKnownFields[key]
	return ok
}

// TagSet is the reconciled tag mapping for one asset
type TagSet struct {
	Values map[string]TagValue `json:"values"`
}

// NewTagSet creates an empty tag set
func NewTagSet() TagSet {
	return TagSet{Values: make(map[string]TagValue)}
}

// Get returns a tag value and whether it exists
func (t TagSet) Get(key string) (TagValue, bool) {
	v, ok := t.Values[key]
	return v, ok
}

// Set stores a tag value
func (t TagSet) Set(key string, v TagValue) {
	t.Values[key] = v
}

// Delete removes a tag value
func (t TagSet) Delete(key string) {
	delete(t.Values, key)
}

// Len returns the number of tags in the set
func (t TagSet) Len() int {
	return len(t.Values)
}

// Clone returns an independent copy of the tag set
func (t TagSet) Clone() TagSet {
	c := NewTagSet()
	for k, v := range t.Values {
		c.Values[k] = v
	}
	return c
}

// Keys returns the tag keys in deterministic order
func (t TagSet) Keys() []string {
	keys := make([]string, 0, len(t.Values))
	for k := range t.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether two tag sets hold the same keys and values
func (t TagSet) Equal(o TagSet) bool {
	if len(t.Values) != len(o.Values) {
		return false
	}
	for k, v := range t.Values {
		ov, ok := o.Values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
