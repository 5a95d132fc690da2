package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Common errors
var (
	ErrMalformedDocument = errors.New("document is not valid JSON")
	ErrInvalidEncoding   = errors.New("document is not valid UTF-8")
	ErrDocumentNotObject = errors.New("document is not a JSON object")
	ErrTracksMissing     = errors.New(`document has no "tracks" field`)
	ErrTracksNotArray    = errors.New(`"tracks" is not an array`)
	ErrTrackNotObject    = errors.New("track is not a JSON object")
)

// Field names managed by the backfill
const (
	FieldTracks   = "tracks"
	FieldLikes    = "likes"
	FieldDislikes = "dislikes"
)

// DefaultCounter is the value given to a missing counter
const DefaultCounter = json.Number("0")

// Track represents one music track. Only the two counters are interpreted;
// every other field is carried through untouched.
type Track struct {
	fields *Object
}

// Fields exposes the underlying ordered object
func (t *Track) Fields() *Object {
	return t.fields
}

// Get returns the raw value of a track field
func (t *Track) Get(key string) (any, bool) {
	return t.fields.Get(key)
}

// Missing reports which counters are absent
func (t *Track) Missing() (likes, dislikes bool) {
	return !t.fields.Has(FieldLikes), !t.fields.Has(FieldDislikes)
}

// Backfill adds the counters that are absent and reports which ones it added.
func (t *Track) Backfill() (likesAdded, dislikesAdded bool) {
	likesAdded = t.fields.SetDefault(FieldLikes, DefaultCounter)
	dislikesAdded = t.fields.SetDefault(FieldDislikes, DefaultCounter)
	return likesAdded, dislikesAdded
}

// Document is the top-level object holding the "tracks" array.
type Document struct {
	root   *Object
	tracks []*Track
}

// ParseDocument decodes data and checks it has the expected shape.
// Nothing is decoded until the raw bytes pass the shape checks.
func ParseDocument(data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %w at byte %d", ErrMalformedDocument, ErrInvalidEncoding, invalidUTF8Offset(data))
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformedDocument
	}
	if err := checkShape(gjson.ParseBytes(data)); err != nil {
		return nil, err
	}

	root := NewObject()
	if err := root.UnmarshalJSON(data); err != nil {
		if errors.Is(err, ErrDocumentNotObject) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return NewDocument(root)
}

func checkShape(doc gjson.Result) error {
	if !doc.IsObject() {
		return fmt.Errorf("%w: got %s", ErrDocumentNotObject, resultKind(doc))
	}

	tracks := doc.Get(FieldTracks)
	if !tracks.Exists() {
		return ErrTracksMissing
	}
	if !tracks.IsArray() {
		return fmt.Errorf("%w: got %s", ErrTracksNotArray, resultKind(tracks))
	}

	var err error
	i := 0
	tracks.ForEach(func(_, track gjson.Result) bool {
		if !track.IsObject() {
			err = fmt.Errorf("%w: index %d is %s", ErrTrackNotObject, i, resultKind(track))
			return false
		}
		i++
		return true
	})
	return err
}

func resultKind(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "object"
	case r.IsArray():
		return "array"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		return r.Type.String()
	}
}

func invalidUTF8Offset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// NewDocument wraps an already decoded root object
func NewDocument(root *Object) (*Document, error) {
	raw, ok := root.Get(FieldTracks)
	if !ok {
		return nil, ErrTracksMissing
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrTracksNotArray, kindOf(raw))
	}

	tracks := make([]*Track, 0, len(items))
	for i, item := range items {
		obj, ok := item.(*Object)
		if !ok || obj == nil {
			return nil, fmt.Errorf("%w: index %d is %s", ErrTrackNotObject, i, kindOf(item))
		}
		tracks = append(tracks, &Track{fields: obj})
	}

	return &Document{root: root, tracks: tracks}, nil
}

// Root returns the top-level object
func (d *Document) Root() *Object {
	return d.root
}

// Tracks returns the tracks in document order
func (d *Document) Tracks() []*Track {
	return d.tracks
}

// Backfill gives every track both counters, keeping values already present.
func (d *Document) Backfill() BackfillReport {
	report := BackfillReport{TotalTracks: len(d.tracks)}
	for _, track := range d.tracks {
		report.record(track.Backfill())
	}
	return report
}

// Inspect reports what Backfill would change without touching the document.
func (d *Document) Inspect() BackfillReport {
	report := BackfillReport{TotalTracks: len(d.tracks)}
	for _, track := range d.tracks {
		report.record(track.Missing())
	}
	return report
}

// MarshalJSON encodes the document with its original key order
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.root.MarshalJSON()
}

// BackfillReport summarizes a backfill or an inspection
type BackfillReport struct {
	TotalTracks   int `json:"total_tracks"`
	TracksChanged int `json:"tracks_changed"`
	LikesAdded    int `json:"likes_added"`
	DislikesAdded int `json:"dislikes_added"`
}

// Changed reports whether any counter was (or would be) added
func (r BackfillReport) Changed() bool {
	return r.TracksChanged > 0
}

func (r *BackfillReport) record(likes, dislikes bool) {
	if likes {
		r.LikesAdded++
	}
	if dislikes {
		r.DislikesAdded++
	}
	if likes || dislikes {
		r.TracksChanged++
	}
}
