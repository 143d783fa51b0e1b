package entities

import "fmt"

// Kind classifies a publication record's schema
type Kind int

// Record kinds
const (
	KindFileMetadata Kind = 1063
	KindRelease      Kind = 30063
	KindApp          Kind = 32267
)

func (k Kind) String() string {
	switch k {
	case KindFileMetadata:
		return "file-metadata"
	case KindRelease:
		return "release"
	case KindApp:
		return "app"
	default:
		return fmt.Sprintf("kind-%d", int(k))
	}
}

// Tag is a key followed by one or more values
type Tag []string

// Key returns the tag key, or "" for an empty tag
func (t Tag) Key() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the first value, or "" when there is none
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is an ordered tag sequence
type Tags []Tag

// First returns the first tag with the given key
func (ts Tags) First(key string) (Tag, bool) {
	for _, t := range ts {
		if t.Key() == key {
			return t, true
		}
	}
	return nil, false
}

// Values returns the first value of every tag with the given key, in order
func (ts Tags) Values(key string) []string {
	var out []string
	for _, t := range ts {
		if t.Key() == key {
			out = append(out, t.Value())
		}
	}
	return out
}

// PublicationRecord is a relay record. ID, PubKey and Sig are empty until the record is finalized.
// JSON field names follow the relay wire format.
type PublicationRecord struct {
	ID        string `json:"id,omitempty"`
	PubKey    string `json:"pubkey,omitempty"`
	CreatedAt int64  `json:"created_at"`
	Kind      Kind   `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig,omitempty"`
}

// IsFinal reports whether the record carries an identity and signature
func (r *PublicationRecord) IsFinal() bool {
	return r != nil && r.ID != "" && r.Sig != ""
}

// RecordSet is the three mutually-referencing records of one publication cycle
type RecordSet struct {
	App          *PublicationRecord `json:"app"`
	Release      *PublicationRecord `json:"release"`
	FileMetadata *PublicationRecord `json:"file_metadata"`
}

// IsFinal reports whether all three records are finalized
func (s *RecordSet) IsFinal() bool {
	return s != nil && s.App.IsFinal() && s.Release.IsFinal() && s.FileMetadata.IsFinal()
}

// RecordFilter selects prior records on a relay
type RecordFilter struct {
	Kinds  []Kind
	Search string
	Tags   map[string][]string // single-letter tag key -> accepted values
	Limit  int
}

// PublishOutcome is the relay's verdict on one record
type PublishOutcome struct {
	Kind     Kind
	RecordID string
	Accepted bool
	Reason   string
}
