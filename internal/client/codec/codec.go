// Package codec translates between the incident API's JSON wire format and
// the records in package models.
//
// Decoding is vocabulary-agnostic: status and urgency tokens are accepted in
// English or Spanish. Encoding of outbound bodies uses the Vocabulary the
// Codec was built with. Malformed input always surfaces as *DecodingError.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
)

// TimestampLayout is the fixed millisecond, zero-offset wire format.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Vocabulary selects the enum tokens written to the wire.
type Vocabulary string

const (
	English Vocabulary = "english"
	Spanish Vocabulary = "spanish"
)

var ErrUnknownVocabulary = errors.New("unknown wire vocabulary")

func ParseVocabulary(s string) (Vocabulary, error) {
	switch v := Vocabulary(strings.ToLower(strings.TrimSpace(s))); v {
	case English, Spanish:
		return v, nil
	case "":
		return English, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVocabulary, s)
}

// DecodingError reports a payload that does not match the expected schema.
type DecodingError struct {
	Entity string
	Err    error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Entity, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

func decodingError(entity string, err error) error {
	return &DecodingError{Entity: entity, Err: err}
}

// Codec encodes outbound payloads in a fixed vocabulary. The zero value
// encodes English.
type Codec struct {
	vocab Vocabulary
}

func New(vocab Vocabulary) *Codec {
	if vocab == "" {
		vocab = English
	}
	return &Codec{vocab: vocab}
}

func (c *Codec) Vocabulary() Vocabulary {
	if c == nil || c.vocab == "" {
		return English
	}
	return c.vocab
}

// EncodeStatus returns the wire token for s.
func (c *Codec) EncodeStatus(s models.Status) string {
	if c.Vocabulary() == Spanish {
		return s.Spanish()
	}
	return string(s)
}

// EncodeUrgency returns the wire token for u.
func (c *Codec) EncodeUrgency(u models.Urgency) string {
	if c.Vocabulary() == Spanish {
		return u.Spanish()
	}
	return string(u)
}

// FormatTimestamp renders t in TimestampLayout, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts TimestampLayout and falls back to RFC 3339 with an
// optional fractional part.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UTC(), nil
}

// timestamp is a wire date; null and "" decode to the zero time.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = timestamp{}
		return nil
	}
	v, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = timestamp(v)
	return nil
}

func (t timestamp) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(FormatTimestamp(time.Time(t)))
}

// userRef is a user reference that arrives as an id, null, or a nested user
// object carrying at least an id.
type userRef struct {
	ID   *int64
	Name string
	// nested marshals the reference as {"id", "username"} instead of an id.
	nested bool
}

type nestedUser struct {
	ID        *int64 `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (r *userRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = userRef{}
		return nil
	case len(b) > 0 && b[0] == '{':
		var u nestedUser
		if err := json.Unmarshal(b, &u); err != nil {
			return err
		}
		if u.ID == nil {
			return errors.New("user reference without id")
		}
		p := models.UserProfile{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
		*r = userRef{ID: u.ID, Name: p.FullName()}
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	*r = userRef{ID: &id}
	return nil
}

func (r userRef) MarshalJSON() ([]byte, error) {
	if r.ID == nil {
		return []byte("null"), nil
	}
	if r.nested {
		return json.Marshal(nestedUser{ID: r.ID, Username: r.Name})
	}
	return json.Marshal(*r.ID)
}

func (r userRef) id() int64 {
	if r.ID == nil {
		return 0
	}
	return *r.ID
}

func refOf(id *int64) userRef {
	if id == nil {
		return userRef{}
	}
	v := *id
	return userRef{ID: &v}
}
