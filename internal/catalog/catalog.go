// Package catalog turns incoming song payloads into persisted catalog entries
// and resolves lyrics for stored songs.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"songcatalog/internal/slug"
	"songcatalog/internal/store"
)

var (
	// ErrInvalidSong marks payloads rejected as bad input.
	ErrInvalidSong = errors.New("invalid song")
	// ErrLyricsNotFound indicates a known song without stored lyrics.
	ErrLyricsNotFound = errors.New("lyrics not found")
)

var validate = validator.New()

// Repository runs song assembly inside a single transaction.
type Repository interface {
	InTx(ctx context.Context, fn func(store.CatalogTx) error) error
}

// AlbumRef names an album by title.
type AlbumRef struct {
	Title string `json:"title" validate:"required"`
}

// NameRef names a writer or singer.
type NameRef struct {
	Name string `json:"name" validate:"required"`
}

// SongPayload is the write shape of a song, shared by the JSON API and the
// CSV importer. Scalar fields are pointers so an absent field can be told
// apart from a zero value.
type SongPayload struct {
	Name                string      `json:"name" validate:"required,max=200"`
	Album               *AlbumRef   `json:"album" validate:"required"`
	Writers             []NameRef   `json:"writers" validate:"dive"`
	Singers             []NameRef   `json:"singers" validate:"dive"`
	Rank                *int        `json:"rank"`
	YearReleased        *int        `json:"year_released"`
	SongTime            *string     `json:"song_time" validate:"omitempty,max=10"`
	SpotifyStreams      *int64      `json:"spotify_streams"`
	RollingStoneRanking *int        `json:"rolling_stone_ranking"`
	NMERanking          OptionalInt `json:"nme_ranking"`
	UGViews             *int        `json:"ug_views"`
	UGFavourites        *int        `json:"ug_favourites"`
	Lyrics              Sections    `json:"lyrics"`
}

func (p SongPayload) check() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSong, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSong)
	}
	if strings.TrimSpace(p.Album.Title) == "" {
		return fmt.Errorf("%w: album title is required", ErrInvalidSong)
	}
	if missing := p.missingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidSong, strings.Join(missing, ", "))
	}
	// Lyrics are keyed by the slug of the name.
	if strings.TrimSpace(p.Lyrics.First()) != "" && slug.Normalize(p.Name) == "" {
		return fmt.Errorf("%w: name %q cannot key lyrics", ErrInvalidSong, p.Name)
	}
	return nil
}

func (p SongPayload) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name    string
		present bool
	}{
		{"rank", p.Rank != nil},
		{"year_released", p.YearReleased != nil},
		{"song_time", p.SongTime != nil},
		{"spotify_streams", p.SpotifyStreams != nil},
		{"rolling_stone_ranking", p.RollingStoneRanking != nil},
		{"ug_views", p.UGViews != nil},
		{"ug_favourites", p.UGFavourites != nil},
	} {
		if !f.present {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OptionalInt keeps the raw text of an integer field that source data may
// leave blank or malformed. Decoding never fails; Value reports nil for
// anything that is not an integer.
type OptionalInt struct {
	raw string
}

// OptionalIntFrom wraps raw text such as a CSV cell.
func OptionalIntFrom(raw string) OptionalInt {
	return OptionalInt{raw: raw}
}

// UnmarshalJSON accepts numbers, strings and null.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*o = OptionalInt{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*o = OptionalInt{raw: raw}
	return nil
}

// Value returns the parsed integer, or nil when absent or malformed.
func (o OptionalInt) Value() *int {
	return parseOptionalInt(o.raw)
}

// parseOptionalInt is the only place where a conversion failure is treated as
// absence rather than an error.
func parseOptionalInt(raw string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

// Section is one named block of lyrics text.
type Section struct {
	Name string
	Text string
}

// Sections holds lyrics blocks in document order.
type Sections []Section

var errLyricsShape = errors.New("lyrics must be an object of section names to text")

// UnmarshalJSON decodes a JSON object into sections, keeping key order. A bare
// string is accepted as a single unnamed section.
func (s *Sections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		*s = Sections{{Text: t}}
		return nil
	case json.Delim:
		if t != '{' {
			return errLyricsShape
		}
	default:
		return errLyricsShape
	}

	var out Sections
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)

		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("lyrics section %q: %w", name, err)
		}
		out = append(out, Section{Name: name, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// First returns the text of the first section, the only one that is stored.
func (s Sections) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Text
}
