package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"songcatalog/internal/metrics"
)

// CSV column names. Aliases cover shortened headers seen in exported sheets.
const (
	colAlbum          = "Album"
	colSongName       = "Song Name"
	colRank           = "Rank"
	colYearReleased   = "Year Released"
	colSongTime       = "Song Time"
	colSpotifyStreams = "Spotify Streams"
	colRollingStone   = "Rolling Stone 100 Greatest Beatles Songs Ranking"
	colUGViews        = "UG Views"
	colUGFavourites   = "UG Favourites"
	colNME            = "NME Top 50 Beatles Songs Ranking"
	colSongWriter     = "Song Writer"
	colSinger         = "Singer"
)

var columnAliases = map[string]string{
	"Rolling Stone ranking": colRollingStone,
	"NME ranking":           colNME,
}

var requiredColumns = []string{
	colAlbum, colSongName, colRank, colYearReleased, colSongTime, colSpotifyStreams,
	colRollingStone, colUGViews, colUGFavourites, colSongWriter, colSinger,
}

// ErrInvalidCSV reports an unusable header or unreadable CSV input.
var ErrInvalidCSV = errors.New("invalid csv")

// ImportMode selects how the importer reacts to a bad row.
type ImportMode int

const (
	// ImportModeAbort stops at the first bad row; earlier rows stay persisted.
	ImportModeAbort ImportMode = iota
	// ImportModeContinue records bad rows and keeps going.
	ImportModeContinue
)

// ParseImportMode maps the on_error query value to an ImportMode.
func ParseImportMode(v string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "abort":
		return ImportModeAbort, nil
	case "continue":
		return ImportModeContinue, nil
	default:
		return ImportModeAbort, fmt.Errorf("unknown import mode %q", v)
	}
}

// RowError ties a failure to its 1-based data row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Processed int
	Failed    int
	Errors    []*RowError
}

// Importer feeds CSV rows to a Builder one at a time, in input order.
type Importer struct {
	builder *Builder
}

// NewImporter returns an Importer delegating each row to builder.
func NewImporter(builder *Builder) *Importer {
	return &Importer{builder: builder}
}

// Import reads CSV from r. In ImportModeAbort the first failing row stops the
// run and is returned as a *RowError; rows before it are already persisted.
func (im *Importer) Import(ctx context.Context, r io.Reader, mode ImportMode) (ImportResult, error) {
	var result ImportResult

	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, fmt.Errorf("%w: missing header row", ErrInvalidCSV)
		}
		return result, fmt.Errorf("%w: read header: %v", ErrInvalidCSV, err)
	}
	columns, err := indexColumns(header)
	if err != nil {
		return result, err
	}

	logger := log.Ctx(ctx)
	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++

		switch {
		case err == nil:
			err = im.importRecord(ctx, columns, record)
		case errors.Is(err, csv.ErrFieldCount):
			err = fmt.Errorf("%w: %v", ErrInvalidSong, err)
		default:
			// Quoting errors leave the reader position unreliable, so they
			// end the run in every mode.
			rowErr := result.fail(row, fmt.Errorf("%w: %v", ErrInvalidCSV, err))
			return result, rowErr
		}

		if err != nil {
			rowErr := result.fail(row, err)
			logger.Warn().Err(err).Int("row", row).Msg("csv row rejected")
			if mode == ImportModeAbort {
				return result, rowErr
			}
			continue
		}

		result.Processed++
		metrics.ImportRows.WithLabelValues("processed").Inc()
	}

	logger.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("csv import finished")

	return result, nil
}

func (im *Importer) importRecord(ctx context.Context, columns columnIndex, record []string) error {
	payload, err := columns.payload(record)
	if err != nil {
		return err
	}
	_, err = im.builder.Build(ctx, payload, SourceCSV)
	return err
}

func (r *ImportResult) fail(row int, err error) *RowError {
	rowErr := &RowError{Row: row, Err: err}
	r.Failed++
	r.Errors = append(r.Errors, rowErr)
	metrics.ImportRows.WithLabelValues("failed").Inc()
	return rowErr
}

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	columns := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrInvalidCSV, strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c columnIndex) value(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (c columnIndex) payload(record []string) (SongPayload, error) {
	var p SongPayload

	songTime := c.value(record, colSongTime)
	p.Name = c.value(record, colSongName)
	p.Album = &AlbumRef{Title: c.value(record, colAlbum)}
	p.SongTime = &songTime
	p.NMERanking = OptionalIntFrom(c.value(record, colNME))
	p.Writers = nameRefs(c.value(record, colSongWriter))
	p.Singers = nameRefs(c.value(record, colSinger))

	for _, f := range []struct {
		column string
		dst    **int
	}{
		{colRank, &p.Rank},
		{colYearReleased, &p.YearReleased},
		{colRollingStone, &p.RollingStoneRanking},
		{colUGViews, &p.UGViews},
		{colUGFavourites, &p.UGFavourites},
	} {
		v, err := c.int(record, f.column)
		if err != nil {
			return p, err
		}
		*f.dst = &v
	}

	streams := strings.ReplaceAll(c.value(record, colSpotifyStreams), ",", "")
	spotify, err := strconv.ParseInt(strings.TrimSpace(streams), 10, 64)
	if err != nil {
		return p, fmt.Errorf("%w: column %q: %v", ErrInvalidSong, colSpotifyStreams, err)
	}
	p.SpotifyStreams = &spotify

	return p, nil
}

// nameRefs yields no reference for a blank cell.
func nameRefs(cell string) []NameRef {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	return []NameRef{{Name: cell}}
}

func (c columnIndex) int(record []string, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(c.value(record, name)))
	if err != nil {
		return 0, fmt.Errorf("%w: column %q: %v", ErrInvalidSong, name, err)
	}
	return v, nil
}
