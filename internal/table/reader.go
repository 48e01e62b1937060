package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadOptions describes the physical layout of a delimited source file.
// These values come from the configuration layer, never from the data.
type ReadOptions struct {
	// Sep is the field separator. Defaults to ';'.
	Sep rune
	// Encoding is the declared text encoding of the file: "utf-8",
	// "utf-8-sig" (byte-order mark stripped) or "latin1".
	Encoding string
	// SkipHeader drops N descriptive lines before the header.
	SkipHeader int
	// SkipFooter drops the last N lines of the file.
	SkipFooter int
	// HeaderRows is the number of header rows. Defaults to 1.
	HeaderRows int
}

// Raw is a parsed delimited file before header flattening: one or more
// header rows plus the data rows. Blank header cells are given synthetic
// "Unnamed: N" labels (level suffixed for rows past the first) so that
// downstream column naming is deterministic.
type Raw struct {
	Header [][]string
	Rows   [][]string
}

// Table collapses a single-row-header Raw into a Table.
func (r *Raw) Table() (*Table, error) {
	if len(r.Header) != 1 {
		return nil, &FormatError{Msg: fmt.Sprintf("expected 1 header row, got %d", len(r.Header))}
	}
	return New(r.Header[0], r.Rows), nil
}

// ReadFile opens and parses a delimited file.
func ReadFile(path string, opts ReadOptions) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	raw, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

// Read parses delimited text from r according to opts. Structural problems
// (undecodable text, ragged records, missing header rows) surface as
// FormatError.
func Read(r io.Reader, opts ReadOptions) (*Raw, error) {
	if opts.Sep == 0 {
		opts.Sep = ';'
	}
	if opts.HeaderRows == 0 {
		opts.HeaderRows = 1
	}

	decoded, err := decodeAll(r, opts.Encoding)
	if err != nil {
		return nil, &FormatError{Msg: "failed to decode input", Err: err}
	}

	lines := splitLines(decoded)
	if opts.SkipHeader > 0 {
		if opts.SkipHeader >= len(lines) {
			return nil, &FormatError{Msg: fmt.Sprintf("skip of %d header lines leaves no data", opts.SkipHeader)}
		}
		lines = lines[opts.SkipHeader:]
	}
	if opts.SkipFooter > 0 {
		if opts.SkipFooter >= len(lines) {
			return nil, &FormatError{Msg: fmt.Sprintf("skip of %d footer lines leaves no data", opts.SkipFooter)}
		}
		lines = lines[:len(lines)-opts.SkipFooter]
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.Comma = opts.Sep
	records, err := cr.ReadAll()
	if err != nil {
		return nil, &FormatError{Msg: "failed to parse delimited text", Err: err}
	}
	if len(records) < opts.HeaderRows {
		return nil, &FormatError{Msg: fmt.Sprintf("expected %d header rows, got %d rows total", opts.HeaderRows, len(records))}
	}

	header := records[:opts.HeaderRows]
	for lvl, row := range header {
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				if lvl == 0 {
					row[i] = fmt.Sprintf("Unnamed: %d", i)
				} else {
					row[i] = fmt.Sprintf("Unnamed: %d_level_%d", i, lvl)
				}
			}
		}
	}

	return &Raw{Header: header, Rows: records[opts.HeaderRows:]}, nil
}

// decodeAll reads all of r, converting from the declared encoding to UTF-8.
func decodeAll(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		// Nothing to transcode.
	case "utf-8-sig", "utf8-sig":
		r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	case "latin1", "latin-1", "iso-8859-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitLines splits decoded text into lines, tolerating CRLF endings and
// dropping trailing blank lines so footer skipping counts real lines.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
