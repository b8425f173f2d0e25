package swc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"neurite/internal/model"
)

// commentMarker starts an ignored line, per the CNIC SWC convention.
const commentMarker = "#"

// fieldCount is id, kind, x, y, z, radius, parent_id.
const fieldCount = 7

// ParseError reports a malformed SWC line. Duplicate ids are not a parse
// concern; they are rejected by the topology builder.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("swc: line %d: %s", e.Line, e.Msg)
}

// Options controls parsing beyond the baseline convention.
type Options struct {
	// Strict turns a zero radius on a non-endpoint record into a parse
	// failure instead of leaving it for the builder to warn about.
	Strict bool
}

// Parse reads SWC records from r in file order. Comment and blank lines are
// skipped; any malformed line aborts with a *ParseError naming it.
func Parse(r io.Reader) ([]model.Record, error) {
	return ParseWith(r, Options{})
}

// ParseWith is Parse with explicit Options.
func ParseWith(r io.Reader, opts Options) ([]model.Record, error) {
	scanner := bufio.NewScanner(r)
	var records []model.Record
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, commentMarker) {
			continue
		}
		rec, err := parseLine(text, line)
		if err != nil {
			return nil, err
		}
		if opts.Strict && rec.Radius == 0 && rec.Kind != model.KindEndPoint {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("zero radius for non-endpoint id %d", rec.ID)}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("swc: read: %w", err)
	}
	return records, nil
}

// ParseFile parses the SWC file at path.
func ParseFile(path string, opts Options) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ParseWith(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func parseLine(text string, line int) (model.Record, error) {
	fields := strings.Fields(text)
	if len(fields) != fieldCount {
		return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields))}
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("invalid id %q", fields[0])}
	}
	if id < 0 {
		return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("negative id %d", id)}
	}

	rawKind, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("invalid kind %q", fields[1])}
	}

	coords := make([]float64, 4)
	for i, name := range []string{"x", "y", "z", "radius"} {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("invalid %s %q", name, fields[2+i])}
		}
		coords[i] = v
	}

	parentID, err := strconv.Atoi(fields[6])
	if err != nil {
		return model.Record{}, &ParseError{Line: line, Msg: fmt.Sprintf("invalid parent id %q", fields[6])}
	}

	return model.Record{
		ID:       id,
		Kind:     model.KindFromCode(rawKind),
		RawKind:  rawKind,
		X:        coords[0],
		Y:        coords[1],
		Z:        coords[2],
		Radius:   coords[3],
		ParentID: parentID,
	}, nil
}

// CountKinds tallies records per structure kind, keyed by Kind.String.
func CountKinds(records []model.Record) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Kind.String()]++
	}
	return counts
}
