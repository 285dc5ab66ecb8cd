package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/guregu/null/v5"

	"github.com/Ucell/log-analyzer/model"
)

// linePattern finds status, rt and urt in that order anywhere in a line.
// Lines carrying the same tokens in another order do not match.
// TODO: decide whether reordered tokens should parse instead of being dropped.
var linePattern = regexp.MustCompile(`status=(\d+).*?rt=([\d.]+).*?urt=([\d.\-]+)`)

// Outcome classifies a single line read by ParseReader.
type Outcome int

const (
	Matched Outcome = iota
	NoMatch
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NoMatch:
		return "nomatch"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Parse extracts a record from one log line. ok is false when the line
// does not carry the three tokens; that is not an error. A token whose
// text cannot be converted yields a *MalformedFieldError. Digit runs that
// overflow saturate instead.
func Parse(line string) (rec model.Record, ok bool, err error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.Record{}, false, nil
	}

	status, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil && !outOfRange(err) {
		return model.Record{}, false, &MalformedFieldError{Field: "status", Value: m[1], Err: err}
	}

	rt, err := strconv.ParseFloat(m[2], 64)
	if err != nil && !outOfRange(err) {
		return model.Record{}, false, &MalformedFieldError{Field: "rt", Value: m[2], Err: err}
	}

	urt, err := parseUpstream(m[3])
	if err != nil {
		return model.Record{}, false, err
	}

	return model.Record{
		Status:               status,
		ResponseTime:         rt,
		UpstreamResponseTime: urt,
	}, true, nil
}

// parseUpstream maps "-" (no upstream contacted) and "" to an absent value.
func parseUpstream(raw string) (null.Float, error) {
	if raw == "" || raw == "-" {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && !outOfRange(err) {
		return null.Float{}, &MalformedFieldError{Field: "urt", Value: raw, Err: err}
	}
	return null.FloatFrom(v), nil
}

// outOfRange reports a well-formed number too large for its type. strconv
// still returns math.MaxUint64 or ±Inf for it, and that value is kept.
func outOfRange(err error) bool {
	return errors.Is(err, strconv.ErrRange)
}

// Options controls ParseReader.
type Options struct {
	// SkipMalformed excludes lines with unconvertible numbers instead of
	// aborting the read.
	SkipMalformed bool
	// OnLine, if set, is called once per line read.
	OnLine func(o Outcome, rec model.Record)
}

// Result holds the outcome of reading a whole log.
type Result struct {
	Records   []model.Record
	Lines     int
	Dropped   int
	Malformed int
}

// ParseReader reads newline-delimited lines of any length from r and
// parses each of them.
func ParseReader(r io.Reader, opts Options) (Result, error) {
	var res Result
	br := bufio.NewReader(r)

	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return res, fmt.Errorf("failed to read line %d: %w", res.Lines+1, readErr)
		}
		if line == "" && readErr != nil {
			return res, nil
		}

		res.Lines++
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		rec, ok, err := Parse(line)
		switch {
		case err != nil:
			if !opts.SkipMalformed {
				return res, &LineError{Line: res.Lines, Err: err}
			}
			res.Malformed++
			notify(opts, Malformed, model.Record{})
		case !ok:
			res.Dropped++
			notify(opts, NoMatch, model.Record{})
		default:
			res.Records = append(res.Records, rec)
			notify(opts, Matched, rec)
		}

		if readErr != nil {
			return res, nil
		}
	}
}

func notify(opts Options, o Outcome, rec model.Record) {
	if opts.OnLine != nil {
		opts.OnLine(o, rec)
	}
}
