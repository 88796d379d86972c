// Package parser turns the line-oriented course-DB text format into
// deduplicated course.Course records. Grounded on original_source's
// src/parsers/preParser.cpp, generalized from its exception/cerr flow
// into explicit error returns and an injected zap logger.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
)

const recordDelimiter = "$$$$"

var (
	rawIDPattern    = regexp.MustCompile(`^\d{5}$`)
	buildingPattern = regexp.MustCompile(`^\d{1,4}$`)
	roomPattern     = regexp.MustCompile(`^\d{1,3}$`)
)

// Result is the outcome of a Parse call: a deduplicated set of courses
// plus the human-readable problems collected along the way. Diagnostics
// never abort the pass by themselves; Courses is empty only when no
// record survived.
type Result struct {
	Courses     []course.Course
	Diagnostics []course.ValidationError
}

// Parse reads UTF-8 text from r and returns every course record that
// passes validation. Malformed records and groups are dropped with a
// logged warning rather than aborting the whole parse.
func Parse(r io.Reader, log *zap.Logger) Result {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := make(map[string]bool)
	var result Result
	nextID := 0

	for {
		rec, ok := readRecord(scanner)
		if !ok {
			break
		}
		c, diag, ok := parseRecord(rec, log, &result.Diagnostics)
		if diag.Message != "" {
			result.Diagnostics = append(result.Diagnostics, diag)
		}
		if !ok {
			continue
		}
		if seen[c.RawID] {
			msg := fmt.Sprintf("duplicate course id %s: skipping", c.RawID)
			log.Warn(msg)
			result.Diagnostics = append(result.Diagnostics, course.ValidationError{
				Message: msg, Category: course.CategoryBadTime,
			})
			continue
		}
		seen[c.RawID] = true
		c.ID = nextID
		nextID++
		result.Courses = append(result.Courses, c)
	}

	if err := scanner.Err(); err != nil {
		log.Error("parser scan failure", zap.Error(err))
		result.Diagnostics = append(result.Diagnostics, course.ValidationError{
			Message: fmt.Sprintf("input stream error: %v", err), Category: course.CategorySystem,
		})
	}

	return result
}

// record is the raw line group between two $$$$ delimiters (or EOF).
type record struct {
	lines []string
}

func readRecord(scanner *bufio.Scanner) (record, bool) {
	var lines []string
	read := false
	for scanner.Scan() {
		read = true
		line := scanner.Text()
		if line == recordDelimiter {
			return record{lines: lines}, true
		}
		lines = append(lines, line)
	}
	if !read || len(lines) == 0 {
		return record{}, false
	}
	return record{lines: lines}, true
}

func parseRecord(rec record, log *zap.Logger, diags *[]course.ValidationError) (course.Course, course.ValidationError, bool) {
	lines := rec.lines
	if len(lines) < 3 {
		return course.Course{}, course.ValidationError{
			Message:  "record shorter than the mandatory name/id/teacher header: dropped",
			Category: course.CategoryBadTime,
		}, false
	}

	name := lines[0]
	rawID := strings.TrimSpace(lines[1])
	if !rawIDPattern.MatchString(rawID) {
		msg := fmt.Sprintf("course %q: id %q is not 5 decimal digits, dropping record", name, rawID)
		log.Warn(msg)
		return course.Course{}, course.ValidationError{Message: msg, Category: course.CategoryBadTime}, false
	}
	teacher := lines[2]

	c := course.Course{Name: name, RawID: rawID, Teacher: teacher}

	for _, line := range lines[3:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kind, ok := kindForPrefix(line)
		if !ok {
			log.Warn("unknown group-line prefix: skipping course", zap.String("course", rawID), zap.String("line", line))
			return course.Course{}, course.ValidationError{
				Message:  fmt.Sprintf("course %s: unknown group prefix in %q", rawID, line),
				Category: course.CategoryBadTime,
			}, false
		}
		sessions, bad := parseGroupLine(line, log, rawID)
		for _, b := range bad {
			log.Warn(b.Message)
			*diags = append(*diags, b)
		}
		if len(sessions) == 0 {
			continue
		}
		group := course.Group{Kind: kind, Sessions: sessions}
		switch kind {
		case course.Lecture:
			c.LectureGroups = append(c.LectureGroups, group)
		case course.Tutorial:
			c.TutorialGroups = append(c.TutorialGroups, group)
		case course.Lab:
			c.LabGroups = append(c.LabGroups, group)
		}
	}

	if len(c.LectureGroups) == 0 {
		msg := fmt.Sprintf("course %s: no lecture groups after parsing, dropping", rawID)
		log.Warn(msg)
		return course.Course{}, course.ValidationError{Message: msg, Category: course.CategoryBadTime}, false
	}
	if len(c.LectureGroups)+len(c.TutorialGroups)+len(c.LabGroups) == 0 {
		msg := fmt.Sprintf("course %s: no groups of any kind, dropping", rawID)
		log.Warn(msg)
		return course.Course{}, course.ValidationError{Message: msg, Category: course.CategoryBadTime}, false
	}

	return c, course.ValidationError{}, true
}

func kindForPrefix(line string) (course.Kind, bool) {
	if len(line) < 2 {
		return "", false
	}
	switch line[0:1] {
	case "L":
		return course.Lecture, true
	case "T":
		return course.Tutorial, true
	case "M":
		return course.Lab, true
	default:
		return "", false
	}
}

// parseGroupLine parses one "K S,d,hh:mm,hh:mm,b,r[ S,...]*" line into
// one Group's worth of sessions. A malformed descriptor is warned about
// and skipped; the rest of the line continues to parse.
func parseGroupLine(line string, log *zap.Logger, rawID string) ([]course.Session, []course.ValidationError) {
	body := strings.TrimSpace(line[1:])
	body = strings.TrimPrefix(body, " ")
	parts := strings.Split(body, " S,")

	var sessions []course.Session
	var diagnostics []course.ValidationError
	for i, part := range parts {
		descriptor := part
		if i == 0 {
			descriptor = strings.TrimPrefix(descriptor, "S,")
		}
		s, err := parseSessionDescriptor(descriptor)
		if err != nil {
			msg := fmt.Sprintf("course %s: malformed session %q: %v", rawID, descriptor, err)
			diagnostics = append(diagnostics, course.ValidationError{Message: msg, Category: course.CategoryBadTime})
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, diagnostics
}

func parseSessionDescriptor(descriptor string) (course.Session, error) {
	fields := strings.Split(descriptor, ",")
	if len(fields) != 5 {
		return course.Session{}, fmt.Errorf("expected 5 comma-separated fields, got %d", len(fields))
	}
	weekday, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || weekday < 1 || weekday > 7 {
		return course.Session{}, fmt.Errorf("weekday %q out of range 1..7", fields[0])
	}
	start, err := timeutil.ToMinutes(strings.TrimSpace(fields[1]))
	if err != nil {
		return course.Session{}, err
	}
	end, err := timeutil.ToMinutes(strings.TrimSpace(fields[2]))
	if err != nil {
		return course.Session{}, err
	}
	if start >= end {
		return course.Session{}, fmt.Errorf("start %s must be before end %s", fields[1], fields[2])
	}
	building := strings.TrimSpace(fields[3])
	if !buildingPattern.MatchString(building) {
		return course.Session{}, fmt.Errorf("building code %q is not 1-4 digits", building)
	}
	room := strings.TrimSpace(fields[4])
	if !roomPattern.MatchString(room) {
		return course.Session{}, fmt.Errorf("room code %q is not 1-3 digits", room)
	}
	return course.Session{
		Weekday:      weekday,
		StartMinutes: start,
		EndMinutes:   end,
		Building:     building,
		Room:         room,
	}, nil
}
