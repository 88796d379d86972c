// Package selection implements the Selection-Filter and Block-Time
// Synthesizer: narrowing the parsed catalog to the courses a student
// picked, and turning their blocked windows into a synthetic course that
// the validator and builder treat like any other.
package selection

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
)

const maxSelectedCourses = 7

// ErrSelectionInvalid reports an empty or over-cap selection.
type ErrSelectionInvalid struct {
	Reason string
}

func (e *ErrSelectionInvalid) Error() string { return e.Reason }

// Filter returns the subset of catalog whose RawID is in rawIDs.
// Duplicate ids are collapsed before the cap is checked; more than
// maxSelectedCourses distinct ids invalidates the whole selection.
func Filter(catalog []course.Course, rawIDs []string) ([]course.Course, error) {
	distinct := make(map[string]bool, len(rawIDs))
	for _, id := range rawIDs {
		distinct[id] = true
	}
	if len(distinct) == 0 {
		return nil, &ErrSelectionInvalid{Reason: "selection is empty"}
	}
	if len(distinct) > maxSelectedCourses {
		return nil, &ErrSelectionInvalid{
			Reason: fmt.Sprintf("selection has %d distinct course ids, exceeding the cap of %d", len(distinct), maxSelectedCourses),
		}
	}

	var out []course.Course
	for _, c := range catalog {
		if distinct[c.RawID] {
			out = append(out, c)
		}
	}
	return out, nil
}

// BlockWindow is one user-specified unavailable interval.
type BlockWindow struct {
	Weekday int
	Start   int
	End     int
}

// ErrBlockConflict reports two block windows overlapping on the same
// weekday.
type ErrBlockConflict struct {
	First, Second BlockWindow
}

func (e *ErrBlockConflict) Error() string {
	return fmt.Sprintf("block window weekday %d %d-%d overlaps weekday %d %d-%d",
		e.First.Weekday, e.First.Start, e.First.End, e.Second.Weekday, e.Second.Start, e.Second.End)
}

// SynthesizeBlockCourse builds a synthetic Course of kind Block from the
// given windows. Windows must individually satisfy start < end and must
// be pairwise non-overlapping per weekday; the whole call fails on the
// first conflicting pair found. The returned course participates in
// conflict checks but is never emitted into any day bucket by the
// enricher.
func SynthesizeBlockCourse(windows []BlockWindow) (course.Course, error) {
	if len(windows) == 0 {
		return course.Course{}, nil
	}

	sessions := make([]course.Session, 0, len(windows))
	for _, w := range windows {
		if w.Start >= w.End {
			return course.Course{}, fmt.Errorf("block window weekday %d: start %d must be before end %d", w.Weekday, w.Start, w.End)
		}
		sessions = append(sessions, course.Session{
			Weekday:      w.Weekday,
			StartMinutes: w.Start,
			EndMinutes:   w.End,
			Building:     "BLOCK",
			Room:         "BLOCK",
		})
	}

	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			if timeutil.Overlap(sessions[i], sessions[j]) {
				return course.Course{}, &ErrBlockConflict{
					First:  windows[i],
					Second: windows[j],
				}
			}
		}
	}

	return course.Course{
		RawID:   "BLOCK",
		Name:    "Blocked time",
		Teacher: "",
		BlockGroups: []course.Group{
			{Kind: course.Block, Sessions: sessions},
		},
	}, nil
}
