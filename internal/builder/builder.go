// Package builder implements the Schedule-Builder: cross-course
// depth-first backtracking over per-course legal combinations, pruning
// on the first conflict with the partial assignment. Grounded on
// original_source's model/src/schedule_algorithm/ScheduleBuilder.cpp,
// generalized from a single-threaded recursion into one concurrent
// branch per option of the first course, run through
// sourcegraph/conc/pool as internal/enrich runs its range partitions.
package builder

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
)

// ErrCancelled is returned when ctx is cancelled while branches are in
// flight, the only point at which the builder yields.
var ErrCancelled = errors.New("schedule build cancelled")

// Build produces every schedule satisfying pairwise non-overlap across
// options, one slice of legal combinations per participating course,
// ordered the same as courses. n = len(options) == 0 yields one empty
// schedule; any options[i] being empty yields zero schedules. Each of
// the first course's options roots an independent backtracking branch;
// branches run concurrently since they never share mutable state, and
// their results are concatenated in the caller's option order so the
// output is deterministic regardless of worker scheduling.
func Build(ctx context.Context, courses []course.Course, options [][]course.CourseSelection) ([]course.Schedule, error) {
	if len(options) == 0 {
		return []course.Schedule{{}}, nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > len(options[0]) {
		workers = len(options[0])
	}
	if workers < 1 {
		workers = 1
	}

	type branchResult struct {
		order int
		kept  []course.Schedule
	}

	p := pool.NewWithResults[branchResult]().WithMaxGoroutines(workers)
	for i, option := range options[0] {
		i, option := i, option
		p.Go(func() branchResult {
			select {
			case <-ctx.Done():
				return branchResult{order: i}
			default:
			}
			var branch []course.Schedule
			current := make([]course.CourseSelection, 1, len(options))
			current[0] = option
			backtrack(courses, options, 1, current, &branch)
			return branchResult{order: i, kept: branch}
		})
	}
	branches := p.Wait()

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].order < branches[j].order })

	var results []course.Schedule
	for _, branch := range branches {
		results = append(results, branch.kept...)
	}
	return results, nil
}

func backtrack(courses []course.Course, options [][]course.CourseSelection, depth int, current []course.CourseSelection, results *[]course.Schedule) {
	if depth == len(options) {
		kept := make([]course.CourseSelection, len(current))
		copy(kept, current)
		*results = append(*results, course.Schedule{Selections: kept})
		return
	}

	for _, option := range options[depth] {
		conflict := false
		for _, placed := range current {
			if hasConflict(courses, option, placed) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		current = append(current, option)
		backtrack(courses, options, depth+1, current, results)
		current = current[:len(current)-1]
	}
}

func hasConflict(courses []course.Course, a, b course.CourseSelection) bool {
	return timeutil.GroupsOverlap(sessionsOf(courses, a), sessionsOf(courses, b))
}

// sessionsOf flattens every session referenced by a selection's present
// groups (lecture always, tutorial/lab when chosen). A block-time
// pseudo-course has no LectureGroups; its Lecture ref resolves against
// BlockGroups instead, per combogen.Generate's block-course case.
func sessionsOf(courses []course.Course, sel course.CourseSelection) []course.Session {
	var out []course.Session
	c := courses[sel.Lecture.CourseIndex]
	if len(c.LectureGroups) == 0 && len(c.BlockGroups) > 0 {
		out = append(out, c.BlockGroups[sel.Lecture.GroupIndex].Sessions...)
	} else {
		out = append(out, c.LectureGroups[sel.Lecture.GroupIndex].Sessions...)
	}
	if sel.Tutorial != nil {
		out = append(out, courses[sel.Tutorial.CourseIndex].TutorialGroups[sel.Tutorial.GroupIndex].Sessions...)
	}
	if sel.Lab != nil {
		out = append(out, courses[sel.Lab.CourseIndex].LabGroups[sel.Lab.GroupIndex].Sessions...)
	}
	return out
}
