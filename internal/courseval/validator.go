// Package courseval implements the Course-Validator: it detects rooms
// double-booked across an entire course set, independently of which
// combination a student eventually picks. Grounded on original_source's
// controller/adapters/thread_workers/CourseValidator.cpp (the worker
// shape: cancellable, runs off the caller's goroutine) and
// model/src/parsers/validate_courses.cpp (the bucket-by-room-then-day
// conflict algorithm). The mutex-guarded cancel flag and signal/slot
// emission are replaced by a context.Context and a single result channel,
// and the worker is dispatched with sourcegraph/conc instead of a QThread.
package courseval

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
)

// Report is the outcome of a validation pass: every conflict found,
// expressed as a human-readable message per spec's message format.
type Report struct {
	Conflicts []string
	Cancelled bool
}

type roomKey struct {
	building, room string
}

type placedSession struct {
	rawID string
	sess  course.Session
}

// Validate buckets every session of every group of every course by
// (building, room), then by weekday, and reports overlaps within each
// weekday bucket in course-insertion order. It checks ctx between
// courses and between sessions, returning promptly (Cancelled=true,
// no conflicts) the moment cancellation is observed. Any panic in the
// worker is recovered and converted into an empty, non-cancelled report,
// mirroring the original's catch-all around the validation pass.
func Validate(ctx context.Context, courses []course.Course, log *zap.Logger) Report {
	resultCh := make(chan Report, 1)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic during course validation", zap.Any("recover", r))
				resultCh <- Report{}
			}
		}()
		resultCh <- runValidation(ctx, courses)
	})

	report := <-resultCh
	wg.Wait()
	return report
}

func runValidation(ctx context.Context, courses []course.Course) Report {
	buckets := make(map[roomKey]map[int][]placedSession)
	var allConflicts []string

	for _, c := range courses {
		select {
		case <-ctx.Done():
			return Report{Cancelled: true}
		default:
		}

		allConflicts = append(allConflicts, validateGroups(ctx, c.RawID, c.LectureGroups, buckets)...)
		allConflicts = append(allConflicts, validateGroups(ctx, c.RawID, c.TutorialGroups, buckets)...)
		allConflicts = append(allConflicts, validateGroups(ctx, c.RawID, c.LabGroups, buckets)...)
		allConflicts = append(allConflicts, validateGroups(ctx, c.RawID, c.BlockGroups, buckets)...)

		if ctx.Err() != nil {
			return Report{Cancelled: true}
		}
	}

	return Report{Conflicts: allConflicts}
}

func validateGroups(ctx context.Context, rawID string, groups []course.Group, buckets map[roomKey]map[int][]placedSession) []string {
	var conflicts []string
	for _, g := range groups {
		for _, s := range g.Sessions {
			select {
			case <-ctx.Done():
				return conflicts
			default:
			}
			key := roomKey{building: s.Building, room: s.Room}
			if buckets[key] == nil {
				buckets[key] = make(map[int][]placedSession)
			}
			dayBucket := buckets[key][s.Weekday]
			for _, existing := range dayBucket {
				if timeutil.Overlap(s, existing.sess) {
					conflicts = append(conflicts, fmt.Sprintf(
						"Course %s overlaps with %s in %s-%s on day %d (%s-%s vs %s-%s)",
						rawID, existing.rawID, s.Building, s.Room, s.Weekday,
						timeutil.FormatMinutes(s.StartMinutes), timeutil.FormatMinutes(s.EndMinutes),
						timeutil.FormatMinutes(existing.sess.StartMinutes), timeutil.FormatMinutes(existing.sess.EndMinutes),
					))
				}
			}
			buckets[key][s.Weekday] = append(dayBucket, placedSession{rawID: rawID, sess: s})
		}
	}
	return conflicts
}

// Timeout computes the validator's time budget per spec: the smaller of
// a fixed ceiling and a per-course allowance plus a fixed floor.
func Timeout(nCourses int) time.Duration {
	const fixedMax = 2 * time.Minute
	budget := time.Duration(nCourses)*100*time.Millisecond + 10*time.Second
	if budget > fixedMax {
		return fixedMax
	}
	return budget
}
