// Package combogen implements the Legal-Combination Generator: per
// course, every (lecture, optional tutorial, optional lab) triple whose
// sessions do not mutually overlap. Grounded on original_source's
// model/src/schedule_algorithm/CourseLegalComb.cpp, generalized from
// nullable raw Group pointers to an explicit optional GroupRef.
package combogen

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
)

// option pairs an optional GroupRef with the sessions it stands for, so
// conflict checks never need to re-resolve the ref against the course.
// A nil ref with no sessions stands for "this kind is absent".
type option struct {
	ref      *course.GroupRef
	sessions []course.Session
}

// Generate returns every legal CourseSelection for the course at
// courseIndex within courses. A block-time pseudo-course (no lecture
// groups, at least one block group) yields exactly one selection; any
// other course with zero lecture groups yields no combinations; a course with zero total legal combinations causes
// the whole generation run for that selection to yield zero schedules,
// which the builder surfaces naturally by receiving an empty options
// slice for that course.
func Generate(courses []course.Course, courseIndex int, log *zap.Logger) []course.CourseSelection {
	c := courses[courseIndex]
	if len(c.LectureGroups) == 0 && len(c.BlockGroups) > 0 {
		// A block-time pseudo-course has no real lecture/tutorial/lab
		// groups to combine over; it contributes exactly one mandatory
		// selection so its sessions still participate in builder's
		// pairwise conflict pruning. The Lecture ref's GroupIndex is
		// resolved against BlockGroups, not LectureGroups — see
		// builder.sessionsOf and enrich.appendGroupItems.
		return []course.CourseSelection{
			{CourseIndex: courseIndex, Lecture: course.GroupRef{CourseIndex: courseIndex, GroupIndex: 0}},
		}
	}
	if len(c.LectureGroups) == 0 {
		log.Warn("course has no lecture groups, skipping", zap.String("course", c.RawID))
		return nil
	}

	tutorialOptions := optionalGroups(courseIndex, c.TutorialGroups)
	labOptions := optionalGroups(courseIndex, c.LabGroups)

	var combinations []course.CourseSelection
	for lectureIdx, lecture := range c.LectureGroups {
		if len(lecture.Sessions) == 0 {
			continue
		}
		lectureRef := course.GroupRef{CourseIndex: courseIndex, GroupIndex: lectureIdx}

		for _, tutorial := range tutorialOptions {
			if tutorial.ref != nil && timeutil.GroupsOverlap(lecture.Sessions, tutorial.sessions) {
				continue
			}
			for _, lab := range labOptions {
				if lab.ref != nil && timeutil.GroupsOverlap(lecture.Sessions, lab.sessions) {
					continue
				}
				if tutorial.ref != nil && lab.ref != nil && timeutil.GroupsOverlap(tutorial.sessions, lab.sessions) {
					continue
				}
				combinations = append(combinations, course.CourseSelection{
					CourseIndex: courseIndex,
					Lecture:     lectureRef,
					Tutorial:    tutorial.ref,
					Lab:         lab.ref,
				})
			}
		}
	}

	if len(combinations) == 0 {
		log.Warn("no legal combinations generated for course", zap.String("course", c.RawID))
	}
	return combinations
}

// optionalGroups returns one option per non-empty group, plus a single
// absent option when the course has no usable group of that kind —
// mirroring the tutorial/lab nullptr placeholder from the original, but
// as a typed optional rather than a sentinel pointer into live data.
func optionalGroups(courseIndex int, groups []course.Group) []option {
	var opts []option
	for i, g := range groups {
		if len(g.Sessions) == 0 {
			continue
		}
		opts = append(opts, option{
			ref:      &course.GroupRef{CourseIndex: courseIndex, GroupIndex: i},
			sessions: g.Sessions,
		})
	}
	if len(opts) == 0 {
		return []option{{}}
	}
	return opts
}
