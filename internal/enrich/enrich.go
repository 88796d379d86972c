// Package enrich implements the Enricher: projecting each raw schedule
// into a day-indexed InformativeSchedule with aggregate statistics,
// discarding empty ones, in parallel. Grounded on original_source's
// model/src/parsers/ScheduleEnrichment.cpp (dayMap construction,
// discard-if-empty rule), generalized from an unordered_map keyed by
// weekday into a fixed [7]DayBucket array and from a single-threaded
// pass into range-partitioned workers via sourcegraph/conc/pool.
package enrich

import (
	"context"
	"runtime"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

const minRangeSize = 64

// Enrich projects every raw schedule into an InformativeSchedule,
// dropping those with no active day, and re-numbers the survivors with
// contiguous 1-based indices in input order. Work is partitioned into
// up to clamp(GOMAXPROCS,1,8) contiguous ranges when the input is large
// enough to be worth it; ranges are concatenated in order so the output
// is deterministic regardless of worker scheduling. Cancellation, if
// any, is observed only at range boundaries.
func Enrich(ctx context.Context, schedules []course.Schedule, courses []course.Course) []course.InformativeSchedule {
	ranges := partition(len(schedules))

	type rangeResult struct {
		order int
		kept  []course.InformativeSchedule
	}

	if len(ranges) <= 1 {
		kept := enrichRange(schedules, courses, 0, len(schedules))
		return reindex(kept)
	}

	p := pool.NewWithResults[rangeResult]().WithMaxGoroutines(len(ranges))
	for i, r := range ranges {
		i, r := i, r
		p.Go(func() rangeResult {
			select {
			case <-ctx.Done():
				return rangeResult{order: i}
			default:
			}
			return rangeResult{order: i, kept: enrichRange(schedules, courses, r.start, r.end)}
		})
	}
	results := p.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].order < results[j].order })

	var all []course.InformativeSchedule
	for _, r := range results {
		all = append(all, r.kept...)
	}
	return reindex(all)
}

type rangeBounds struct{ start, end int }

func partition(n int) []rangeBounds {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}
	if n < minRangeSize || workers <= 1 {
		return []rangeBounds{{0, n}}
	}
	rangeSize := n / workers
	if rangeSize < minRangeSize {
		workers = n / minRangeSize
		if workers < 1 {
			workers = 1
		}
		rangeSize = n / workers
	}

	var ranges []rangeBounds
	start := 0
	for w := 0; w < workers; w++ {
		end := start + rangeSize
		if w == workers-1 {
			end = n
		}
		ranges = append(ranges, rangeBounds{start, end})
		start = end
	}
	return ranges
}

func enrichRange(schedules []course.Schedule, courses []course.Course, start, end int) []course.InformativeSchedule {
	var kept []course.InformativeSchedule
	for i := start; i < end; i++ {
		if info, ok := enrichOne(schedules[i], courses); ok {
			kept = append(kept, info)
		}
	}
	return kept
}

func enrichOne(s course.Schedule, courses []course.Course) (course.InformativeSchedule, bool) {
	var week [7]course.DayBucket
	for i := range week {
		week[i].Weekday = i + 1
	}

	for _, sel := range s.Selections {
		c := courses[sel.Lecture.CourseIndex]
		appendGroupItems(&week, c, sel.Lecture, "lecture", courses)
		if sel.Tutorial != nil {
			appendGroupItems(&week, c, *sel.Tutorial, "tutorial", courses)
		}
		if sel.Lab != nil {
			appendGroupItems(&week, c, *sel.Lab, "lab", courses)
		}
	}

	active := false
	for _, b := range week {
		if b.Active() {
			active = true
			break
		}
	}
	if !active {
		return course.InformativeSchedule{}, false
	}

	info := course.InformativeSchedule{Week: week}
	for d := range info.Week {
		items := info.Week[d].Items
		sort.SliceStable(items, func(i, j int) bool { return items[i].Start < items[j].Start })
		info.Week[d].Items = items
	}

	computeStats(&info)
	return info, true
}

func appendGroupItems(week *[7]course.DayBucket, owner course.Course, ref course.GroupRef, kindLabel string, courses []course.Course) {
	c := courses[ref.CourseIndex]
	if kindLabel == "lecture" && len(c.LectureGroups) == 0 {
		// Block-time pseudo-course: its Lecture ref resolves against
		// BlockGroups for conflict pruning only and is never rendered
		// into a day bucket.
		return
	}
	var group course.Group
	switch kindLabel {
	case "lecture":
		group = c.LectureGroups[ref.GroupIndex]
	case "tutorial":
		group = c.TutorialGroups[ref.GroupIndex]
	case "lab":
		group = c.LabGroups[ref.GroupIndex]
	}
	for _, s := range group.Sessions {
		item := course.ScheduleItem{
			CourseName: owner.Name,
			RawID:      owner.RawID,
			KindLabel:  kindLabel,
			Start:      s.StartMinutes,
			End:        s.EndMinutes,
			Building:   s.Building,
			Room:       s.Room,
		}
		week[s.Weekday-1].Items = append(week[s.Weekday-1].Items, item)
	}
}

func computeStats(info *course.InformativeSchedule) {
	amountDays := 0
	amountGaps := 0
	gapsMinutes := 0
	sumStart := 0
	sumEnd := 0

	for _, bucket := range info.Week {
		if !bucket.Active() {
			continue
		}
		amountDays++
		items := bucket.Items
		minStart := items[0].Start
		maxEnd := items[0].End
		for i, item := range items {
			if item.Start < minStart {
				minStart = item.Start
			}
			if item.End > maxEnd {
				maxEnd = item.End
			}
			if i > 0 {
				prevEnd := items[i-1].End
				if item.Start > prevEnd {
					amountGaps++
					gapsMinutes += item.Start - prevEnd
				}
			}
		}
		sumStart += minStart
		sumEnd += maxEnd
	}

	info.AmountDays = amountDays
	info.AmountGaps = amountGaps
	info.GapsTimeMinutes = gapsMinutes
	if amountDays > 0 {
		info.AvgStartMinutes = sumStart / amountDays
		info.AvgEndMinutes = sumEnd / amountDays
	}
}

func reindex(schedules []course.InformativeSchedule) []course.InformativeSchedule {
	for i := range schedules {
		schedules[i].Index = i + 1
	}
	return schedules
}
