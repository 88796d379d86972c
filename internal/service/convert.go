package service

import (
	"github.com/noah-isme/sma-adp-api/internal/course"
	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/timeutil"
	"github.com/noah-isme/sma-adp-api/pkg/export"
)

func toInformativeResponse(s course.InformativeSchedule) dto.InformativeScheduleResponse {
	week := make([]dto.DayBucketResponse, 0, 7)
	for _, bucket := range s.Week {
		if !bucket.Active() {
			continue
		}
		items := make([]dto.ScheduleItemResponse, 0, len(bucket.Items))
		for _, item := range bucket.Items {
			items = append(items, dto.ScheduleItemResponse{
				CourseName: item.CourseName,
				RawID:      item.RawID,
				Kind:       item.KindLabel,
				Start:      timeutil.FormatMinutes(item.Start),
				End:        timeutil.FormatMinutes(item.End),
				Building:   item.Building,
				Room:       item.Room,
			})
		}
		week = append(week, dto.DayBucketResponse{Weekday: bucket.Weekday, Items: items})
	}

	return dto.InformativeScheduleResponse{
		Index:           s.Index,
		Week:            week,
		AmountDays:      s.AmountDays,
		AmountGaps:      s.AmountGaps,
		GapsTimeMinutes: s.GapsTimeMinutes,
		AvgStartMinutes: s.AvgStartMinutes,
		AvgEndMinutes:   s.AvgEndMinutes,
	}
}

func toInformativeResponses(schedules []course.InformativeSchedule) []dto.InformativeScheduleResponse {
	out := make([]dto.InformativeScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toInformativeResponse(s))
	}
	return out
}

func toDiagnosticResponses(diags []course.ValidationError) []dto.ValidationErrorResponse {
	if len(diags) == 0 {
		return nil
	}
	out := make([]dto.ValidationErrorResponse, 0, len(diags))
	for _, d := range diags {
		out = append(out, dto.ValidationErrorResponse{Message: d.Message, Category: string(d.Category)})
	}
	return out
}

// toDataset flattens one enriched schedule into a tabular export.Dataset,
// the adaptation point wiring pkg/export's CSV/PDF exporters.
func toDataset(s course.InformativeSchedule) export.Dataset {
	headers := []string{"weekday", "course", "rawId", "kind", "start", "end", "building", "room"}
	var rows []map[string]string
	for _, bucket := range s.Week {
		if !bucket.Active() {
			continue
		}
		for _, item := range bucket.Items {
			rows = append(rows, map[string]string{
				"weekday":  weekdayLabel(bucket.Weekday),
				"course":   item.CourseName,
				"rawId":    item.RawID,
				"kind":     item.KindLabel,
				"start":    timeutil.FormatMinutes(item.Start),
				"end":      timeutil.FormatMinutes(item.End),
				"building": item.Building,
				"room":     item.Room,
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

var weekdayNames = [8]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func weekdayLabel(weekday int) string {
	if weekday < 1 || weekday > 7 {
		return ""
	}
	return weekdayNames[weekday]
}
