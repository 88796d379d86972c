// Package filterengine implements the Filter/Sort Engine: metric
// predicates ANDed over enriched schedules, a single-key sort with O(n)
// direction-flip reuse, and the whitelisted SQL-predicate mode. The
// metric side is grounded on original_source's
// controller/adapters/filters/schedule_filter.cpp; the SQL validator is
// grounded on model/src/sched_bot/sql_validator.cpp, generalized from
// Qt's QRegularExpression/QString to the standard regexp and strings
// packages.
package filterengine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

// Criteria is the set of independently-enabled metric predicates from
// spec §4.9. Disabled criteria are vacuously true.
type Criteria struct {
	DaysToStudy struct {
		Enabled bool
		Value   int
	}
	TotalGaps struct {
		Enabled bool
		Value   int
	}
	MaxGapTime struct {
		Enabled bool
		Value   int
	}
	AvgDayStart struct {
		Enabled bool
		Value   int
	}
	AvgDayEnd struct {
		Enabled bool
		Value   int
	}
}

// Apply returns the subset of schedules matching every enabled
// criterion, preserving input order.
func Apply(schedules []course.InformativeSchedule, c Criteria) []course.InformativeSchedule {
	var out []course.InformativeSchedule
	for _, s := range schedules {
		if matches(s, c) {
			out = append(out, s)
		}
	}
	return out
}

func matches(s course.InformativeSchedule, c Criteria) bool {
	if c.DaysToStudy.Enabled && s.AmountDays > c.DaysToStudy.Value {
		return false
	}
	if c.TotalGaps.Enabled && s.AmountGaps > c.TotalGaps.Value {
		return false
	}
	if c.MaxGapTime.Enabled && maxSingleGap(s) > c.MaxGapTime.Value {
		return false
	}
	if c.AvgDayStart.Enabled && s.AmountDays > 0 && s.AvgStartMinutes < c.AvgDayStart.Value {
		return false
	}
	if c.AvgDayEnd.Enabled && s.AmountDays > 0 && s.AvgEndMinutes > c.AvgDayEnd.Value {
		return false
	}
	return true
}

func maxSingleGap(s course.InformativeSchedule) int {
	max := 0
	for _, bucket := range s.Week {
		if !bucket.Active() {
			continue
		}
		for i := 1; i < len(bucket.Items); i++ {
			gap := bucket.Items[i].Start - bucket.Items[i-1].End
			if gap > max {
				max = gap
			}
		}
	}
	return max
}

// SortKey identifies which field to order InformativeSchedules by.
type SortKey string

const (
	SortAmountDays SortKey = "amount_days"
	SortAmountGaps SortKey = "amount_gaps"
	SortGapsTime   SortKey = "gaps_time"
	SortAvgStart   SortKey = "avg_start"
	SortAvgEnd     SortKey = "avg_end"
)

// PriorSort records the key and direction of the previous sort call so
// Sort can detect a pure direction flip and reverse in place instead of
// re-sorting.
type PriorSort struct {
	Key       SortKey
	Ascending bool
}

// Sort orders schedules by key, ascending or descending. When prior
// is non-nil and names the same key with the opposite direction, the
// slice is reversed in place in O(n) instead of re-sorted. amount_days
// has a known range of 1..7 and is ordered with a counting sort;
// the remaining keys use a stable comparison sort so ties retain their
// prior relative order.
func Sort(schedules []course.InformativeSchedule, key SortKey, ascending bool, prior *PriorSort) []course.InformativeSchedule {
	if prior != nil && prior.Key == key && prior.Ascending != ascending {
		reverse(schedules)
		return schedules
	}

	if key == SortAmountDays {
		return countingSortByAmountDays(schedules, ascending)
	}

	less := comparator(key)
	if ascending {
		sort.SliceStable(schedules, func(i, j int) bool { return less(schedules[i], schedules[j]) })
	} else {
		sort.SliceStable(schedules, func(i, j int) bool { return less(schedules[j], schedules[i]) })
	}
	return schedules
}

func comparator(key SortKey) func(a, b course.InformativeSchedule) bool {
	switch key {
	case SortAmountGaps:
		return func(a, b course.InformativeSchedule) bool { return a.AmountGaps < b.AmountGaps }
	case SortGapsTime:
		return func(a, b course.InformativeSchedule) bool { return a.GapsTimeMinutes < b.GapsTimeMinutes }
	case SortAvgStart:
		return func(a, b course.InformativeSchedule) bool { return a.AvgStartMinutes < b.AvgStartMinutes }
	case SortAvgEnd:
		return func(a, b course.InformativeSchedule) bool { return a.AvgEndMinutes < b.AvgEndMinutes }
	default:
		return func(a, b course.InformativeSchedule) bool { return a.AmountDays < b.AmountDays }
	}
}

func countingSortByAmountDays(schedules []course.InformativeSchedule, ascending bool) []course.InformativeSchedule {
	const buckets = 8 // amount_days in 0..7
	var bucketed [buckets][]course.InformativeSchedule
	for _, s := range schedules {
		d := s.AmountDays
		if d < 0 {
			d = 0
		}
		if d >= buckets {
			d = buckets - 1
		}
		bucketed[d] = append(bucketed[d], s)
	}

	out := make([]course.InformativeSchedule, 0, len(schedules))
	if ascending {
		for d := 0; d < buckets; d++ {
			out = append(out, bucketed[d]...)
		}
	} else {
		for d := buckets - 1; d >= 0; d-- {
			out = append(out, bucketed[d]...)
		}
	}
	return out
}

func reverse(s []course.InformativeSchedule) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// ErrQueryInvalid reports an SQL-predicate rejected by ValidateSQLQuery.
type ErrQueryInvalid struct {
	Reason string
}

func (e *ErrQueryInvalid) Error() string { return e.Reason }

var (
	forbiddenKeywords = []string{
		"insert", "update", "delete", "drop", "create", "alter",
		"truncate", "grant", "revoke", "exec", "execute",
		"declare", "cast", "convert", "union", "into",
		"merge", "replace", "call", "do", "handler",
		"load", "rename", "optimize", "repair", "analyze",
		"check", "checksum", "restore", "backup",
		"show", "describe", "explain",
	}
	whitelistedTables = map[string]bool{
		"schedule": true, "schedule_set": true,
	}
	whitelistedColumns = map[string]bool{
		"schedule_index": true, "amount_days": true, "amount_gaps": true, "gaps_time": true,
		"avg_start": true, "avg_end": true, "id": true, "schedule_set_id": true,
		"created_at": true, "set_name": true, "source_file_ids_json": true, "schedule_count": true,
	}

	selectClausePattern   = regexp.MustCompile(`(?s)^select\s+(.+?)\s+from\s+(.+)$`)
	fromJoinTablePattern  = regexp.MustCompile(`\b(?:from|join)\s+(\w+)`)
	whereColumnPattern    = regexp.MustCompile(`\b([a-z_][a-z0-9_]*)\s*(?:=|<|>|!=|<=|>=)`)
)

func sanitizeComments(query string) string {
	var b strings.Builder
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			continue
		}
		if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func normalize(query string) string {
	sanitized := sanitizeComments(query)
	sanitized = strings.ToLower(sanitized)
	fields := strings.Fields(sanitized)
	return strings.Join(fields, " ")
}

// ValidateSQLQuery enforces spec §4.9's whitelist before any query
// reaches the store: single SELECT, schedule_index in the result,
// whitelisted tables and columns only, no forbidden keyword (even
// case-mixed or split by a comment; comments are stripped before the
// check), and parameter placeholders instead of inline literals.
func ValidateSQLQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return &ErrQueryInvalid{Reason: "query is empty"}
	}

	normalized := normalize(query)

	if !strings.HasPrefix(normalized, "select") {
		return &ErrQueryInvalid{Reason: "only SELECT queries are allowed"}
	}

	for _, kw := range forbiddenKeywords {
		if matchesWord(normalized, kw) {
			return &ErrQueryInvalid{Reason: fmt.Sprintf("query contains forbidden keyword %q", kw)}
		}
	}

	if strings.Contains(strings.TrimSuffix(normalized, ";"), ";") {
		return &ErrQueryInvalid{Reason: "only a single statement is allowed"}
	}

	match := selectClausePattern.FindStringSubmatch(normalized)
	if match == nil {
		return &ErrQueryInvalid{Reason: "query must be a SELECT ... FROM ... statement"}
	}
	selectClause, restClause := match[1], match[2]

	if strings.Contains(selectClause, "*") {
		return &ErrQueryInvalid{Reason: "wildcard select is not allowed"}
	}
	if !strings.Contains(selectClause, "schedule_index") {
		return &ErrQueryInvalid{Reason: "query must select schedule_index"}
	}

	for _, col := range splitColumns(selectClause) {
		if !whitelistedColumns[col] {
			return &ErrQueryInvalid{Reason: fmt.Sprintf("column %q is not whitelisted", col)}
		}
	}

	for _, tableMatch := range fromJoinTablePattern.FindAllStringSubmatch(normalized, -1) {
		if !whitelistedTables[tableMatch[1]] {
			return &ErrQueryInvalid{Reason: fmt.Sprintf("table %q is not whitelisted", tableMatch[1])}
		}
	}

	for _, colMatch := range whereColumnPattern.FindAllStringSubmatch(restClause, -1) {
		if !whitelistedColumns[colMatch[1]] && !whitelistedTables[colMatch[1]] {
			return &ErrQueryInvalid{Reason: fmt.Sprintf("column %q is not whitelisted", colMatch[1])}
		}
	}

	if hasInlineLiteral(restClause) {
		return &ErrQueryInvalid{Reason: "use parameter placeholders instead of literal values"}
	}

	return nil
}

func matchesWord(haystack, word string) bool {
	pattern := `\b` + regexp.QuoteMeta(word) + `\b`
	matched, _ := regexp.MatchString(pattern, haystack)
	return matched
}

func splitColumns(selectClause string) []string {
	parts := strings.Split(selectClause, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		col := strings.TrimSpace(p)
		if idx := strings.LastIndex(col, "."); idx >= 0 {
			col = col[idx+1:]
		}
		if idx := strings.Index(col, " as "); idx >= 0 {
			col = strings.TrimSpace(col[:idx])
		}
		if col != "" {
			out = append(out, col)
		}
	}
	return out
}

var literalPattern = regexp.MustCompile(`(?:=|<|>|<=|>=|!=)\s*(?:'[^']*'|\d+)`)

func hasInlineLiteral(whereAndBeyond string) bool {
	return literalPattern.MatchString(whereAndBeyond)
}
