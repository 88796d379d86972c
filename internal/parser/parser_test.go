package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

func TestParseValidRecord(t *testing.T) {
	input := `Intro to Algorithms
12345
Dr. Cohen
L S,1,09:00,10:00,100,5
T S,2,11:00,12:00,100,6
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	require.Len(t, result.Courses, 1)
	c := result.Courses[0]
	assert.Equal(t, "12345", c.RawID)
	assert.Equal(t, "Intro to Algorithms", c.Name)
	assert.Equal(t, "Dr. Cohen", c.Teacher)
	require.Len(t, c.LectureGroups, 1)
	require.Len(t, c.TutorialGroups, 1)
	assert.Empty(t, c.LabGroups)
}

func TestParseMultipleSessionsOneGroup(t *testing.T) {
	input := `Multi Session
54321
Dr. Levi
L S,1,08:00,09:00,1,1 S,3,08:00,09:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	require.Len(t, result.Courses, 1)
	require.Len(t, result.Courses[0].LectureGroups, 1)
	assert.Len(t, result.Courses[0].LectureGroups[0].Sessions, 2)
}

func TestParseDropsDuplicateID(t *testing.T) {
	input := `Course A
11111
T1
L S,1,09:00,10:00,1,1
$$$$
Course B
11111
T2
L S,1,10:00,11:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	require.Len(t, result.Courses, 1)
	assert.Equal(t, "Course A", result.Courses[0].Name)
	assert.NotEmpty(t, result.Diagnostics)
}

func TestParseDropsBadRawID(t *testing.T) {
	input := `Bad ID Course
123
T1
L S,1,09:00,10:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	assert.Empty(t, result.Courses)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, course.CategoryBadTime, result.Diagnostics[0].Category)
}

func TestParseDropsCourseWithNoLectureGroups(t *testing.T) {
	input := `No Lecture
22222
T1
T S,1,09:00,10:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	assert.Empty(t, result.Courses)
}

func TestParseSkipsMalformedSessionKeepsRestOfGroup(t *testing.T) {
	input := `Partial Bad
33333
T1
L S,1,09:00,10:00,1,1 S,9,09:00,10:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	require.Len(t, result.Courses, 1)
	require.Len(t, result.Courses[0].LectureGroups, 1)
	assert.Len(t, result.Courses[0].LectureGroups[0].Sessions, 1)
	assert.NotEmpty(t, result.Diagnostics)
}

func TestParseRejectsStartAfterEnd(t *testing.T) {
	input := `Backwards
44444
T1
L S,1,10:00,09:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	assert.Empty(t, result.Courses)
}

func TestParseUnknownPrefixDropsCourse(t *testing.T) {
	input := `Unknown Prefix
55555
T1
X S,1,09:00,10:00,1,1
$$$$
`
	result := Parse(strings.NewReader(input), zap.NewNop())
	assert.Empty(t, result.Courses)
}
