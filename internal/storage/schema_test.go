package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertUsesDeclaredFieldsOnly(t *testing.T) {
	values, err := CohortSchema.Insert(Fields{
		"name":      "2026 Intake",
		"startDate": "2026-01-10",
		"endDate":   "2026-12-10",
		"id":        float64(99),
		"is_admin":  true,
		"name; DROP TABLE cohorts": "x",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "start_date", "end_date"}, values.Columns)
	assert.Equal(t, []any{"2026 Intake", "2026-01-10", "2026-12-10"}, values.Args)
}

func TestInsertRequiredFields(t *testing.T) {
	_, err := CohortSchema.Insert(Fields{"name": "  ", "endDate": nil})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"field name is required",
		"field startDate is required",
		"field endDate is required",
	}, verr.Problems)
}

func TestInsertOptionalFieldsMayBeOmitted(t *testing.T) {
	values, err := CourseSchema.Insert(Fields{
		"title": "Greek I", "code": "GRK101", "units": float64(3), "description": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "code", "description", "units"}, values.Columns)
	assert.Equal(t, []any{"Greek I", "GRK101", nil, int64(3)}, values.Args)
}

func TestFieldTypeChecks(t *testing.T) {
	tests := []struct {
		name    string
		schema  *Schema
		in      Fields
		problem string
	}{
		{"string expected", CohortSchema, Fields{"name": 5.0}, "field name must be a string"},
		{"fractional int", CourseSchema, Fields{"units": 1.5}, "field units must be an integer"},
		{"int out of range", CourseSchema, Fields{"_sectionid": 1e19}, "field _sectionid must be an integer"},
		{"negative out of range", CourseSchema, Fields{"_sectionid": -1e19}, "field _sectionid must be an integer"},
		{"int as string", CourseSchema, Fields{"units": "3"}, "field units must be an integer"},
		{"negative units", CourseSchema, Fields{"units": -1.0}, "field units must be at least 0"},
		{"bad date", CohortSchema, Fields{"startDate": "10/01/2026"}, "field startDate must be a date (YYYY-MM-DD)"},
		{"too long code", CourseSchema, Fields{"code": string(make([]byte, 51))}, "field code must be at most 50"},
		{"null not allowed", CohortSchema, Fields{"name": nil}, "field name cannot be null"},
		{"bool expected", StudentSchema, Fields{"isBornAgain": "yes"}, "field isBornAgain must be a boolean"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.schema.Assignments(tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tc.problem}, verr.Problems)
		})
	}
}

func TestLargestExactIntegerAccepted(t *testing.T) {
	values, err := CourseSchema.Assignments(Fields{"_sectionid": float64(1 << 53)})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1 << 53)}, values.Args)
}

func TestAssignmentsAllowList(t *testing.T) {
	values, err := StudentSchema.Assignments(Fields{
		"firstname":   "F",
		"nationality": nil,
		"user_id":     float64(1),
		"username":    "ignored here",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "nationality"}, values.Columns)
	assert.Equal(t, []any{"F", nil}, values.Args)

	values, err = StudentSchema.Assignments(Fields{"unknown": 1})
	require.NoError(t, err)
	assert.True(t, values.Empty())
}

func TestReadOnlySchema(t *testing.T) {
	values, err := CourseSectionSchema.Assignments(Fields{"sectionName": "x"})
	require.NoError(t, err)
	assert.True(t, values.Empty())

	values, err = CourseSectionSchema.Insert(Fields{"sectionName": "x"})
	require.NoError(t, err)
	assert.True(t, values.Empty())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "start_date", "end_date"}, CohortSchema.Columns())
}
