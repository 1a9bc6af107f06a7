package storage

// Entity schemas. The field order is the scan order used by the sqldb
// row scanners, after the key column.

var CohortSchema = &Schema{
	Table: "cohorts",
	Key:   "id",
	Fields: []Field{
		{Name: "name", Column: "name", Kind: KindString, Rules: "max=200", Required: true, Create: true, Update: true},
		{Name: "startDate", Column: "start_date", Kind: KindString, Rules: "datetime=2006-01-02", Required: true, Create: true, Update: true},
		{Name: "endDate", Column: "end_date", Kind: KindString, Rules: "datetime=2006-01-02", Required: true, Create: true, Update: true},
	},
}

// CourseSectionSchema is read-only: no field is creatable or updatable.
var CourseSectionSchema = &Schema{
	Table: "course_sections",
	Key:   "id",
	Fields: []Field{
		{Name: "sectionName", Column: "name", Kind: KindString},
	},
}

var CourseSchema = &Schema{
	Table: "courses",
	Key:   "id",
	Fields: []Field{
		{Name: "title", Column: "title", Kind: KindString, Rules: "max=200", Required: true, Create: true, Update: true},
		{Name: "code", Column: "code", Kind: KindString, Rules: "max=50", Required: true, Create: true, Update: true},
		{Name: "description", Column: "description", Kind: KindString, Nullable: true, Create: true, Update: true},
		{Name: "units", Column: "units", Kind: KindInt, Rules: "min=0", Required: true, Create: true, Update: true},
		{Name: "_sectionid", Column: "section_id", Kind: KindInt, Nullable: true, Create: true, Update: true},
		{Name: "teachingHours", Column: "teaching_hours", Kind: KindInt, Rules: "min=0", Nullable: true, Create: true, Update: true},
	},
}

// StudentSchema only drives updates; students are created through
// types.NewStudent together with their user.
var StudentSchema = &Schema{
	Table: "students",
	Key:   "id",
	Fields: []Field{
		{Name: "surname", Column: "surname", Kind: KindString, Required: true, Update: true},
		{Name: "firstname", Column: "first_name", Kind: KindString, Required: true, Update: true},
		{Name: "phone", Column: "phone", Kind: KindString, Nullable: true, Update: true},
		{Name: "nationality", Column: "nationality", Kind: KindString, Nullable: true, Update: true},
		{Name: "isBornAgain", Column: "is_born_again", Kind: KindBool, Update: true},
	},
}
