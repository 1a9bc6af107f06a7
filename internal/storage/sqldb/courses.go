package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
)

const courseSelect = `
	SELECT c.id, c.title, c.code, c.description, c.units, c.section_id, cs.name, c.teaching_hours
	FROM courses c
	LEFT JOIN course_sections cs ON cs.id = c.section_id`

func scanCourse(row rowScanner) (types.Course, error) {
	c := types.Course{Types: []string{}}
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Code,
		&c.Description,
		&c.Units,
		&c.SectionID,
		&c.SectionName,
		&c.TeachingHours,
	)
	return c, err
}

func getCourse(ctx context.Context, q Querier, id int64) (types.Course, error) {
	c, err := scanCourse(q.QueryRow(ctx, courseSelect+" WHERE c.id = ?", id))
	if err != nil {
		return types.Course{}, err
	}
	byCourse, err := courseTypes(ctx, q, &id)
	if err != nil {
		return types.Course{}, err
	}
	if labels, ok := byCourse[id]; ok {
		c.Types = labels
	}
	return c, nil
}

// courseTypes loads type labels grouped by course. A nil id loads all.
func courseTypes(ctx context.Context, q Querier, id *int64) (map[int64][]string, error) {
	query := "SELECT course_id, label FROM course_types"
	var args []any
	if id != nil {
		query += " WHERE course_id = ?"
		args = append(args, *id)
	}
	query += " ORDER BY course_id, label"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			courseID int64
			label    string
		)
		if err := rows.Scan(&courseID, &label); err != nil {
			return nil, err
		}
		out[courseID] = append(out[courseID], label)
	}
	return out, rows.Err()
}

// replaceCourseTypes deletes every existing label of the course and
// inserts the given ones. Blank and repeated labels are dropped.
func replaceCourseTypes(ctx context.Context, q Querier, courseID int64, labels []string) error {
	if _, err := q.Exec(ctx, "DELETE FROM course_types WHERE course_id = ?", courseID); err != nil {
		return err
	}
	return insertCourseTypes(ctx, q, courseID, labels)
}

func insertCourseTypes(ctx context.Context, q Querier, courseID int64, labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		if _, err := q.Exec(ctx, "INSERT INTO course_types (course_id, label) VALUES (?, ?)", courseID, label); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateCourse inserts the course and its type labels as one unit.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) CreateCourse(ctx context.Context, values storage.Values, labels []string) (types.Course, error) {
	if values.Empty() {
		return types.Course{}, fmt.Errorf("CreateCourse: %w", storage.NewValidationError("no fields to insert"))
	}

	var out types.Course
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var id int64
		err := tx.QueryRow(ctx,
			"INSERT INTO courses ("+strings.Join(values.Columns, ", ")+") VALUES ("+placeholders(len(values.Columns))+") RETURNING id",
			values.Args...,
		).Scan(&id)
		if err != nil {
			return err
		}
		if err := insertCourseTypes(ctx, tx, id, labels); err != nil {
			return err
		}
		out, err = getCourse(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Course{}, s.db.translate("CreateCourse", err)
	}
	return out, nil
}

func (s *Store) GetCourseByID(ctx context.Context, id int64) (types.Course, error) {
	c, err := getCourse(ctx, s.db, id)
	if err != nil {
		return types.Course{}, s.db.translate(fmt.Sprintf("GetCourseByID %d", id), err)
	}
	return c, nil
}

// GetCourses returns every course ordered by title. Type labels are read
// with a second query and attached in memory.
func (s *Store) GetCourses(ctx context.Context) ([]types.Course, error) {
	rows, err := s.db.Query(ctx, courseSelect+" ORDER BY c.title, c.id")
	if err != nil {
		return nil, s.db.translate("GetCourses", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("GetCourses: scan row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetCourses: rows iteration: %w", err)
	}

	byCourse, err := courseTypes(ctx, s.db, nil)
	if err != nil {
		return nil, s.db.translate("GetCourses: types", err)
	}
	for i := range courses {
		if labels, ok := byCourse[courses[i].ID]; ok {
			courses[i].Types = labels
		}
	}
	return courses, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateCourseByID applies the present columns and, if a type list was
// supplied, swaps the whole list: delete all, then reinsert. Types are
// never patched one by one.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) UpdateCourseByID(ctx context.Context, id int64, values storage.Values, labels *[]string) (types.Course, error) {
	if values.Empty() && labels == nil {
		return types.Course{}, fmt.Errorf("UpdateCourseByID: %w", storage.NewValidationError("no valid fields provided for update"))
	}

	var out types.Course
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var found int64
		if values.Empty() {
			if err := tx.QueryRow(ctx, "SELECT id FROM courses WHERE id = ?", id).Scan(&found); err != nil {
				return err
			}
		} else {
			args := append(append([]any{}, values.Args...), id)
			err := tx.QueryRow(ctx,
				"UPDATE courses SET "+setClause(values.Columns)+" WHERE id = ? RETURNING id",
				args...,
			).Scan(&found)
			if err != nil {
				return err
			}
		}

		if labels != nil {
			if err := replaceCourseTypes(ctx, tx, id, *labels); err != nil {
				return err
			}
		}

		var err error
		out, err = getCourse(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Course{}, s.db.translate(fmt.Sprintf("UpdateCourseByID %d", id), err)
	}
	return out, nil
}

// DeleteCourseByID echoes the deleted course. Its type rows go by cascade.
func (s *Store) DeleteCourseByID(ctx context.Context, id int64) (types.Course, error) {
	var out types.Course
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var err error
		if out, err = getCourse(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "DELETE FROM courses WHERE id = ?", id)
		return err
	})
	if err != nil {
		return types.Course{}, s.db.translate(fmt.Sprintf("DeleteCourseByID %d", id), err)
	}
	return out, nil
}
