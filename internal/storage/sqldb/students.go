package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
)

// Every read joins the owning user so the client sees one flat record.
const studentSelect = `
	SELECT s.id, s.user_id, u.username, u.last_login,
	       s.surname, s.first_name, s.phone, s.nationality, s.is_born_again
	FROM students s
	JOIN users u ON u.id = s.user_id`

func scanStudent(row rowScanner) (types.Student, error) {
	var st types.Student
	err := row.Scan(
		&st.ID,
		&st.UserID,
		&st.Username,
		&st.LastLogin,
		&st.Surname,
		&st.FirstName,
		&st.Phone,
		&st.Nationality,
		&st.IsBornAgain,
	)
	return st, err
}

func getStudent(ctx context.Context, q Querier, id int64) (types.Student, error) {
	return scanStudent(q.QueryRow(ctx, studentSelect+" WHERE s.id = ?", id))
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateStudent inserts the user row and then the student row pointing at
// it. Both statements share one transaction: a duplicate username (or any
// other failure on the second insert) leaves neither row behind.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) CreateStudent(ctx context.Context, in types.NewStudent, passwordHash string) (types.Student, error) {
	var out types.Student
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		user, err := insertUser(ctx, tx, in.Username, passwordHash)
		if err != nil {
			return err
		}

		var studentID int64
		err = tx.QueryRow(ctx,
			`INSERT INTO students (user_id, surname, first_name, phone, nationality, is_born_again)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			user.ID, in.Surname, in.FirstName, in.Phone, in.Nationality, in.IsBornAgain,
		).Scan(&studentID)
		if err != nil {
			return err
		}

		out, err = getStudent(ctx, tx, studentID)
		return err
	})
	if err != nil {
		return types.Student{}, s.db.translate("CreateStudent", err)
	}
	return out, nil
}

func (s *Store) GetStudentByID(ctx context.Context, id int64) (types.Student, error) {
	st, err := getStudent(ctx, s.db, id)
	if err != nil {
		return types.Student{}, s.db.translate(fmt.Sprintf("GetStudentByID %d", id), err)
	}
	return st, nil
}

func (s *Store) GetStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.db.Query(ctx, studentSelect+" ORDER BY s.surname, s.first_name")
	if err != nil {
		return nil, s.db.translate("GetStudents", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}
	return students, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudentByID changes only the columns present in values. When a
// username is supplied the owning user is renamed in the same transaction,
// so a username clash rolls back the profile change too.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) UpdateStudentByID(ctx context.Context, id int64, values storage.Values, username *string) (types.Student, error) {
	var out types.Student
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var userID int64
		if values.Empty() {
			if err := tx.QueryRow(ctx, "SELECT user_id FROM students WHERE id = ?", id).Scan(&userID); err != nil {
				return err
			}
		} else {
			args := append(append([]any{}, values.Args...), id)
			err := tx.QueryRow(ctx,
				"UPDATE students SET "+setClause(values.Columns)+" WHERE id = ? RETURNING user_id",
				args...,
			).Scan(&userID)
			if err != nil {
				return err
			}
		}

		if username != nil {
			if _, err := tx.Exec(ctx, "UPDATE users SET username = ? WHERE id = ?", *username, userID); err != nil {
				return err
			}
		}

		var err error
		out, err = getStudent(ctx, tx, id)
		return err
	})
	if err != nil {
		return types.Student{}, s.db.translate(fmt.Sprintf("UpdateStudentByID %d", id), err)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteStudentByID resolves the owning user and deletes it. The student
// row is removed by ON DELETE CASCADE, not by a statement of its own.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) DeleteStudentByID(ctx context.Context, id int64) (types.Student, error) {
	var out types.Student
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var err error
		out, err = getStudent(ctx, tx, id)
		if err != nil {
			return err
		}

		res, err := tx.Exec(ctx, "DELETE FROM users WHERE id = ?", out.UserID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return types.Student{}, s.db.translate(fmt.Sprintf("DeleteStudentByID %d", id), err)
	}
	return out, nil
}
