// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on these interfaces:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero handler changes. Both SQLite and
//     PostgreSQL are served by the same sqldb implementation.
//
//   - Writing tests = pass a fake that satisfies the interface.
//     No real database needed for handler unit tests.
//
// Every implementation reports the three outcomes the HTTP layer cares
// about through the sentinel errors below, checked with errors.Is.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/institute-api/internal/types"
)

var (
	// ErrNotFound means no row matched the requested id or key.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a uniquely-constrained column would be duplicated.
	ErrConflict = errors.New("record with the same unique value already exists")

	// ErrInvalidReference means a foreign key points at a missing row.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// Resource is a single table driven entirely by its Schema. It backs the
// generic list/get/create/update/delete handlers.
type Resource[T any] interface {
	Schema() *Schema
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, values Values) (T, error)
	Update(ctx context.Context, id int64, values Values) (T, error)
	Delete(ctx context.Context, id int64) (T, error)
}

// Users stores identity records.
type Users interface {
	// CreateUser returns ErrConflict when the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (types.User, error)

	// RegisterUser creates the user and its first session atomically.
	// newSession runs inside the transaction once the user id is known.
	RegisterUser(ctx context.Context, username, passwordHash string,
		newSession func(types.User) (types.Session, error)) (types.User, types.Session, error)

	GetUserByUsername(ctx context.Context, username string) (types.User, error)
	GetUserByID(ctx context.Context, id int64) (types.User, error)
}

// Sessions stores one record per issued token.
type Sessions interface {
	// SaveSession inserts the session or refreshes its issue time.
	SaveSession(ctx context.Context, session types.Session) error

	// RecordLogin stamps the user's last login and saves the session in
	// one transaction.
	RecordLogin(ctx context.Context, session types.Session) error

	GetSession(ctx context.Context, token string) (types.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// DeleteSessionsIssuedBefore removes stale sessions and reports how
	// many were removed.
	DeleteSessionsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Students stores student profiles. Every write touches the owning user
// in the same transaction.
type Students interface {
	CreateStudent(ctx context.Context, student types.NewStudent, passwordHash string) (types.Student, error)
	GetStudentByID(ctx context.Context, id int64) (types.Student, error)
	GetStudents(ctx context.Context) ([]types.Student, error)

	// UpdateStudentByID applies values to the student row and, when
	// username is non-nil, renames the owning user.
	UpdateStudentByID(ctx context.Context, id int64, values Values, username *string) (types.Student, error)

	// DeleteStudentByID deletes the owning user; the student row goes
	// with it by cascade. The deleted student is returned.
	DeleteStudentByID(ctx context.Context, id int64) (types.Student, error)
}

// Courses stores courses together with their type labels.
type Courses interface {
	CreateCourse(ctx context.Context, values Values, courseTypes []string) (types.Course, error)
	GetCourseByID(ctx context.Context, id int64) (types.Course, error)
	GetCourses(ctx context.Context) ([]types.Course, error)

	// UpdateCourseByID applies values and, when courseTypes is non-nil,
	// replaces the whole type list.
	UpdateCourseByID(ctx context.Context, id int64, values Values, courseTypes *[]string) (types.Course, error)
	DeleteCourseByID(ctx context.Context, id int64) (types.Course, error)
}

// Storage is the full database contract used by main.go.
type Storage interface {
	Users
	Sessions
	Students
	Courses

	Cohorts() Resource[types.Cohort]
	CourseSections() Resource[types.CourseSection]

	Ping(ctx context.Context) error
	Close() error
}
