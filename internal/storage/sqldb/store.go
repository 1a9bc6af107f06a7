package sqldb

import (
	"context"

	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
)

// Store is the concrete implementation of storage.Storage.
type Store struct {
	db       *DB
	cohorts  *Table[types.Cohort]
	sections *Table[types.CourseSection]
}

var _ storage.Storage = (*Store)(nil)

// NewStore builds the store on top of an opened DB.
func NewStore(db *DB) *Store {
	return &Store{
		db:       db,
		cohorts:  NewTable(db, storage.CohortSchema, scanCohort),
		sections: NewTable(db, storage.CourseSectionSchema, scanCourseSection),
	}
}

// DB exposes the gateway, mainly for tests that need raw statements.
func (s *Store) DB() *DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Cohorts() storage.Resource[types.Cohort] {
	return s.cohorts
}

func (s *Store) CourseSections() storage.Resource[types.CourseSection] {
	return s.sections
}

// scanCohort follows storage.CohortSchema column order.
func scanCohort(row rowScanner) (types.Cohort, error) {
	var c types.Cohort
	err := row.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate)
	return c, err
}

// scanCourseSection follows storage.CourseSectionSchema column order.
func scanCourseSection(row rowScanner) (types.CourseSection, error) {
	var cs types.CourseSection
	err := row.Scan(&cs.ID, &cs.Name)
	return cs, err
}
