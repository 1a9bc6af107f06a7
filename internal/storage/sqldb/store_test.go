package sqldb_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/institute-api/internal/config"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/storage/sqldb"
	"github.com/aanand-mishra/institute-api/internal/storage/sqlite"
	"github.com/aanand-mishra/institute-api/internal/types"
)

func newStore(t *testing.T) *sqldb.Store {
	t.Helper()
	cfg := &config.Config{Storage: config.Storage{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}}
	store, err := sqlite.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T { return &v }

func TestCreateUserConflict(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Positive(t, u.ID)
	assert.Nil(t, u.LastLogin)

	_, err = store.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRegisterUserIsAtomic(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// The session cannot be built: nothing is kept.
	_, _, err := store.RegisterUser(ctx, "bob", "hash", func(types.User) (types.Session, error) {
		return types.Session{}, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	_, err = store.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The session write itself fails on the foreign key: nothing is kept.
	_, _, err = store.RegisterUser(ctx, "bob", "hash", func(u types.User) (types.Session, error) {
		return types.Session{Token: "tok", UserID: u.ID + 1000, IssuedAt: time.Now()}, nil
	})
	require.ErrorIs(t, err, storage.ErrInvalidReference)
	_, err = store.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	u, sess, err := store.RegisterUser(ctx, "bob", "hash", func(u types.User) (types.Session, error) {
		return types.Session{Token: "tok", UserID: u.ID, IssuedAt: time.Now()}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	got, err := store.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)

	_, _, err = store.RegisterUser(ctx, "bob", "hash", func(u types.User) (types.Session, error) {
		t.Fatal("session built for a conflicting user")
		return types.Session{}, nil
	})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestRecordLoginStampsLastLoginAndUpsertsSession(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.RecordLogin(ctx, types.Session{Token: "tok", UserID: u.ID, IssuedAt: at}))

	got, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, at.Equal(*got.LastLogin))

	sess, err := store.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)

	// Same token again refreshes rather than failing on the primary key.
	later := at.Add(time.Minute)
	require.NoError(t, store.RecordLogin(ctx, types.Session{Token: "tok", UserID: u.ID, IssuedAt: later}))
	sess, err = store.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, later.Equal(sess.IssuedAt))
}

func TestRecordLoginUnknownUser(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	err := store.RecordLogin(ctx, types.Session{Token: "tok", UserID: 999, IssuedAt: time.Now()})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, storage.ErrNotFound, "the session must roll back with the login")
}

func TestSessionsDeleteAndPurge(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	u, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.SaveSession(ctx, types.Session{Token: "old", UserID: u.ID, IssuedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.SaveSession(ctx, types.Session{Token: "new", UserID: u.ID, IssuedAt: now}))

	n, err := store.DeleteSessionsIssuedBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetSession(ctx, "old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, "new"))
	require.NoError(t, store.DeleteSession(ctx, "new"), "deleting twice is fine")
	_, err = store.GetSession(ctx, "new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStudentLifecycle(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.CreateStudent(ctx, types.NewStudent{
		Username: "a", Password: "p", Surname: "S", FirstName: "F",
		Nationality: ptr("KE"), IsBornAgain: true,
	}, "hash")
	require.NoError(t, err)

	got, err := store.GetStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Username)
	assert.Equal(t, "S", got.Surname)
	assert.Equal(t, "F", got.FirstName)
	assert.Equal(t, "KE", *got.Nationality)
	assert.Nil(t, got.Phone)
	assert.True(t, got.IsBornAgain)
	assert.Positive(t, got.UserID)

	values, err := storage.StudentSchema.Assignments(storage.Fields{"surname": "T", "phone": "123"})
	require.NoError(t, err)
	updated, err := store.UpdateStudentByID(ctx, created.ID, values, ptr("b"))
	require.NoError(t, err)
	assert.Equal(t, "T", updated.Surname)
	assert.Equal(t, "F", updated.FirstName)
	assert.Equal(t, "123", *updated.Phone)
	assert.Equal(t, "b", updated.Username)

	deleted, err := store.DeleteStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = store.GetStudentByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetUserByID(ctx, created.UserID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateStudentDuplicateUsernameLeavesNothing(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "taken", "hash")
	require.NoError(t, err)

	_, err = store.CreateStudent(ctx, types.NewStudent{
		Username: "taken", Password: "p", Surname: "S", FirstName: "F",
	}, "hash")
	assert.ErrorIs(t, err, storage.ErrConflict)

	students, err := store.GetStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestUpdateStudentUsernameConflictRollsBack(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "taken", "hash")
	require.NoError(t, err)
	st, err := store.CreateStudent(ctx, types.NewStudent{
		Username: "a", Password: "p", Surname: "S", FirstName: "F",
	}, "hash")
	require.NoError(t, err)

	values, err := storage.StudentSchema.Assignments(storage.Fields{"surname": "Changed"})
	require.NoError(t, err)
	_, err = store.UpdateStudentByID(ctx, st.ID, values, ptr("taken"))
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err := store.GetStudentByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "S", got.Surname)
	assert.Equal(t, "a", got.Username)
}

func TestUpdateMissingStudent(t *testing.T) {
	store := newStore(t)

	values, err := storage.StudentSchema.Assignments(storage.Fields{"surname": "T"})
	require.NoError(t, err)
	_, err = store.UpdateStudentByID(context.Background(), 42, values, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCourseTypesReplacedWholesale(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	values, err := storage.CourseSchema.Insert(storage.Fields{
		"title": "Greek I", "code": "GRK101", "units": float64(3), "_sectionid": float64(1),
	})
	require.NoError(t, err)
	created, err := store.CreateCourse(ctx, values, []string{"C", "A", "A", " "})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, created.Types)
	require.NotNil(t, created.SectionName)
	assert.Equal(t, "Biblical Studies", *created.SectionName)

	_, err = store.UpdateCourseByID(ctx, created.ID, storage.Values{}, &[]string{"A", "B"})
	require.NoError(t, err)

	got, err := store.GetCourseByID(ctx, created.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, got.Types)
	assert.Equal(t, "Greek I", got.Title)

	values, err = storage.CourseSchema.Assignments(storage.Fields{"title": "Greek 1"})
	require.NoError(t, err)
	got, err = store.UpdateCourseByID(ctx, created.ID, values, nil)
	require.NoError(t, err)
	assert.Equal(t, "Greek 1", got.Title)
	assert.ElementsMatch(t, []string{"A", "B"}, got.Types, "types untouched when not supplied")

	list, err := store.GetCourses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, list[0].Types)

	deleted, err := store.DeleteCourseByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	_, err = store.GetCourseByID(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCourseConstraints(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	values, err := storage.CourseSchema.Insert(storage.Fields{"title": "T", "code": "X1", "units": float64(1)})
	require.NoError(t, err)
	created, err := store.CreateCourse(ctx, values, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, created.Types)
	assert.Nil(t, created.SectionID)

	_, err = store.CreateCourse(ctx, values, nil)
	assert.ErrorIs(t, err, storage.ErrConflict)

	badSection, err := storage.CourseSchema.Insert(storage.Fields{
		"title": "T", "code": "X2", "units": float64(1), "_sectionid": float64(999),
	})
	require.NoError(t, err)
	_, err = store.CreateCourse(ctx, badSection, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidReference)

	_, err = store.UpdateCourseByID(ctx, 999, storage.Values{}, &[]string{"A"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCohortTable(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	cohorts := store.Cohorts()

	list, err := cohorts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	values, err := cohorts.Schema().Insert(storage.Fields{
		"name": "2026 Intake", "startDate": "2026-01-10", "endDate": "2026-12-10",
	})
	require.NoError(t, err)
	created, err := cohorts.Create(ctx, values)
	require.NoError(t, err)
	assert.Equal(t, "2026 Intake", created.Name)
	assert.Equal(t, "2026-01-10", created.StartDate)

	values, err = cohorts.Schema().Assignments(storage.Fields{"endDate": "2026-11-30"})
	require.NoError(t, err)
	updated, err := cohorts.Update(ctx, created.ID, values)
	require.NoError(t, err)
	assert.Equal(t, "2026-11-30", updated.EndDate)
	assert.Equal(t, "2026 Intake", updated.Name)

	_, err = cohorts.Update(ctx, created.ID, storage.Values{})
	var verr *storage.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = cohorts.Update(ctx, 999, values)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	deleted, err := cohorts.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, deleted)

	_, err = cohorts.Get(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = cohorts.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCourseSectionsSeeded(t *testing.T) {
	store := newStore(t)

	sections, err := store.CourseSections().List(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 4)
	assert.Equal(t, "Biblical Studies", sections[0].Name)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	db := store.DB()

	err := db.WithTx(ctx, func(tx *sqldb.Tx) error {
		if _, err := tx.Exec(ctx, "INSERT INTO cohorts (name, start_date, end_date) VALUES (?, ?, ?)",
			"x", "2026-01-01", "2026-02-01"); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	list, err := store.Cohorts().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, func(tx *sqldb.Tx) error { panic("boom") })
	})

	// The pool still works after both failures.
	require.NoError(t, db.WithTx(ctx, func(tx *sqldb.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO cohorts (name, start_date, end_date) VALUES (?, ?, ?)",
			"y", "2026-01-01", "2026-02-01")
		return err
	}))
	list, err = store.Cohorts().List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
