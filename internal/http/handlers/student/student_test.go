package student

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
)

type spyStudents struct {
	storage.Students

	created  bool
	updated  bool
	values   storage.Values
	username *string
}

func (s *spyStudents) CreateStudent(_ context.Context, in types.NewStudent, hash string) (types.Student, error) {
	s.created = true
	return types.Student{ID: 1, Username: in.Username, Surname: in.Surname, FirstName: in.FirstName}, nil
}

func (s *spyStudents) UpdateStudentByID(_ context.Context, id int64, v storage.Values, username *string) (types.Student, error) {
	s.updated = true
	s.values = v
	s.username = username
	return types.Student{ID: id}, nil
}

func serve(h http.HandlerFunc, method, pattern, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(method+" "+pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestNewValidatesBeforeStore(t *testing.T) {
	spy := &spyStudents{}
	rec := serve(New(spy), http.MethodPost, "/students", "/students", `{"username": "a", "password": "p"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "field surname is required")
	assert.Contains(t, rec.Body.String(), "field firstname is required")
	assert.False(t, spy.created)
}

func TestNewRejectsBlankNamesAndLongPassword(t *testing.T) {
	bodies := []string{
		`{"username": "  ", "password": "p", "surname": "S", "firstname": "F"}`,
		`{"username": "a", "password": "p", "surname": "\t", "firstname": "F"}`,
		`{"username": "a", "password": "p", "surname": "S", "firstname": " "}`,
		`{"username": "a", "password": "` + strings.Repeat("p", 73) + `", "surname": "S", "firstname": "F"}`,
	}
	for _, body := range bodies {
		spy := &spyStudents{}
		rec := serve(New(spy), http.MethodPost, "/students", "/students", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, spy.created, body)
	}
}

func TestNewCreatesStudent(t *testing.T) {
	spy := &spyStudents{}
	rec := serve(New(spy), http.MethodPost, "/students", "/students",
		`{"username": "a", "password": "p", "surname": "S", "firstname": "F"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, spy.created)
}

func TestUpdateRejectsEmptyBodyBeforeStore(t *testing.T) {
	for _, body := range []string{`{}`, `{"password": "x"}`, `{"userid": 9}`} {
		spy := &spyStudents{}
		rec := serve(Update(spy), http.MethodPut, "/students/{id}", "/students/1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, spy.updated, body)
	}
}

func TestUpdateUsernameOnly(t *testing.T) {
	spy := &spyStudents{}
	rec := serve(Update(spy), http.MethodPut, "/students/{id}", "/students/1", `{"username": "b"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, spy.username)
	assert.Equal(t, "b", *spy.username)
	assert.True(t, spy.values.Empty())

	spy = &spyStudents{}
	rec = serve(Update(spy), http.MethodPut, "/students/{id}", "/students/1", `{"username": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, spy.updated)
}
