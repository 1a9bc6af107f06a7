// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and utils can all import types without depending
// on each other.
//
// JSON names follow what the frontend expects (userid, studentid, ...).
// Optional columns are pointers so that NULL encodes as JSON null.
package types

import "time"

// User is an identity record. PasswordHash never leaves the server.
type User struct {
	ID           int64      `json:"userid"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Student is a profile record joined with its owning user.
type Student struct {
	ID          int64      `json:"studentid"`
	UserID      int64      `json:"userid"`
	Username    string     `json:"username"`
	LastLogin   *time.Time `json:"lastLogin"`
	Surname     string     `json:"surname"`
	FirstName   string     `json:"firstname"`
	Phone       *string    `json:"phone"`
	Nationality *string    `json:"nationality"`
	IsBornAgain bool       `json:"isBornAgain"`
}

// NewStudent is the payload for creating a student together with its user.
//
// The validate tags are checked by go-playground/validator before
// anything reaches the database; notblank and password are registered
// in internal/utils/request.
type NewStudent struct {
	Username    string  `json:"username"    validate:"required,notblank"`
	Password    string  `json:"password"    validate:"required,password"`
	Surname     string  `json:"surname"     validate:"required,notblank"`
	FirstName   string  `json:"firstname"   validate:"required,notblank"`
	Phone       *string `json:"phone"`
	Nationality *string `json:"nationality"`
	IsBornAgain bool    `json:"isBornAgain"`
}

// Cohort dates are calendar days in YYYY-MM-DD form.
type Cohort struct {
	ID        int64  `json:"cohortid"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type CourseSection struct {
	ID   int64  `json:"sectionid"`
	Name string `json:"sectionName"`
}

// Course carries its section name and type labels resolved from the
// course_sections and course_types tables.
type Course struct {
	ID            int64    `json:"courseid"`
	Title         string   `json:"title"`
	Code          string   `json:"code"`
	Description   *string  `json:"description"`
	Units         int64    `json:"units"`
	SectionID     *int64   `json:"_sectionid"`
	SectionName   *string  `json:"sectionName"`
	TeachingHours *int64   `json:"teachingHours"`
	Types         []string `json:"types"`
}

// Session is the record written for every issued token. A token is only
// accepted while its session exists.
type Session struct {
	Token    string    `json:"-"`
	UserID   int64     `json:"userid"`
	IssuedAt time.Time `json:"issuedAt"`
}
