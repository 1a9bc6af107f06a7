package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aanand-mishra/institute-api/internal/types"
)

const userColumns = "id, username, password_hash, last_login, created_at"

func scanUser(row rowScanner) (types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.LastLogin, &u.CreatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (types.User, error) {
	u, err := insertUser(ctx, s.db, username, passwordHash)
	if err != nil {
		return types.User{}, s.db.translate("CreateUser", err)
	}
	return u, nil
}

// RegisterUser inserts the user and the session built for it by
// newSession in one transaction. If either step fails nothing is kept.
func (s *Store) RegisterUser(ctx context.Context, username, passwordHash string,
	newSession func(types.User) (types.Session, error),
) (types.User, types.Session, error) {
	var (
		user    types.User
		session types.Session
	)
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		var err error
		if user, err = insertUser(ctx, tx, username, passwordHash); err != nil {
			return err
		}
		if session, err = newSession(user); err != nil {
			return err
		}
		return upsertSession(ctx, tx, session)
	})
	if err != nil {
		return types.User{}, types.Session{}, s.db.translate("RegisterUser", err)
	}
	return user, session, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if err != nil {
		return types.User{}, s.db.translate("GetUserByUsername", err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return types.User{}, s.db.translate("GetUserByID", err)
	}
	return u, nil
}

// insertUser reads the row back with a plain SELECT: SQLite reports no
// declared type for RETURNING columns, and go-sqlite3 needs it to turn
// TIMESTAMP text into time.Time.
func insertUser(ctx context.Context, q Querier, username, passwordHash string) (types.User, error) {
	var id int64
	err := q.QueryRow(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?) RETURNING id",
		username, passwordHash, time.Now().UTC()).Scan(&id)
	if err != nil {
		return types.User{}, err
	}
	return scanUser(q.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// SaveSession upserts on the token so that re-saving only refreshes the
// issue time.
func (s *Store) SaveSession(ctx context.Context, session types.Session) error {
	if err := upsertSession(ctx, s.db, session); err != nil {
		return s.db.translate("SaveSession", err)
	}
	return nil
}

func (s *Store) RecordLogin(ctx context.Context, session types.Session) error {
	err := s.db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.Exec(ctx, "UPDATE users SET last_login = ? WHERE id = ?",
			session.IssuedAt.UTC(), session.UserID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("user %d: %w", session.UserID, sql.ErrNoRows)
		}
		return upsertSession(ctx, tx, session)
	})
	return s.db.translate("RecordLogin", err)
}

func (s *Store) GetSession(ctx context.Context, token string) (types.Session, error) {
	var sess types.Session
	err := s.db.QueryRow(ctx,
		"SELECT token, user_id, issued_at FROM user_logins WHERE token = ?", token,
	).Scan(&sess.Token, &sess.UserID, &sess.IssuedAt)
	if err != nil {
		return types.Session{}, s.db.translate("GetSession", err)
	}
	return sess, nil
}

// DeleteSession is idempotent: deleting an unknown token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM user_logins WHERE token = ?", token)
	return s.db.translate("DeleteSession", err)
}

func (s *Store) DeleteSessionsIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(ctx, "DELETE FROM user_logins WHERE issued_at < ?", cutoff.UTC())
	if err != nil {
		return 0, s.db.translate("DeleteSessionsIssuedBefore", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteSessionsIssuedBefore: rows affected: %w", err)
	}
	return n, nil
}

func upsertSession(ctx context.Context, q Querier, session types.Session) error {
	_, err := q.Exec(ctx,
		`INSERT INTO user_logins (token, user_id, issued_at) VALUES (?, ?, ?)
		 ON CONFLICT (token) DO UPDATE SET issued_at = excluded.issued_at`,
		session.Token, session.UserID, session.IssuedAt.UTC())
	return err
}
