package storage

import (
	"encoding/json"
	"errors"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

func (db *DB) CreateUser(username, passHash, role string) (int64, error) {
	now := fmtTime(time.Now())
	var id int64
	err := db.queryRow(`INSERT INTO users(username, pass_hash, role, created_at) VALUES(?,?,?,?) RETURNING id`,
		username, passHash, role, now).Scan(&id)
	return id, err
}

func (db *DB) GetUserByUsername(username string) (User, string, error) {
	row := db.queryRow(`SELECT id, username, role, created_at, pass_hash FROM users WHERE username=?`, username)
	var u User
	var ph string
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &created, &ph); err != nil {
		return User{}, "", err
	}
	u.CreatedAt = parseTime(created)
	return u, ph, nil
}

func (db *DB) CreateSession(userID int64, token string, expires time.Time) error {
	now := fmtTime(time.Now())
	return db.execOne(`INSERT INTO sessions(token, user_id, expires_at, created_at) VALUES(?,?,?,?)`,
		token, userID, fmtTime(expires), now)
}

func (db *DB) GetSession(token string) (User, error) {
	row := db.queryRow(`
SELECT u.id, u.username, u.role, u.created_at
FROM sessions s JOIN users u ON s.user_id=u.id
WHERE s.token=? AND s.expires_at > ?`, token, fmtTime(time.Now()))
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Role, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (db *DB) DeleteSession(token string) error {
	return db.execOne(`DELETE FROM sessions WHERE token=?`, token)
}

func (db *DB) LogAudit(username, action, resource string, meta map[string]any) error {
	b, _ := json.Marshal(meta)
	_, err := db.exec(`INSERT INTO audit(ts, username, action, resource, meta_json) VALUES(?,?,?,?,?)`,
		fmtTime(time.Now()), username, action, resource, string(b))
	return err
}

var errNoRows = errors.New("no rows affected")

func (db *DB) execOne(q string, args ...any) error {
	res, err := db.exec(q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNoRows
	}
	return nil
}
