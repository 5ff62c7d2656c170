package storage

import (
	"database/sql"
	"time"
)

type Waiver struct {
	ID         int64      `json:"id"`
	RuleID     string     `json:"rule_id"`
	Class      string     `json:"class,omitempty"`
	Method     string     `json:"method,omitempty"`
	PatternSub string     `json:"pattern_sub,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (db *DB) CreateWaiver(ruleID, class, method, pattern, reason, createdBy string, expires time.Time) (int64, error) {
	now := fmtTime(time.Now())
	var id int64
	err := db.queryRow(`
INSERT INTO waivers(rule_id, class, method, pattern_sub, reason, expires_at, created_by, created_at)
VALUES(?,?,?,?,?,?,?,?) RETURNING id`,
		ruleID, nz(class), nz(method), nz(pattern), reason, fmtTime(expires), createdBy, now).Scan(&id)
	return id, err
}

// RevokeWaiver marks a waiver revoked; the revoker is recorded in the audit log.
func (db *DB) RevokeWaiver(id int64, by string) error {
	if _, err := db.exec(`UPDATE waivers SET revoked_at=? WHERE id=? AND revoked_at IS NULL`,
		fmtTime(time.Now()), id); err != nil {
		return err
	}
	return db.LogAudit(by, "waiver:revoke", "", map[string]any{"id": id})
}

func (db *DB) ListWaivers(activeOnly bool) ([]Waiver, error) {
	q := `
SELECT id, rule_id, COALESCE(class,''), COALESCE(method,''), COALESCE(pattern_sub,''),
       reason, expires_at, created_by, created_at, revoked_at
FROM waivers`
	args := []any{}
	if activeOnly {
		q += ` WHERE (revoked_at IS NULL) AND (expires_at > ?)`
		args = append(args, fmtTime(time.Now()))
	}
	q += ` ORDER BY id DESC`
	rows, err := db.query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Waiver
	for rows.Next() {
		var (
			w           Waiver
			exp, ca, ra sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.RuleID, &w.Class, &w.Method, &w.PatternSub, &w.Reason, &exp, &w.CreatedBy, &ca, &ra); err != nil {
			return nil, err
		}
		if exp.Valid {
			w.ExpiresAt = parseTime(exp.String)
		}
		if ca.Valid {
			w.CreatedAt = parseTime(ca.String)
		}
		if ra.Valid {
			t := parseTime(ra.String)
			w.RevokedAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}
