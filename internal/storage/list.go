package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/codewithboateng/drulift/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts.
func (db *DB) ListRuns(limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.started_at, r.source, r.ir_version,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id) AS findings
		  FROM runs r
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAtStr string
		if err := rows.Scan(&rr.ID, &startedAtStr, &rr.Source, &rr.IRVersion, &rr.Findings); err != nil {
			return nil, err
		}
		rr.StartedAt = parseTime(startedAtStr)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListFindings returns findings for a run, optionally limited to one rule.
func (db *DB) ListFindings(runID, ruleID string) ([]ir.Finding, error) {
	const q = `
		SELECT id, file, line, class, method, rule_id, severity, message, evidence
		  FROM findings
		 WHERE run_id = ?
		   AND (? = '' OR rule_id = ?)
		 ORDER BY file, line, rule_id, id`
	rows, err := db.query(q, runID, ruleID, ruleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Finding
	for rows.Next() {
		var f ir.Finding
		if err := rows.Scan(&f.ID, &f.File, &f.Line, &f.Class, &f.Method, &f.RuleID, &f.Severity, &f.Message, &f.Evidence); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// HasRun reports whether a run with the given ID is stored.
func (db *DB) HasRun(id string) (bool, error) {
	const q = `SELECT 1 FROM runs WHERE id = ? LIMIT 1`
	var one int
	err := db.queryRow(q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// parseTime reads RFC3339Nano first, falling back to RFC3339; zero if unparsable.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// Fixed-width UTC timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func fmtTime(t time.Time) string { return t.UTC().Format(tsLayout) }
