package data

import (
	"database/sql"
	"mongods/internal/core"
	"time"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(l *core.AuditLog) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	res, err := r.db.Exec(`INSERT INTO query_audit (timestamp, request_id, datasource_uid, ref_id, query_text, duration_ms, status, error_message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Timestamp.UTC(), l.RequestID, l.DatasourceUID, l.RefID, l.QueryText, l.DurationMs, l.Status, l.ErrorMessage)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	l.ID = id
	return nil
}

// GetRecent returns the newest entries first.
func (r *AuditRepo) GetRecent(limit int) ([]core.AuditLog, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, request_id, datasource_uid, ref_id, query_text, duration_ms, status, error_message FROM query_audit ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []core.AuditLog{}
	for rows.Next() {
		var l core.AuditLog
		var errMsg sql.NullString
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.RequestID, &l.DatasourceUID, &l.RefID, &l.QueryText, &l.DurationMs, &l.Status, &errMsg); err != nil {
			return nil, err
		}
		l.ErrorMessage = errMsg.String

		// Adjust timezone if needed (SQLite stores UTC usually)
		l.Timestamp = l.Timestamp.Local()

		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteBefore removes entries older than cutoff and returns how many were removed.
func (r *AuditRepo) DeleteBefore(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM query_audit WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
