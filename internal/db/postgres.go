package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"elda-admin/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) GetPreferences(ctx context.Context, userID string) (models.Preferences, error) {
	p := models.Preferences{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT font_size, theme, language, updated_at FROM user_preferences WHERE user_id = $1`,
		userID).Scan(&p.FontSize, &p.Theme, &p.Language, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, p models.Preferences) (models.Preferences, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_preferences (user_id, font_size, theme, language, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET font_size = EXCLUDED.font_size,
		    theme = EXCLUDED.theme,
		    language = EXCLUDED.language,
		    updated_at = NOW()
		RETURNING updated_at`,
		p.UserID, p.FontSize, p.Theme, p.Language).Scan(&p.UpdatedAt)
	if err != nil {
		return models.Preferences{}, fmt.Errorf("save preferences: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, entry models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO console_audit_logs (id, user_id, resource, record_id, action, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		entry.ID, entry.UserID, entry.Resource, entry.RecordID, entry.Action, entry.Status)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAudit(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	q := `SELECT id::text, user_id, resource, record_id, action, status, created_at
	      FROM console_audit_logs WHERE 1=1`
	args := []any{}
	idx := 1

	if f.UserID != "" {
		q += " AND user_id=$" + strconv.Itoa(idx)
		args = append(args, f.UserID)
		idx++
	}
	if f.Resource != "" {
		q += " AND resource=$" + strconv.Itoa(idx)
		args = append(args, f.Resource)
		idx++
	}
	if f.RecordID != "" {
		q += " AND record_id=$" + strconv.Itoa(idx)
		args = append(args, f.RecordID)
		idx++
	}
	if f.Action != "" {
		q += " AND action=$" + strconv.Itoa(idx)
		args = append(args, f.Action)
		idx++
	}
	if !f.From.IsZero() {
		q += " AND created_at >= $" + strconv.Itoa(idx)
		args = append(args, f.From)
		idx++
	}
	if !f.To.IsZero() {
		q += " AND created_at <= $" + strconv.Itoa(idx)
		args = append(args, f.To)
		idx++
	}
	q += " ORDER BY created_at DESC LIMIT " + strconv.Itoa(clampLimit(f.Limit))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	out := make([]models.AuditLog, 0)
	for rows.Next() {
		var a models.AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.Resource, &a.RecordID, &a.Action, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
