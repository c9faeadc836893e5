package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversion is one finished image-to-text conversion. Text is stored only
// for accepted conversions. The table is an audit log and is never consulted
// when converting.
type Conversion struct {
	ID                 uuid.UUID `json:"id"`
	CreatedAt          time.Time `json:"createdAt"`
	Source             string    `json:"source"`
	ChatID             int64     `json:"chatId,omitempty"`
	Engine             string    `json:"engine"`
	Model              string    `json:"model"`
	ImageHash          string    `json:"imageHash"`
	Accepted           bool      `json:"accepted"`
	Reason             string    `json:"reason"`
	Score              float64   `json:"score"`
	Confidence         float64   `json:"confidence"`
	ConfidenceReported bool      `json:"confidenceReported"`
	Text               string    `json:"text,omitempty"`
	DurationMs         int64     `json:"durationMs"`
}

type ConversionRepo struct{ DB *sql.DB }

func NewConversionRepo(db *sql.DB) *ConversionRepo { return &ConversionRepo{DB: db} }

const schema = `
create table if not exists conversions (
    id                  uuid primary key,
    created_at          timestamptz not null default now(),
    source              text not null,
    chat_id             bigint,
    engine              text not null,
    model               text not null default '',
    image_hash          text not null,
    accepted            boolean not null,
    reason              text not null,
    score               double precision not null,
    confidence          double precision not null,
    confidence_reported boolean not null,
    text                text,
    duration_ms         bigint not null default 0
);
create index if not exists conversions_created_at_idx on conversions (created_at desc);`

func (r *ConversionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Record inserts c. A zero ID or CreatedAt is filled in.
func (r *ConversionRepo) Record(ctx context.Context, c Conversion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if !c.Accepted {
		c.Text = ""
	}
	const q = `
insert into conversions(id, created_at, source, chat_id, engine, model, image_hash,
                        accepted, reason, score, confidence, confidence_reported, text, duration_ms)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.DB.ExecContext(ctx, q,
		c.ID, c.CreatedAt, c.Source, nullInt64(c.ChatID), c.Engine, c.Model, c.ImageHash,
		c.Accepted, c.Reason, c.Score, c.Confidence, c.ConfidenceReported, nullString(c.Text), c.DurationMs,
	)
	return err
}

// Recent returns up to limit conversions, newest first. limit is clamped to 1..500.
func (r *ConversionRepo) Recent(ctx context.Context, limit int) ([]Conversion, error) {
	limit = ClampLimit(limit)
	const q = `
select id, created_at, source, coalesce(chat_id,0), engine, model, image_hash,
       accepted, reason, score, confidence, confidence_reported, coalesce(text,''), duration_ms
from conversions
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Conversion, 0, limit)
	for rows.Next() {
		var c Conversion
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.Source, &c.ChatID, &c.Engine, &c.Model, &c.ImageHash,
			&c.Accepted, &c.Reason, &c.Score, &c.Confidence, &c.ConfidenceReported, &c.Text, &c.DurationMs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes rows older than age and reports how many went.
func (r *ConversionRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `delete from conversions where created_at < $1`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClampLimit bounds a page size to 1..500, defaulting to 50.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 500:
		return 500
	}
	return limit
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
