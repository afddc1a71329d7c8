package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"openccp/internal/model"
	"openccp/internal/util"
)

const campCols = `id, name, slug, description, color, created_at, scored_at`

func scanCamp(sc interface{ Scan(...any) error }) (model.Camp, error) {
	var c model.Camp
	var created, scored sql.NullInt64
	if err := sc.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &created, &scored); err != nil {
		return c, err
	}
	c.CreatedAt = fromUnix(created)
	if scored.Valid {
		t := fromUnix(scored)
		c.ScoredAt = &t
	}
	return c, nil
}

// CreateCamp inserts a camp; its slug is derived from the name.
func (d *DB) CreateCamp(ctx context.Context, c model.Camp) (model.Camp, error) {
	c.Slug = util.Slugify(c.Name)
	if c.Slug == "" {
		return c, &model.ConfigError{Field: "name", Reason: "must contain a letter or digit"}
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := d.sql.ExecContext(ctx, `INSERT INTO camps(name, slug, description, color, created_at) VALUES(?,?,?,?,?)`,
		c.Name, c.Slug, c.Description, c.Color, c.CreatedAt.Unix())
	if isUnique(err) {
		return c, fmt.Errorf("camp %q: %w", c.Name, model.ErrConflict)
	}
	if err != nil {
		return c, err
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

func (d *DB) GetCamp(ctx context.Context, id int64) (model.Camp, error) {
	c, err := scanCamp(d.sql.QueryRowContext(ctx, `SELECT `+campCols+` FROM camps WHERE id=?`, id))
	return c, notFound(err, fmt.Sprintf("camp %d", id))
}

func (d *DB) GetCampBySlug(ctx context.Context, slug string) (model.Camp, error) {
	c, err := scanCamp(d.sql.QueryRowContext(ctx, `SELECT `+campCols+` FROM camps WHERE slug=?`, strings.ToLower(slug)))
	return c, notFound(err, fmt.Sprintf("camp %q", slug))
}

func (d *DB) ListCamps(ctx context.Context) ([]model.Camp, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+campCols+` FROM camps ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Camp
	for rows.Next() {
		c, err := scanCamp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCamp removes a camp with its keywords, scores, tweet matches and run history.
func (d *DB) DeleteCamp(ctx context.Context, id int64) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM camps WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("camp %d: %w", id, model.ErrNotFound)
	}
	for _, q := range []string{
		`DELETE FROM keywords WHERE camp_id=?`,
		`DELETE FROM camp_scores WHERE camp_id=?`,
		`DELETE FROM tweet_matches WHERE camp_id=?`,
		`DELETE FROM recompute_runs WHERE camp_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddKeyword stores a validated keyword. Terms are unique per camp, case-insensitively.
func (d *DB) AddKeyword(ctx context.Context, k model.Keyword) (model.Keyword, error) {
	if _, err := d.GetCamp(ctx, k.CampID); err != nil {
		return k, err
	}
	k.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := d.sql.ExecContext(ctx, `INSERT INTO keywords(camp_id, term, term_key, weight, sentiment, created_at) VALUES(?,?,?,?,?,?)`,
		k.CampID, k.Term, strings.ToLower(k.Term), k.Weight, string(k.Sentiment), k.CreatedAt.Unix())
	if isUnique(err) {
		return k, fmt.Errorf("keyword %q: %w", k.Term, model.ErrConflict)
	}
	if err != nil {
		return k, err
	}
	k.ID, err = res.LastInsertId()
	return k, err
}

// DeleteKeyword removes a keyword and returns the camp it belonged to.
func (d *DB) DeleteKeyword(ctx context.Context, id int64) (int64, error) {
	var campID int64
	err := d.sql.QueryRowContext(ctx, `DELETE FROM keywords WHERE id=? RETURNING camp_id`, id).Scan(&campID)
	return campID, notFound(err, fmt.Sprintf("keyword %d", id))
}

// CampKeywords returns a camp's keywords in creation order.
func (d *DB) CampKeywords(ctx context.Context, campID int64) ([]model.Keyword, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT id, camp_id, term, weight, sentiment, created_at FROM keywords WHERE camp_id=? ORDER BY id`, campID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Keyword
	for rows.Next() {
		var k model.Keyword
		var s string
		var created sql.NullInt64
		if err := rows.Scan(&k.ID, &k.CampID, &k.Term, &k.Weight, &s, &created); err != nil {
			return nil, err
		}
		k.Sentiment = model.Sentiment(s)
		k.CreatedAt = fromUnix(created)
		out = append(out, k)
	}
	return out, rows.Err()
}
