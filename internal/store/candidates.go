package store

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Candidate is one classified post with its decayed relevance score.
// FirstSeen and LastScored are unix milliseconds.
type Candidate struct {
	URI        string
	CID        string
	FirstSeen  int64
	LastScored int64
	Score      float64
	BoostMod   float64
}

// AgeHours returns the candidate age in hours at the given instant.
func (c *Candidate) AgeHours(now time.Time) float64 {
	return float64(now.UnixMilli()-c.FirstSeen) / 3600000
}

// InsertCandidate inserts a newly classified candidate. A conflicting URI is
// ignored: re-ingesting the same post never resets first_seen or boost_mod.
func (db *DB) InsertCandidate(c *Candidate) error {
	_, err := db.Exec(`
		INSERT INTO candidates (uri, cid, first_seen, last_scored, score, boost_mod)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO NOTHING
	`, c.URI, c.CID, c.FirstSeen, c.LastScored, c.Score, c.BoostMod)
	if err != nil {
		return fmt.Errorf("insert candidate %s: %w", c.URI, err)
	}
	return nil
}

// UpdateScore persists a recomputed score. The full row is written so the
// call is a row-level atomic upsert; only score and last_scored change on
// conflict.
func (db *DB) UpdateScore(c *Candidate, score float64, scoredAt int64) error {
	_, err := db.Exec(`
		INSERT INTO candidates (uri, cid, first_seen, last_scored, score, boost_mod)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET score = ?, last_scored = ?
	`, c.URI, c.CID, c.FirstSeen, scoredAt, score, c.BoostMod, score, scoredAt)
	if err != nil {
		return fmt.Errorf("update score %s: %w", c.URI, err)
	}
	return nil
}

// GetCandidate returns a candidate by URI, or nil if not found.
func (db *DB) GetCandidate(uri string) (*Candidate, error) {
	row := db.QueryRow(`
		SELECT uri, cid, first_seen, last_scored, score, boost_mod
		FROM candidates WHERE uri = ?
	`, uri)

	var c Candidate
	err := row.Scan(&c.URI, &c.CID, &c.FirstSeen, &c.LastScored, &c.Score, &c.BoostMod)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", uri, err)
	}
	return &c, nil
}

// ListCandidates returns every stored candidate, newest first. The refresh
// tier filter runs in Go against this list.
func (db *DB) ListCandidates() ([]Candidate, error) {
	rows, err := db.Query(`
		SELECT uri, cid, first_seen, last_scored, score, boost_mod
		FROM candidates ORDER BY first_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// QueryPage returns up to limit candidates with score > minScore, ordered by
// score descending then first_seen descending. beforeFirstSeen > 0 is an
// exclusive upper bound on first_seen, so pagination walks strictly
// backward in time.
func (db *DB) QueryPage(minScore float64, limit int, beforeFirstSeen int64) ([]Candidate, error) {
	b := sq.Select("uri", "cid", "first_seen", "last_scored", "score", "boost_mod").
		From("candidates").
		Where(sq.Gt{"score": minScore}).
		OrderBy("score DESC", "first_seen DESC").
		Limit(uint64(limit))
	if beforeFirstSeen > 0 {
		b = b.Where(sq.Lt{"first_seen": beforeFirstSeen})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// DeleteCandidates removes the given URIs (upstream delete events).
func (db *DB) DeleteCandidates(uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	query, args, err := sq.Delete("candidates").Where(sq.Eq{"uri": uris}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := db.Exec(query, args...); err != nil {
		return fmt.Errorf("delete candidates: %w", err)
	}
	return nil
}

// DeleteStale removes candidates that are both older than firstSeenBefore
// and scored below scoreBelow. Age alone or low score alone is not enough.
// Returns the number of rows removed.
func (db *DB) DeleteStale(firstSeenBefore int64, scoreBelow float64) (int64, error) {
	query, args, err := sq.Delete("candidates").
		Where(sq.Lt{"first_seen": firstSeenBefore}).
		Where(sq.Lt{"score": scoreBelow}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build stale delete: %w", err)
	}

	res, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale rows affected: %w", err)
	}
	return n, nil
}

// CountCandidates returns the number of stored candidates.
func (db *DB) CountCandidates() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM candidates").Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

func scanCandidates(rows *sql.Rows) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.URI, &c.CID, &c.FirstSeen, &c.LastScored, &c.Score, &c.BoostMod); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}
