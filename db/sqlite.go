// Package db persists trained models, training runs and served predictions
// in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"langclass/ml"
)

var ErrModelNotFound = errors.New("model not found")

const schema = `
CREATE TABLE IF NOT EXISTS models (
    id TEXT PRIMARY KEY,
    name VARCHAR(64) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    max_depth INTEGER DEFAULT 0,
    examples INTEGER DEFAULT 0,
    payload TEXT NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_models_name ON models(name, created_at);
CREATE TABLE IF NOT EXISTS training_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_id TEXT,
    model_name VARCHAR(64),
    kind VARCHAR(16),
    accuracy REAL,
    precision REAL,
    recall REAL,
    f1 REAL,
    trained_at DATETIME,
    data_points INTEGER
);
CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name VARCHAR(64) NOT NULL,
    sentence TEXT NOT NULL,
    label VARCHAR(2) NOT NULL,
    score REAL,
    created_at DATETIME NOT NULL
);
`

// Store wraps a SQLite database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates the database file and its parent directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return &Store{db: conn}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ModelRecord describes a stored model without its payload.
type ModelRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      ml.Kind   `json:"kind"`
	MaxDepth  int       `json:"max_depth,omitempty"`
	Examples  int       `json:"examples"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveModel stores a new version of the named model.
func (s *Store) SaveModel(ctx context.Context, name string, m ml.Model, examples int) (ModelRecord, error) {
	payload, err := ml.MarshalModel(m)
	if err != nil {
		return ModelRecord{}, err
	}
	rec := ModelRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      m.Kind(),
		Examples:  examples,
		CreatedAt: time.Now().UTC(),
	}
	if dt, ok := m.(*ml.DecisionTree); ok {
		rec.MaxDepth = dt.MaxDepth
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO models (id, name, kind, max_depth, examples, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, string(rec.Kind), rec.MaxDepth, rec.Examples, string(payload), rec.CreatedAt)
	if err != nil {
		return ModelRecord{}, err
	}
	return rec, nil
}

// LoadModel returns the model with the given id, or the newest version stored
// under that name.
func (s *Store) LoadModel(ctx context.Context, ref string) (ml.Model, ModelRecord, error) {
	var (
		rec     ModelRecord
		kind    string
		payload string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, name, kind, max_depth, examples, payload, created_at
        FROM models
        WHERE id = ? OR name = ?
        ORDER BY created_at DESC, rowid DESC
        LIMIT 1`, ref, ref).Scan(&rec.ID, &rec.Name, &kind, &rec.MaxDepth, &rec.Examples, &payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ModelRecord{}, fmt.Errorf("%w: %s", ErrModelNotFound, ref)
	}
	if err != nil {
		return nil, ModelRecord{}, err
	}
	rec.Kind = ml.Kind(kind)
	m, err := ml.UnmarshalModel([]byte(payload))
	if err != nil {
		return nil, ModelRecord{}, fmt.Errorf("model %s: %w", rec.ID, err)
	}
	return m, rec, nil
}

// ListModels returns every stored version, newest first.
func (s *Store) ListModels(ctx context.Context) ([]ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, kind, max_depth, examples, created_at
        FROM models
        ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ModelRecord, 0)
	for rows.Next() {
		var (
			rec  ModelRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &kind, &rec.MaxDepth, &rec.Examples, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = ml.Kind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TrainingLog is one row of the training_log table.
type TrainingLog struct {
	ModelID    string    `json:"model_id,omitempty"`
	ModelName  string    `json:"model_name"`
	Kind       ml.Kind   `json:"kind"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

// NewTrainingLog builds a log entry from an evaluation report.
func NewTrainingLog(rec ModelRecord, r ml.Report) TrainingLog {
	return TrainingLog{
		ModelID:    rec.ID,
		ModelName:  rec.Name,
		Kind:       rec.Kind,
		Accuracy:   r.Accuracy,
		Precision:  r.Precision,
		Recall:     r.Recall,
		F1:         r.F1,
		TrainedAt:  rec.CreatedAt,
		DataPoints: rec.Examples,
	}
}

// LogTraining appends l to the training log.
func (s *Store) LogTraining(ctx context.Context, l TrainingLog) error {
	if l.TrainedAt.IsZero() {
		l.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_id, model_name, kind, accuracy, precision, recall, f1, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ModelID, l.ModelName, string(l.Kind), l.Accuracy, l.Precision, l.Recall, l.F1, l.TrainedAt, l.DataPoints)
	return err
}

// TrainingLogs returns at most limit entries, newest first. limit <= 0 means
// no limit.
func (s *Store) TrainingLogs(ctx context.Context, limit int) ([]TrainingLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_id, model_name, kind, accuracy, precision, recall, f1, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var (
			l    TrainingLog
			kind string
		)
		if err := rows.Scan(&l.ModelID, &l.ModelName, &kind, &l.Accuracy, &l.Precision, &l.Recall, &l.F1, &l.TrainedAt, &l.DataPoints); err != nil {
			return nil, err
		}
		l.Kind = ml.Kind(kind)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Prediction is a served classification as written to the predictions table.
type Prediction struct {
	Sentence string
	Label    ml.Label
	Score    float64
}

// LogPredictions records served predictions in one transaction.
func (s *Store) LogPredictions(ctx context.Context, modelName string, preds []Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO predictions (model_name, sentence, label, score, created_at)
        VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return multierr.Append(err, tx.Rollback())
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range preds {
		if _, err := stmt.ExecContext(ctx, modelName, p.Sentence, string(p.Label), p.Score, now); err != nil {
			return multierr.Append(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// CountPredictions returns how many predictions were logged per label for
// the named model.
func (s *Store) CountPredictions(ctx context.Context, modelName string) (map[ml.Label]int, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT label, COUNT(*) FROM predictions WHERE model_name = ? GROUP BY label`, modelName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[ml.Label]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[ml.Label(label)] = n
	}
	return counts, rows.Err()
}
