package telemetry

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/hideseek/game"
	"github.com/pthm-cable/hideseek/rng"
)

// Checkpoint is one stored episode reference: the stream key that
// regenerates the episode plus the tick it was captured at.
type Checkpoint struct {
	ID        string
	World     uint32
	Step      int32
	Key       rng.Key
	BaseKey   rng.Key
	CreatedAt time.Time
}

// CheckpointStore persists episode checkpoints in a SQLite database.
// The world snapshot at capture time rides along as a compressed blob
// for offline inspection; replay only needs the key.
type CheckpointStore struct {
	db *sql.DB
}

// OpenCheckpointStore opens or creates the checkpoint database at path.
func OpenCheckpointStore(path string) (*CheckpointStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty checkpoint db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	schema := `CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		world INTEGER NOT NULL,
		step INTEGER NOT NULL,
		key_a INTEGER NOT NULL,
		key_b INTEGER NOT NULL,
		base_a INTEGER NOT NULL,
		base_b INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		snapshot BLOB NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &CheckpointStore{db: db}, nil
}

// Save captures a checkpoint of one world and returns its id.
func (s *CheckpointStore) Save(w *game.World) (string, error) {
	var export game.WorldExport
	w.Export(&export)

	blob, err := compressSnapshot(&export)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	key := w.EpisodeKey()
	base := w.BaseKey()
	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO checkpoints (id, world, step, key_a, key_b, base_a, base_b, created_at, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, export.WorldIndex, export.Step, key.A, key.B, base.A, base.B,
		time.Now().UTC().Format(time.RFC3339), blob,
	)
	if err != nil {
		return "", fmt.Errorf("inserting checkpoint: %w", err)
	}
	return id, nil
}

// Load retrieves a checkpoint by id.
func (s *CheckpointStore) Load(id string) (Checkpoint, error) {
	var (
		cp        Checkpoint
		createdAt string
	)
	row := s.db.QueryRow(
		`SELECT id, world, step, key_a, key_b, base_a, base_b, created_at
		 FROM checkpoints WHERE id = ?`, id)
	if err := row.Scan(&cp.ID, &cp.World, &cp.Step, &cp.Key.A, &cp.Key.B,
		&cp.BaseKey.A, &cp.BaseKey.B, &createdAt); err != nil {
		return Checkpoint{}, fmt.Errorf("loading checkpoint %s: %w", id, err)
	}
	cp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return cp, nil
}

// LoadLatest retrieves the most recently saved checkpoint, or an error
// when the store is empty.
func (s *CheckpointStore) LoadLatest() (Checkpoint, error) {
	var (
		cp        Checkpoint
		createdAt string
	)
	row := s.db.QueryRow(
		`SELECT id, world, step, key_a, key_b, base_a, base_b, created_at
		 FROM checkpoints ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	if err := row.Scan(&cp.ID, &cp.World, &cp.Step, &cp.Key.A, &cp.Key.B,
		&cp.BaseKey.A, &cp.BaseKey.B, &createdAt); err != nil {
		return Checkpoint{}, fmt.Errorf("loading latest checkpoint: %w", err)
	}
	cp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return cp, nil
}

// LoadSnapshot retrieves and decodes the stored world snapshot blob.
func (s *CheckpointStore) LoadSnapshot(id string) (*game.WorldExport, error) {
	var blob []byte
	row := s.db.QueryRow(`SELECT snapshot FROM checkpoints WHERE id = ?`, id)
	if err := row.Scan(&blob); err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return decompressSnapshot(blob)
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

func compressSnapshot(export *game.WorldExport) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(enc).Encode(export); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressSnapshot(blob []byte) (*game.WorldExport, error) {
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var export game.WorldExport
	if err := json.NewDecoder(dec).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &export, nil
}
