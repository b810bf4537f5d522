package store

import (
	"database/sql"
	"fmt"

	"manifold/internal/manifold"
)

// PutSyncMetadata upserts the sync bookkeeping row for a spec:
// last_sync_timestamp, last_sync_hash, remote_branch, sync_status.
func (s *Store) PutSyncMetadata(meta manifold.SyncMetadata) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sync_metadata (spec_id, last_sync_timestamp, last_sync_hash, remote_branch, sync_status)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(spec_id) DO UPDATE SET
				last_sync_timestamp = excluded.last_sync_timestamp,
				last_sync_hash = excluded.last_sync_hash,
				remote_branch = excluded.remote_branch,
				sync_status = excluded.sync_status
		`, meta.SpecID, meta.LastSyncTimestamp, meta.LastSyncHash, meta.RemoteBranch, string(meta.SyncStatus))
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("upsert sync metadata: %w", err))
		}
		return nil
	})
}

// GetSyncMetadata loads the sync row for specID, or manifold.ErrNotFound.
func (s *Store) GetSyncMetadata(specID string) (manifold.SyncMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta manifold.SyncMetadata
	var status string
	err := s.db.QueryRow(`
		SELECT spec_id, last_sync_timestamp, last_sync_hash, remote_branch, sync_status
		FROM sync_metadata WHERE spec_id = ?
	`, specID).Scan(&meta.SpecID, &meta.LastSyncTimestamp, &meta.LastSyncHash, &meta.RemoteBranch, &status)
	if err == sql.ErrNoRows {
		return manifold.SyncMetadata{}, manifold.ErrNotFound
	}
	if err != nil {
		return manifold.SyncMetadata{}, manifold.Wrap(manifold.KindIO, fmt.Errorf("get sync metadata: %w", err))
	}
	meta.SyncStatus = manifold.SyncStatus(status)
	return meta, nil
}

// PutSyncBase stores the merge-base content for a spec under a content
// hash, used by the three-way conflict detector. Writes are
// idempotent: the same hash always maps to the same content.
func (s *Store) PutSyncBase(hash string, content []byte) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT OR IGNORE INTO sync_bases (hash, content) VALUES (?, ?)`, hash, string(content))
		if err != nil {
			return manifold.Wrap(manifold.KindIO, fmt.Errorf("put sync base: %w", err))
		}
		return nil
	})
}

// GetSyncBase retrieves previously stored merge-base content by hash.
func (s *Store) GetSyncBase(hash string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.db.QueryRow(`SELECT content FROM sync_bases WHERE hash = ?`, hash).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, manifold.ErrNotFound
	}
	if err != nil {
		return nil, manifold.Wrap(manifold.KindIO, fmt.Errorf("get sync base: %w", err))
	}
	return []byte(content), nil
}
