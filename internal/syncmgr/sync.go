// Package syncmgr couples the engine to a git working tree used as the
// sync repo. Git operations go through
// go-git/go-git/v5 rather than shelling out, so push/pull/init compose
// cleanly with the engine's own transaction and cancellation model
// instead of spawning a subprocess per call.
package syncmgr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"manifold/internal/conflict"
	"manifold/internal/manifold"
)

// SpecStore is the subset of *store.Store the sync manager needs.
type SpecStore interface {
	GetSpec(specID string) (*manifold.Spec, error)
	PutSpec(spec *manifold.Spec) error
	ListSpecs(filter manifold.Filter) ([]manifold.Summary, error)
	GetSyncMetadata(specID string) (manifold.SyncMetadata, error)
	PutSyncMetadata(meta manifold.SyncMetadata) error
	PutSyncBase(hash string, content []byte) error
	GetSyncBase(hash string) ([]byte, error)
	PutConflict(c manifold.Conflict) error
}

// Manager is the sync manager, bound to one working tree and store.
type Manager struct {
	root   string
	store  SpecStore
	logger *zap.Logger
}

func New(root string, store SpecStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{root: root, store: store, logger: logger}
}

const defaultRemoteName = "origin"

// Init implements `sync_init(path, remote?)`: creates the working tree
// and a git repository if absent, optionally wiring an origin remote.
func (m *Manager) Init(ctx context.Context, remoteURL string) error {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return manifold.Wrap(manifold.KindIO, fmt.Errorf("create sync working tree: %w", err))
	}

	repo, err := git.PlainOpen(m.root)
	if err != nil {
		repo, err = git.PlainInit(m.root, false)
		if err != nil {
			return manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("init git repository: %w", err))
		}
	}

	if remoteURL == "" {
		return nil
	}
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: defaultRemoteName, URLs: []string{remoteURL}})
	if err != nil && err != git.ErrRemoteExists {
		return manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("set remote: %w", err))
	}
	return nil
}

// PushResult is one spec's outcome from a (possibly bulk) push; bulk
// operations return per-item outcomes rather than failing as a whole.
type PushResult struct {
	SpecID string
	Err    error
}

// Push implements `push(spec_ids|all, message, remote?, branch?)`.
func (m *Manager) Push(ctx context.Context, specIDs []string, message, remoteName, branch string) ([]PushResult, error) {
	if remoteName == "" {
		remoteName = defaultRemoteName
	}

	repo, err := git.PlainOpen(m.root)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("open sync repository: %w", err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("open worktree: %w", err))
	}

	ids, err := m.resolveTargets(specIDs)
	if err != nil {
		return nil, err
	}

	results := make([]PushResult, 0, len(ids))
	var anyCommitted bool
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, PushResult{SpecID: id, Err: manifold.Wrap(manifold.KindCancelled, err)})
			continue
		}

		spec, err := m.store.GetSpec(id)
		if err != nil {
			results = append(results, PushResult{SpecID: id, Err: err})
			continue
		}

		content, err := manifold.MarshalCanonical(spec)
		if err != nil {
			results = append(results, PushResult{SpecID: id, Err: manifold.Wrap(manifold.KindIO, err)})
			continue
		}

		filename := specFilename(id)
		if err := os.WriteFile(filepath.Join(m.root, filename), content, 0o644); err != nil {
			results = append(results, PushResult{SpecID: id, Err: manifold.Wrap(manifold.KindIO, err)})
			continue
		}
		if _, err := wt.Add(filename); err != nil {
			results = append(results, PushResult{SpecID: id, Err: manifold.Wrap(manifold.KindRemoteFailure, err)})
			continue
		}

		hash := contentHash(content)
		if err := m.store.PutSyncBase(hash, content); err != nil {
			results = append(results, PushResult{SpecID: id, Err: err})
			continue
		}
		results = append(results, PushResult{SpecID: id})
		anyCommitted = true
	}

	if anyCommitted {
		if _, err := wt.Commit(message, &git.CommitOptions{
			Author: &object.Signature{Name: "manifold", Email: "manifold@local", When: time.Now()},
		}); err != nil {
			return results, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("commit: %w", err))
		}

		if hasRemote(repo, remoteName) {
			pushOpts := &git.PushOptions{RemoteName: remoteName}
			if branch != "" {
				pushOpts.RefSpecs = []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))}
			}
			if err := repo.PushContext(ctx, pushOpts); err != nil && err != git.NoErrAlreadyUpToDate {
				return results, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("push: %w", err))
			}
		}
	}

	now := time.Now()
	for i, r := range results {
		if r.Err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(m.root, specFilename(r.SpecID)))
		if err != nil {
			results[i].Err = manifold.Wrap(manifold.KindIO, err)
			continue
		}
		meta := manifold.SyncMetadata{
			SpecID:            r.SpecID,
			LastSyncTimestamp: now,
			LastSyncHash:      contentHash(content),
			RemoteBranch:      branch,
			SyncStatus:        manifold.SyncClean,
		}
		if err := m.store.PutSyncMetadata(meta); err != nil {
			results[i].Err = err
		}
	}

	return results, nil
}

// PullResult is one spec's outcome from a pull.
type PullResult struct {
	SpecID    string
	Conflicts int
	Err       error
}

// Pull implements `pull(spec_ids|all, remote?, branch?)`.
func (m *Manager) Pull(ctx context.Context, specIDs []string, remoteName, branch string) ([]PullResult, error) {
	if remoteName == "" {
		remoteName = defaultRemoteName
	}

	repo, err := git.PlainOpen(m.root)
	if err != nil {
		return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("open sync repository: %w", err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("open worktree: %w", err))
	}

	// No origin configured yet (sync_init was never given a remote): the
	// working tree is the only copy, so reconciliation works directly
	// against whatever is on disk instead of failing the whole pull.
	if hasRemote(repo, remoteName) {
		fetchErr := repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName})
		if fetchErr != nil && fetchErr != git.NoErrAlreadyUpToDate {
			return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("fetch: %w", fetchErr))
		}

		pullOpts := &git.PullOptions{RemoteName: remoteName}
		if branch != "" {
			pullOpts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		}
		if err := wt.PullContext(ctx, pullOpts); err != nil && err != git.NoErrAlreadyUpToDate {
			return nil, manifold.Wrap(manifold.KindRemoteFailure, fmt.Errorf("pull: %w", err))
		}
	}

	ids, err := m.resolveTargets(specIDs)
	if err != nil {
		return nil, err
	}

	results := make([]PullResult, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, PullResult{SpecID: id, Err: manifold.Wrap(manifold.KindCancelled, err)})
			continue
		}

		remoteBytes, err := os.ReadFile(filepath.Join(m.root, specFilename(id)))
		if err != nil {
			results = append(results, PullResult{SpecID: id, Err: manifold.Wrap(manifold.KindIO, err)})
			continue
		}
		remoteSpec, err := manifold.UnmarshalCanonical(remoteBytes)
		if err != nil {
			results = append(results, PullResult{SpecID: id, Err: manifold.Wrap(manifold.KindIO, err)})
			continue
		}

		localSpec, err := m.store.GetSpec(id)
		if err != nil {
			results = append(results, PullResult{SpecID: id, Err: err})
			continue
		}

		var baseSpec *manifold.Spec
		if meta, err := m.store.GetSyncMetadata(id); err == nil && meta.LastSyncHash != "" {
			if baseBytes, err := m.store.GetSyncBase(meta.LastSyncHash); err == nil {
				baseSpec, _ = manifold.UnmarshalCanonical(baseBytes)
			}
		}

		conflicts := conflict.Detect(localSpec, remoteSpec, baseSpec)

		if len(conflicts) == 0 {
			if err := m.store.PutSpec(remoteSpec); err != nil {
				results = append(results, PullResult{SpecID: id, Err: err})
				continue
			}
			hash := contentHash(remoteBytes)
			if err := m.store.PutSyncBase(hash, remoteBytes); err != nil {
				results = append(results, PullResult{SpecID: id, Err: err})
				continue
			}
			meta := manifold.SyncMetadata{
				SpecID: id, LastSyncTimestamp: now, LastSyncHash: hash,
				RemoteBranch: branch, SyncStatus: manifold.SyncClean,
			}
			if err := m.store.PutSyncMetadata(meta); err != nil {
				results = append(results, PullResult{SpecID: id, Err: err})
				continue
			}
			results = append(results, PullResult{SpecID: id})
			continue
		}

		for i := range conflicts {
			conflicts[i].ID = manifold.NewConflictID()
			conflicts[i].SpecID = id
			conflicts[i].DetectedAt = now
			conflicts[i].Status = manifold.ConflictUnresolved
			if err := m.store.PutConflict(conflicts[i]); err != nil {
				results = append(results, PullResult{SpecID: id, Err: err})
				continue
			}
		}
		meta := manifold.SyncMetadata{SpecID: id, LastSyncTimestamp: now, SyncStatus: manifold.SyncConflicted}
		if existing, err := m.store.GetSyncMetadata(id); err == nil {
			meta.LastSyncHash = existing.LastSyncHash
			meta.RemoteBranch = existing.RemoteBranch
		}
		if err := m.store.PutSyncMetadata(meta); err != nil {
			results = append(results, PullResult{SpecID: id, Err: err})
			continue
		}
		results = append(results, PullResult{SpecID: id, Conflicts: len(conflicts)})
	}

	return results, nil
}

// StatusEntry reports one spec's sync posture.
type StatusEntry struct {
	SpecID      string
	SyncStatus  manifold.SyncStatus
	LocalDirty  bool
	RemoteAhead bool
}

// Status implements `status() → [(spec_id, sync_status, local_dirty?, remote_ahead?)]`.
func (m *Manager) Status(ctx context.Context) ([]StatusEntry, error) {
	summaries, err := m.store.ListSpecs(manifold.Filter{})
	if err != nil {
		return nil, err
	}

	repo, repoErr := git.PlainOpen(m.root)

	entries := make([]StatusEntry, 0, len(summaries))
	for _, sum := range summaries {
		meta, err := m.store.GetSyncMetadata(sum.SpecID)
		if err != nil {
			meta = manifold.SyncMetadata{SpecID: sum.SpecID, SyncStatus: manifold.SyncModified}
		}

		entry := StatusEntry{SpecID: sum.SpecID, SyncStatus: meta.SyncStatus}

		if spec, err := m.store.GetSpec(sum.SpecID); err == nil {
			if content, err := manifold.MarshalCanonical(spec); err == nil {
				entry.LocalDirty = contentHash(content) != meta.LastSyncHash
			}
		}

		if repoErr == nil {
			entry.RemoteAhead = m.remoteAhead(repo, sum.SpecID, meta)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *Manager) remoteAhead(repo *git.Repository, specID string, meta manifold.SyncMetadata) bool {
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(defaultRemoteName, "HEAD"), true)
	if err != nil {
		return false
	}
	head, err := repo.Head()
	if err != nil {
		return false
	}
	return ref.Hash() != head.Hash()
}

func (m *Manager) resolveTargets(specIDs []string) ([]string, error) {
	if len(specIDs) > 0 {
		out := append([]string(nil), specIDs...)
		sort.Strings(out)
		return out, nil
	}
	summaries, err := m.store.ListSpecs(manifold.Filter{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.SpecID
	}
	sort.Strings(ids)
	return ids, nil
}

func hasRemote(repo *git.Repository, name string) bool {
	_, err := repo.Remote(name)
	return err == nil
}

func specFilename(specID string) string { return specID + ".json" }

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
