package backup

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/moneymngr/moneymngr/internal/id"
)

const snapshotPrefix = "snapshots/"

var snapshotID = regexp.MustCompile(`^snapshot_[0-9A-Za-z_-]+\.json$`)

// SnapshotInfo describes a stored snapshot. ID is the object name.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

// SnapshotStore keeps named point-in-time copies of the ledger.
type SnapshotStore struct {
	objects ObjectStore
	now     func() time.Time
}

// NewSnapshotStore returns a snapshot store on top of objects.
func NewSnapshotStore(objects ObjectStore) *SnapshotStore {
	return &SnapshotStore{objects: objects, now: time.Now}
}

// Create stores p as a new snapshot.
func (s *SnapshotStore) Create(ctx context.Context, p Payload) (SnapshotInfo, error) {
	now := s.now().UTC()
	name := fmt.Sprintf("snapshot_%s_%s.json", now.Format("2006-01-02T15-04-05Z"), id.Short(id.New()))
	data, err := Encode(p)
	if err != nil {
		return SnapshotInfo{}, err
	}
	if err := s.objects.Put(ctx, snapshotPrefix+name, data); err != nil {
		return SnapshotInfo{}, &RemoteSyncError{Op: "snapshot create", Err: err}
	}
	return SnapshotInfo{ID: name, Name: name, CreatedAt: now, Size: int64(len(data))}, nil
}

// List returns snapshots newest first.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	objs, err := s.objects.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, &RemoteSyncError{Op: "snapshot list", Err: err}
	}
	out := make([]SnapshotInfo, 0, len(objs))
	for _, o := range objs {
		name := path.Base(o.Key)
		if !snapshotID.MatchString(name) || strings.Contains(strings.TrimPrefix(o.Key, snapshotPrefix), "/") {
			continue
		}
		out = append(out, SnapshotInfo{ID: name, Name: name, CreatedAt: o.Created, Size: o.Size})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns the payload of one snapshot.
func (s *SnapshotStore) Get(ctx context.Context, snapshot string) (Payload, error) {
	if !snapshotID.MatchString(snapshot) {
		return Payload{}, fmt.Errorf("invalid snapshot id %q", snapshot)
	}
	data, err := s.objects.Get(ctx, snapshotPrefix+snapshot)
	if err != nil {
		return Payload{}, &RemoteSyncError{Op: "snapshot get", Err: err}
	}
	p, err := Decode(data)
	if err != nil {
		return Payload{}, &RemoteSyncError{Op: "snapshot get", Err: err}
	}
	return p, nil
}

// Delete removes one snapshot.
func (s *SnapshotStore) Delete(ctx context.Context, snapshot string) error {
	if !snapshotID.MatchString(snapshot) {
		return fmt.Errorf("invalid snapshot id %q", snapshot)
	}
	if err := s.objects.Delete(ctx, snapshotPrefix+snapshot); err != nil {
		return &RemoteSyncError{Op: "snapshot delete", Err: err}
	}
	return nil
}

// Snapshot exports the ledger and stores it as a new snapshot.
func (s *Service) Snapshot(ctx context.Context, snaps *SnapshotStore) (SnapshotInfo, error) {
	p, err := Export(ctx, s.store.Queries)
	if err != nil {
		return SnapshotInfo{}, err
	}
	info, err := snaps.Create(ctx, p)
	if err != nil {
		return SnapshotInfo{}, err
	}
	s.log.Info().Str("snapshot", info.ID).Int64("bytes", info.Size).Msg("snapshot created")
	return info, nil
}

// RestoreSnapshot replaces the local ledger with a stored snapshot.
func (s *Service) RestoreSnapshot(ctx context.Context, snaps *SnapshotStore, snapshot string) (Counts, error) {
	p, err := snaps.Get(ctx, snapshot)
	if err != nil {
		return Counts{}, err
	}
	return s.Load(ctx, p, snapshot)
}
