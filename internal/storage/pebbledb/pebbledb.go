package pebbledb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

// Key prefixes
const (
	prefixRun   = "run:"   // run:{id} → run JSON
	prefixSt    = "st:"    // st:{status}:{ts}:{id} → empty
	prefixCount = "count:" // count:{status} → int64
)

type PebbleStore struct {
	db *pebble.DB
}

type runData struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`
	CesURL          string                 `json:"ces_url,omitempty"`
	Srid            string                 `json:"srid,omitempty"`
	Token           *string                `json:"token,omitempty"`
	ContainerID     string                 `json:"container_id"`
	ReleaseID       string                 `json:"release_id"`
	TaskLevel       string                 `json:"task_level"`
	TaskIDs         []string               `json:"task_ids"`
	RuntimeConfig   string                 `json:"runtime_config,omitempty"`
	ChangeType      string                 `json:"change_type,omitempty"`
	ExecStat        string                 `json:"exec_stat,omitempty"`
	AutoDeploy      bool                   `json:"auto_deploy"`
	ResponsePayload map[string]interface{} `json:"response_payload,omitempty"`
	Error           *string                `json:"error,omitempty"`
	CreatedAt       int64                  `json:"created_at"` // Unix nano
	DispatchedAt    *int64                 `json:"dispatched_at,omitempty"`
	CompletedAt     *int64                 `json:"completed_at,omitempty"`
}

func New(dbPath string) (*PebbleStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := &pebble.Options{
		Merger: &pebble.Merger{
			Name: "int64_add",
			Merge: func(key, value []byte) (pebble.ValueMerger, error) {
				return &int64Merger{sum: decodeInt64(value)}, nil
			},
		},
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func runKey(id string) []byte {
	return []byte(prefixRun + id)
}

func stKey(status string, ts int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixSt, status, ts, id))
}

func stPrefix(status string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixSt, status))
}

func countKey(status string) []byte {
	return []byte(prefixCount + status)
}

func encodeInt64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func decodeInt64(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

type int64Merger struct {
	sum int64
}

func (m *int64Merger) MergeNewer(value []byte) error {
	m.sum += decodeInt64(value)
	return nil
}

func (m *int64Merger) MergeOlder(value []byte) error {
	m.sum += decodeInt64(value)
	return nil
}

func (m *int64Merger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	return encodeInt64(m.sum), nil, nil
}

func upperBound(prefix []byte) []byte {
	ub := make([]byte, len(prefix))
	copy(ub, prefix)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < 0xff {
			ub[i]++
			return ub
		}
		ub[i] = 0
	}
	return append(ub, 0)
}

func (s *PebbleStore) CreateRun(ctx context.Context, run *storage.RunRecord) error {
	data := toRunData(run)

	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	batch.Set(runKey(run.ID), value, nil)
	batch.Set(stKey(data.Status, data.CreatedAt, run.ID), nil, nil)
	batch.Merge(countKey(data.Status), encodeInt64(1), nil)
	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) GetRun(ctx context.Context, id string) (*storage.RunRecord, error) {
	data, err := s.getRunData(id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return toRunRecord(data), nil
}

func (s *PebbleStore) getRunData(id string) (*runData, error) {
	value, closer, err := s.db.Get(runKey(id))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer closer.Close()

	var data runData
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &data, nil
}

func allStatuses() []string {
	return []string{
		string(types.StatusQueued),
		string(types.StatusProcessing),
		string(types.StatusCompleted),
		string(types.StatusFailed),
	}
}

func (s *PebbleStore) ListRuns(ctx context.Context, filter storage.RunFilter) ([]*storage.RunRecord, int, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}

	var statuses []string
	if filter.Status != nil {
		statuses = []string{string(*filter.Status)}
	} else {
		statuses = allStatuses()
	}

	var records []*storage.RunRecord
	total := 0

	for _, status := range statuses {
		prefix := stPrefix(status)
		iter, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: prefix,
			UpperBound: upperBound(prefix),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create iterator: %w", err)
		}

		// Full per-status count; the cursor narrows the page, not the total.
		for valid := iter.First(); valid; valid = iter.Next() {
			total++
		}

		// The index is ascending by timestamp while listing is newest-first,
		// so walk it in reverse. Index entries at the cursor timestamp sort
		// above the bare cursor key, so SeekLT lands strictly below it.
		var valid bool
		if filter.Cursor != nil {
			valid = iter.SeekLT(stKey(status, filter.Cursor.UnixNano(), ""))
		} else {
			valid = iter.Last()
		}

		collected := 0
		for ; valid && collected < limit; valid = iter.Prev() {
			id := extractIDFromStKey(iter.Key())
			if id == "" {
				continue
			}
			data, err := s.getRunData(id)
			if err != nil {
				iter.Close()
				return nil, 0, err
			}
			if data != nil {
				records = append(records, toRunRecord(data))
				collected++
			}
		}
		iter.Close()
	}

	// Merge the per-status pages into one newest-first page.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
	if len(records) > limit {
		records = records[:limit]
	}

	return records, total, nil
}

func (s *PebbleStore) UpdateRunStatus(ctx context.Context, id string, status types.RunStatus, dispatchedAt time.Time) error {
	data, err := s.getRunData(id)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	oldStatus := data.Status
	ts := data.CreatedAt

	data.Status = string(status)
	dispatchedNano := dispatchedAt.UnixNano()
	data.DispatchedAt = &dispatchedNano

	return s.writeStatusChange(data, oldStatus, ts)
}

func (s *PebbleStore) UpdateRunResponse(ctx context.Context, id string, response map[string]interface{}) error {
	data, err := s.getRunData(id)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	oldStatus := data.Status
	ts := data.CreatedAt

	data.Status = string(types.StatusCompleted)
	data.ResponsePayload = response
	completedNano := time.Now().UnixNano()
	data.CompletedAt = &completedNano

	return s.writeStatusChange(data, oldStatus, ts)
}

func (s *PebbleStore) UpdateRunPayload(ctx context.Context, id string, response map[string]interface{}) error {
	data, err := s.getRunData(id)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	data.ResponsePayload = response

	// Status is unchanged, so the index and counters stay put.
	return s.writeStatusChange(data, data.Status, data.CreatedAt)
}

func (s *PebbleStore) UpdateRunError(ctx context.Context, id string, errMsg string) error {
	data, err := s.getRunData(id)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	oldStatus := data.Status
	ts := data.CreatedAt

	data.Status = string(types.StatusFailed)
	data.Error = &errMsg
	completedNano := time.Now().UnixNano()
	data.CompletedAt = &completedNano

	return s.writeStatusChange(data, oldStatus, ts)
}

// writeStatusChange rewrites the run record and moves its status index entry
// and counters in one atomic batch.
func (s *PebbleStore) writeStatusChange(data *runData, oldStatus string, ts int64) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	batch.Set(runKey(data.ID), value, nil)
	if data.Status != oldStatus {
		batch.Delete(stKey(oldStatus, ts, data.ID), nil)
		batch.Set(stKey(data.Status, ts, data.ID), nil, nil)
		batch.Merge(countKey(oldStatus), encodeInt64(-1), nil)
		batch.Merge(countKey(data.Status), encodeInt64(1), nil)
	}

	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) GetQueuedRuns(ctx context.Context) ([]*storage.RunRecord, error) {
	prefix := stPrefix(string(types.StatusQueued))
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var records []*storage.RunRecord

	for iter.First(); iter.Valid(); iter.Next() {
		id := extractIDFromStKey(iter.Key())
		if id != "" {
			data, err := s.getRunData(id)
			if err != nil {
				return nil, err
			}
			if data != nil {
				records = append(records, toRunRecord(data))
			}
		}
	}

	return records, nil
}

func (s *PebbleStore) GetStats(ctx context.Context) (*types.RunStats, error) {
	stats := &types.RunStats{}

	for _, status := range allStatuses() {
		count := int(s.getCount(status))
		switch types.RunStatus(status) {
		case types.StatusQueued:
			stats.Queued = count
		case types.StatusProcessing:
			stats.Processing = count
		case types.StatusCompleted:
			stats.Completed = count
		case types.StatusFailed:
			stats.Failed = count
		}
		stats.TotalRuns += count
	}

	return stats, nil
}

func (s *PebbleStore) getCount(status string) int64 {
	value, closer, err := s.db.Get(countKey(status))
	if err != nil {
		return 0
	}
	defer closer.Close()
	return decodeInt64(value)
}

// --- Conversion helpers ---

func toRunData(run *storage.RunRecord) *runData {
	data := &runData{
		ID:              run.ID,
		Status:          string(run.Status),
		CesURL:          run.CesURL,
		Srid:            run.Srid,
		Token:           run.Token,
		ContainerID:     run.ContainerID,
		ReleaseID:       run.ReleaseID,
		TaskLevel:       run.TaskLevel,
		TaskIDs:         run.TaskIDs,
		RuntimeConfig:   run.RuntimeConfig,
		ChangeType:      run.ChangeType,
		ExecStat:        run.ExecStat,
		AutoDeploy:      run.AutoDeploy,
		ResponsePayload: run.ResponsePayload,
		Error:           run.Error,
		CreatedAt:       run.CreatedAt.UnixNano(),
	}

	if run.DispatchedAt != nil {
		ts := run.DispatchedAt.UnixNano()
		data.DispatchedAt = &ts
	}
	if run.CompletedAt != nil {
		ts := run.CompletedAt.UnixNano()
		data.CompletedAt = &ts
	}

	return data
}

func toRunRecord(data *runData) *storage.RunRecord {
	record := &storage.RunRecord{
		ID:              data.ID,
		Status:          types.RunStatus(data.Status),
		CesURL:          data.CesURL,
		Srid:            data.Srid,
		Token:           data.Token,
		ContainerID:     data.ContainerID,
		ReleaseID:       data.ReleaseID,
		TaskLevel:       data.TaskLevel,
		TaskIDs:         data.TaskIDs,
		RuntimeConfig:   data.RuntimeConfig,
		ChangeType:      data.ChangeType,
		ExecStat:        data.ExecStat,
		AutoDeploy:      data.AutoDeploy,
		ResponsePayload: data.ResponsePayload,
		Error:           data.Error,
		CreatedAt:       time.Unix(0, data.CreatedAt),
	}

	if data.DispatchedAt != nil {
		t := time.Unix(0, *data.DispatchedAt)
		record.DispatchedAt = &t
	}
	if data.CompletedAt != nil {
		t := time.Unix(0, *data.CompletedAt)
		record.CompletedAt = &t
	}

	return record
}

// extractIDFromStKey extracts the run ID from a status key
// Key format: st:{status}:{ts}:{id}
func extractIDFromStKey(key []byte) string {
	parts := bytes.Split(key, []byte(":"))
	if len(parts) >= 4 {
		return string(parts[len(parts)-1])
	}
	return ""
}
