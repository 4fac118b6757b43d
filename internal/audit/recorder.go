package audit

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/platform/metrics"
)

// Store persists audit records. Append must join the transaction carried in
// ctx so the record commits or rolls back with the mutation it describes.
type Store interface {
	Append(ctx context.Context, record Record) error
}

// Recorder captures mutations to audited tables at the repository layer:
// snapshot before, snapshot after, diff, write, all inside the caller's
// transaction. A capture failure propagates and aborts that transaction; an
// audited mutation never commits without its record.
type Recorder struct {
	store   Store
	audited map[string]struct{}
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRecorder creates a recorder for the given audited-table list.
func NewRecorder(store Store, tables []string, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	audited := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		audited[t] = struct{}{}
	}
	return &Recorder{store: store, audited: audited, metrics: m, logger: logger}
}

// Audited reports whether the table is on the audited list.
func (r *Recorder) Audited(table string) bool {
	_, ok := r.audited[table]
	return ok
}

// RecordInsert captures a row creation. No-op for unaudited tables.
func (r *Recorder) RecordInsert(ctx context.Context, table, recordID string, newValues map[string]any) error {
	if !r.Audited(table) {
		return nil
	}
	return r.append(ctx, Record{
		TableName: table,
		RecordID:  recordID,
		Action:    ActionInsert,
		NewValues: newValues,
	})
}

// RecordUpdate captures a row change. Only the differing keys are stored in
// OldValues/NewValues. A no-change update writes nothing.
func (r *Recorder) RecordUpdate(ctx context.Context, table, recordID string, oldValues, newValues map[string]any) error {
	if !r.Audited(table) {
		return nil
	}

	changed := ChangedFields(oldValues, newValues)
	if len(changed) == 0 {
		return nil
	}

	oldDiff := make(map[string]any, len(changed))
	newDiff := make(map[string]any, len(changed))
	for _, field := range changed {
		if v, ok := oldValues[field]; ok {
			oldDiff[field] = v
		}
		if v, ok := newValues[field]; ok {
			newDiff[field] = v
		}
	}

	return r.append(ctx, Record{
		TableName:     table,
		RecordID:      recordID,
		Action:        ActionUpdate,
		OldValues:     oldDiff,
		NewValues:     newDiff,
		ChangedFields: changed,
	})
}

// RecordDelete captures a row removal with its final snapshot.
func (r *Recorder) RecordDelete(ctx context.Context, table, recordID string, oldValues map[string]any) error {
	if !r.Audited(table) {
		return nil
	}
	return r.append(ctx, Record{
		TableName: table,
		RecordID:  recordID,
		Action:    ActionDelete,
		OldValues: oldValues,
	})
}

func (r *Recorder) append(ctx context.Context, record Record) error {
	record.ID = uuid.New()
	record.Timestamp = time.Now().UTC()
	record.Source = SourceApplication

	if userID := requestcontext.UserID(ctx); userID != "" {
		record.UserID = &userID
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		record.RequestID = &requestID
	}

	if err := r.store.Append(ctx, record); err != nil {
		return fmt.Errorf("append audit record for %s/%s: %w", record.TableName, record.RecordID, err)
	}

	r.metrics.AuditRecordsWritten.WithLabelValues(string(record.Action)).Inc()
	r.logger.DebugContext(ctx, "audit record written",
		"table", record.TableName,
		"record_id", record.RecordID,
		"action", string(record.Action),
	)
	return nil
}

// ChangedFields returns the sorted keys whose values differ between the two
// snapshots, including keys present on only one side.
func ChangedFields(oldValues, newValues map[string]any) []string {
	keys := make(map[string]struct{}, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = struct{}{}
	}
	for k := range newValues {
		keys[k] = struct{}{}
	}

	var changed []string
	for k := range keys {
		oldV, oldOK := oldValues[k]
		newV, newOK := newValues[k]
		if oldOK != newOK || !reflect.DeepEqual(oldV, newV) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
