package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/platform/metrics"
)

// captureStore records appended audit records; fail makes Append error.
type captureStore struct {
	records []Record
	fail    error
}

func (s *captureStore) Append(_ context.Context, record Record) error {
	if s.fail != nil {
		return s.fail
	}
	s.records = append(s.records, record)
	return nil
}

type RecorderSuite struct {
	suite.Suite
	store    *captureStore
	recorder *Recorder
	ctx      context.Context
}

func (s *RecorderSuite) SetupTest() {
	s.store = &captureStore{}
	s.recorder = NewRecorder(
		s.store,
		[]string{"tickets", "organizations"},
		metrics.NewWith(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	s.ctx = context.Background()
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) TestInsertCapturesIdentityFromContext() {
	ctx := requestcontext.WithUserID(s.ctx, "user-9")
	ctx = requestcontext.WithRequestID(ctx, "req-1")

	err := s.recorder.RecordInsert(ctx, "tickets", "id-1", map[string]any{"status": "pending"})
	s.Require().NoError(err)

	s.Require().Len(s.store.records, 1)
	rec := s.store.records[0]
	s.Equal(ActionInsert, rec.Action)
	s.Equal(SourceApplication, rec.Source)
	s.False(rec.Timestamp.IsZero())
	s.Require().NotNil(rec.UserID)
	s.Equal("user-9", *rec.UserID)
	s.Require().NotNil(rec.RequestID)
	s.Equal("req-1", *rec.RequestID)
	s.Nil(rec.OldValues)
	s.Equal("pending", rec.NewValues["status"])
}

func (s *RecorderSuite) TestInsertWithoutIdentityRecordsNull() {
	err := s.recorder.RecordInsert(s.ctx, "tickets", "id-1", map[string]any{"status": "pending"})
	s.Require().NoError(err)

	s.Require().Len(s.store.records, 1)
	s.Nil(s.store.records[0].UserID)
	s.Nil(s.store.records[0].RequestID)
}

func (s *RecorderSuite) TestUpdateStoresOnlyDiff() {
	old := map[string]any{"name": "Old Name", "status": "pending", "notes": ""}
	updated := map[string]any{"name": "New Name", "status": "pending", "notes": ""}

	err := s.recorder.RecordUpdate(s.ctx, "organizations", "id-1", old, updated)
	s.Require().NoError(err)

	s.Require().Len(s.store.records, 1)
	rec := s.store.records[0]
	s.Equal(ActionUpdate, rec.Action)
	s.Equal([]string{"name"}, rec.ChangedFields)
	s.Equal(map[string]any{"name": "Old Name"}, rec.OldValues)
	s.Equal(map[string]any{"name": "New Name"}, rec.NewValues)
}

func (s *RecorderSuite) TestNoChangeUpdateWritesNothing() {
	snapshot := map[string]any{"name": "Same", "status": "pending"}

	err := s.recorder.RecordUpdate(s.ctx, "organizations", "id-1", snapshot, snapshot)
	s.Require().NoError(err)
	s.Empty(s.store.records)
}

func (s *RecorderSuite) TestDeleteCapturesFinalSnapshot() {
	err := s.recorder.RecordDelete(s.ctx, "tickets", "id-1", map[string]any{"status": "approved"})
	s.Require().NoError(err)

	s.Require().Len(s.store.records, 1)
	s.Equal(ActionDelete, s.store.records[0].Action)
	s.Equal("approved", s.store.records[0].OldValues["status"])
	s.Nil(s.store.records[0].NewValues)
}

func (s *RecorderSuite) TestUnauditedTableIsSkipped() {
	err := s.recorder.RecordInsert(s.ctx, "sessions", "id-1", map[string]any{"k": "v"})
	s.Require().NoError(err)
	s.Empty(s.store.records)
}

func (s *RecorderSuite) TestStoreFailurePropagates() {
	s.store.fail = errors.New("disk full")

	err := s.recorder.RecordInsert(s.ctx, "tickets", "id-1", map[string]any{"status": "pending"})
	s.Require().Error(err, "a capture failure must abort the surrounding transaction")
}

func TestChangedFields(t *testing.T) {
	tests := []struct {
		name string
		old  map[string]any
		new  map[string]any
		want []string
	}{
		{
			name: "value change",
			old:  map[string]any{"a": 1, "b": "x"},
			new:  map[string]any{"a": 2, "b": "x"},
			want: []string{"a"},
		},
		{
			name: "added and removed keys",
			old:  map[string]any{"a": 1},
			new:  map[string]any{"b": 2},
			want: []string{"a", "b"},
		},
		{
			name: "no change",
			old:  map[string]any{"a": []string{"x"}},
			new:  map[string]any{"a": []string{"x"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangedFields(tt.old, tt.new)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}
