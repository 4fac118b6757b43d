package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/audit"
	auditmem "orgdesk/internal/audit/store/memory"
)

type QuerySuite struct {
	suite.Suite
	store *auditmem.Store
	svc   *Service
	ctx   context.Context
}

func (s *QuerySuite) SetupTest() {
	s.store = auditmem.New()
	s.svc = New(s.store, []string{"password", "api_key"})
	s.ctx = context.Background()
}

func TestQuerySuite(t *testing.T) {
	suite.Run(t, new(QuerySuite))
}

func (s *QuerySuite) appendRecord(ts time.Time, table, recordID, userID string, values map[string]any) audit.Record {
	rec := audit.Record{
		ID:        uuid.New(),
		Timestamp: ts,
		TableName: table,
		RecordID:  recordID,
		Action:    audit.ActionUpdate,
		NewValues: values,
		Source:    audit.SourceApplication,
	}
	if userID != "" {
		rec.UserID = &userID
	}
	s.Require().NoError(s.store.Append(s.ctx, rec))
	return rec
}

func (s *QuerySuite) TestFiltersByEntityAndActor() {
	now := time.Now().UTC()
	s.appendRecord(now, "tickets", "t-1", "user-1", nil)
	s.appendRecord(now.Add(time.Second), "tickets", "t-2", "user-2", nil)
	s.appendRecord(now.Add(2*time.Second), "organizations", "o-1", "user-1", nil)

	page, err := s.svc.List(s.ctx, Params{Table: "tickets", RecordID: "t-1"})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal("t-1", page.Records[0].RecordID)

	page, err = s.svc.List(s.ctx, Params{UserID: "user-1"})
	s.Require().NoError(err)
	s.Len(page.Records, 2)
}

func (s *QuerySuite) TestRedactsSensitiveKeysForRegularCallers() {
	s.appendRecord(time.Now().UTC(), "tickets", "t-1", "user-1", map[string]any{
		"reason":     "need access",
		"password":   "hunter2",
		"my_api_key": "abc123",
	})

	page, err := s.svc.List(s.ctx, Params{Table: "tickets"})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)

	values := page.Records[0].NewValues
	s.Equal("need access", values["reason"])
	s.Equal(Marker, values["password"])
	s.Equal(Marker, values["my_api_key"], "substring matches are redacted too")
}

func (s *QuerySuite) TestComplianceRoleSeesRawValues() {
	s.appendRecord(time.Now().UTC(), "tickets", "t-1", "user-1", map[string]any{
		"password": "hunter2",
	})

	ctx := requestcontext.WithRole(s.ctx, RoleCompliance)
	page, err := s.svc.List(ctx, Params{Table: "tickets"})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal("hunter2", page.Records[0].NewValues["password"])
}

func (s *QuerySuite) TestPaginatesWithCursor() {
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		s.appendRecord(base.Add(time.Duration(i)*time.Second), "tickets", "t-1", "user-1", nil)
	}

	first, err := s.svc.List(s.ctx, Params{Table: "tickets", Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(first.Records, 2)
	s.Require().NotEmpty(first.NextCursor)

	second, err := s.svc.List(s.ctx, Params{Table: "tickets", Limit: 2, Cursor: first.NextCursor})
	s.Require().NoError(err)
	s.Require().Len(second.Records, 2)

	// Newest first, no overlap across pages.
	s.True(first.Records[1].Timestamp.After(second.Records[0].Timestamp))

	third, err := s.svc.List(s.ctx, Params{Table: "tickets", Limit: 2, Cursor: second.NextCursor})
	s.Require().NoError(err)
	s.Len(third.Records, 1)
	s.Empty(third.NextCursor)
}

func (s *QuerySuite) TestRejectsInvalidParams() {
	tests := []struct {
		name   string
		params Params
		field  string
	}{
		{"record id without table", Params{RecordID: "t-1"}, "record_id"},
		{"unknown action", Params{Action: "UPSERT"}, "action"},
		{"bad since", Params{Since: "yesterday"}, "since"},
		{"limit too large", Params{Limit: 1000}, "limit"},
		{"negative limit", Params{Limit: -1}, "limit"},
		{"garbage cursor", Params{Cursor: "!!not-base64!!"}, "cursor"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.List(s.ctx, tt.params)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

			var de *dErrors.Error
			s.Require().ErrorAs(err, &de)
			s.Contains(de.Fields, tt.field)
		})
	}
}

func (s *QuerySuite) TestSinceFilter() {
	base := time.Now().UTC()
	s.appendRecord(base.Add(-2*time.Hour), "tickets", "t-1", "user-1", nil)
	s.appendRecord(base, "tickets", "t-2", "user-1", nil)

	page, err := s.svc.List(s.ctx, Params{Since: base.Add(-time.Hour).Format(time.RFC3339)})
	s.Require().NoError(err)
	s.Require().Len(page.Records, 1)
	s.Equal("t-2", page.Records[0].RecordID)
}
