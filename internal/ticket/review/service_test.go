package review

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	dErrors "orgdesk/pkg/domain-errors"
	"orgdesk/pkg/requestcontext"

	"orgdesk/internal/audit"
	auditmem "orgdesk/internal/audit/store/memory"
	"orgdesk/internal/platform/metrics"
	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/status"
	"orgdesk/internal/ticket/store"
)

type captureNotifier struct {
	decided []*models.Ticket
}

func (n *captureNotifier) TicketDecided(_ context.Context, t *models.Ticket) error {
	n.decided = append(n.decided, t)
	return nil
}

type ReviewSuite struct {
	suite.Suite
	tickets  *store.InMemory
	audits   *auditmem.Store
	notifier *captureNotifier
	svc      *Service
	ctx      context.Context
}

func (s *ReviewSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())

	s.tickets = store.NewInMemory()
	s.audits = auditmem.New()
	s.notifier = &captureNotifier{}
	s.svc = New(
		s.tickets,
		audit.NopUnitOfWork{},
		audit.NewRecorder(s.audits, []string{"tickets"}, m, logger),
		status.NewCache(nil),
		s.notifier,
		m,
		logger,
	)
	s.ctx = requestcontext.WithUserID(context.Background(), "admin-7")
}

func TestReviewSuite(t *testing.T) {
	suite.Run(t, new(ReviewSuite))
}

func (s *ReviewSuite) pendingTicket(ticketID string) *models.Ticket {
	t := &models.Ticket{
		ID:             uuid.New(),
		TicketID:       ticketID,
		Type:           models.TypeAccessRequest,
		SubmitterID:    "user-1",
		SubmitterEmail: "jane.doe@example.com",
		Payload:        map[string]any{"organization_id": "org-1", "reason": "access"},
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.tickets.Insert(s.ctx, t))
	return t
}

func (s *ReviewSuite) TestApprovePendingTicket() {
	s.pendingTicket("A00001")

	t, err := s.svc.Decide(s.ctx, "A00001", DecisionApprove, "looks legitimate")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, t.Status)
	s.Equal("admin-7", t.ReviewedBy)
	s.Equal("looks legitimate", t.AdminNotes)
	s.Require().NotNil(t.ReviewedAt)

	stored, err := s.tickets.FindByTicketID(s.ctx, "A00001")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status)

	s.Require().Len(s.notifier.decided, 1)
}

func (s *ReviewSuite) TestRejectRecordsAuditDiff() {
	s.pendingTicket("A00001")

	_, err := s.svc.Decide(s.ctx, "A00001", DecisionReject, "insufficient justification")
	s.Require().NoError(err)

	records := s.audits.All()
	s.Require().Len(records, 1)
	rec := records[0]
	s.Equal(audit.ActionUpdate, rec.Action)
	s.Require().NotNil(rec.UserID)
	s.Equal("admin-7", *rec.UserID)
	s.Contains(rec.ChangedFields, "status")
	s.Contains(rec.ChangedFields, "admin_notes")
	s.Contains(rec.ChangedFields, "reviewed_by")
	s.NotContains(rec.ChangedFields, "submitter_id", "unchanged fields stay out of the diff")
	s.Equal("pending", rec.OldValues["status"])
	s.Equal("rejected", rec.NewValues["status"])
}

func (s *ReviewSuite) TestDecisionOnTerminalTicketConflicts() {
	s.pendingTicket("A00001")
	_, err := s.svc.Decide(s.ctx, "A00001", DecisionApprove, "")
	s.Require().NoError(err)

	_, err = s.svc.Decide(s.ctx, "A00001", DecisionReject, "changed my mind")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Len(s.audits.All(), 1, "the rejected second decision must not be audited")
}

// stalePendingStore serves reads as pending snapshots regardless of the
// stored status, so two decisions can both load the ticket before either
// one writes.
type stalePendingStore struct {
	*store.InMemory
}

func (s *stalePendingStore) FindByTicketID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := s.InMemory.FindByTicketID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	t.Status = models.StatusPending
	t.ReviewedAt = nil
	t.ReviewedBy = ""
	t.AdminNotes = ""
	return t, nil
}

func (s *ReviewSuite) TestRacingDecisionsApplyOnce() {
	s.pendingTicket("A00001")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	svc := New(
		&stalePendingStore{InMemory: s.tickets},
		audit.NopUnitOfWork{},
		audit.NewRecorder(s.audits, []string{"tickets"}, m, logger),
		status.NewCache(nil),
		s.notifier,
		m,
		logger,
	)

	_, err := svc.Decide(s.ctx, "A00001", DecisionApprove, "")
	s.Require().NoError(err)

	// The second reviewer read pending before the first write landed; the
	// store's compare-and-swap must reject the overwrite.
	_, err = svc.Decide(s.ctx, "A00001", DecisionReject, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.tickets.FindByTicketID(s.ctx, "A00001")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, stored.Status, "the losing decision must not reach the store")
	s.Len(s.audits.All(), 1, "only the winning decision is audited")
	s.Len(s.notifier.decided, 1, "only the winning decision notifies")
}

func (s *ReviewSuite) TestUnknownTicket() {
	_, err := s.svc.Decide(s.ctx, "A99999", DecisionApprove, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ReviewSuite) TestUnknownDecision() {
	s.pendingTicket("A00001")

	_, err := s.svc.Decide(s.ctx, "A00001", Decision("defer"), "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ReviewSuite) TestGetFallsBackToCacheState() {
	t, state, err := s.svc.Get(s.ctx, s.pendingTicket("A00001").TicketID)
	s.Require().NoError(err)
	s.Require().NotNil(t)
	s.Equal("pending", state)

	_, _, err = s.svc.Get(s.ctx, "A99999")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
