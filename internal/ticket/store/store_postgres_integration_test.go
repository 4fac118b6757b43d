//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"orgdesk/internal/ticket/models"
	"orgdesk/internal/ticket/store"
	"orgdesk/pkg/platform/sentinel"
	"orgdesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "tickets", "audit_log")
	s.Require().NoError(err)
}

func newTicket(ticketID string) *models.Ticket {
	return &models.Ticket{
		ID:             uuid.New(),
		TicketID:       ticketID,
		Type:           models.TypeOrgSuggestion,
		SubmitterID:    "user-1",
		SubmitterEmail: "jane.doe@example.com",
		Payload:        map[string]any{"name": "New Clinic", "latitude": 52.52},
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestInsertAndFindRoundTrip() {
	ctx := context.Background()
	t := newTicket("S00001")
	s.Require().NoError(s.store.Insert(ctx, t))

	found, err := s.store.FindByTicketID(ctx, "S00001")
	s.Require().NoError(err)
	s.Equal(t.ID, found.ID)
	s.Equal(models.TypeOrgSuggestion, found.Type)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("New Clinic", found.Payload["name"])
	s.Equal(52.52, found.Payload["latitude"])
}

func (s *PostgresStoreSuite) TestDuplicateTicketID() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, newTicket("S00001")))

	err := s.store.Insert(ctx, newTicket("S00001"))
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrDuplicate)
}

func (s *PostgresStoreSuite) TestUpdateReviewFields() {
	ctx := context.Background()
	t := newTicket("S00001")
	s.Require().NoError(s.store.Insert(ctx, t))

	now := time.Now().UTC().Truncate(time.Microsecond)
	t.Status = models.StatusApproved
	t.ReviewedAt = &now
	t.ReviewedBy = "admin-1"
	t.AdminNotes = "verified on site"
	s.Require().NoError(s.store.Update(ctx, t))

	found, err := s.store.FindByTicketID(ctx, "S00001")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Equal("admin-1", found.ReviewedBy)
	s.Equal("verified on site", found.AdminNotes)
	s.Require().NotNil(found.ReviewedAt)
}

func (s *PostgresStoreSuite) TestUpdateTerminalTicketRejected() {
	ctx := context.Background()
	t := newTicket("S00001")
	s.Require().NoError(s.store.Insert(ctx, t))

	now := time.Now().UTC().Truncate(time.Microsecond)
	t.Status = models.StatusApproved
	t.ReviewedAt = &now
	t.ReviewedBy = "admin-1"
	s.Require().NoError(s.store.Update(ctx, t))

	t.Status = models.StatusRejected
	t.ReviewedBy = "admin-2"
	err := s.store.Update(ctx, t)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByTicketID(ctx, "S00001")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status, "the terminal row must keep the first decision")
	s.Equal("admin-1", found.ReviewedBy)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByTicketID(ctx, "S99999")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(ctx, newTicket("S99999"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
