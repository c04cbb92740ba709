//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "shieldgate/pkg/platform/audit"
	"shieldgate/pkg/testutil/containers"
)

type StoreIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(StoreIntegrationSuite))
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *StoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "security_events"))
}

func (s *StoreIntegrationSuite) TestAppendIsIdempotentOnID() {
	ctx := context.Background()
	ev := audit.SecurityEvent{
		ID:        uuid.New(),
		Kind:      audit.KindBruteForceDetected,
		Severity:  audit.SeverityCritical,
		ClientIP:  "203.0.113.9",
		Path:      "/auth/login",
		Method:    "POST",
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
	}

	s.Require().NoError(s.store.Append(ctx, ev))
	s.Require().NoError(s.store.Append(ctx, ev))

	events, err := s.store.ListRecentByIP(ctx, "203.0.113.9", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(ev.ID, events[0].ID)
	s.True(ev.Timestamp.Equal(events[0].Timestamp))
}
