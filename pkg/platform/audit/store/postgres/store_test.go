package postgres

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "shieldgate/pkg/platform/audit"
)

// StoreSuite exercises the SQL issued by the Postgres audit store.
//
// Justification: the publisher retries Append, so the insert must be
// idempotent on event id; scan order must match the column list.
type StoreSuite struct {
	suite.Suite
	db    sqlmock.Sqlmock
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.db = mock
	s.store = New(db)
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.db.ExpectationsWereMet())
}

func (s *StoreSuite) TestAppendInsertsEvent() {
	ev := audit.SecurityEvent{
		ID:        uuid.New(),
		Kind:      audit.KindValidationFailed,
		Severity:  audit.SeverityHigh,
		ClientIP:  "203.0.113.9",
		ClientKey: "ip:203.0.113.9",
		Method:    "POST",
		Path:      "/api/chat",
		Detail:    "BODY",
		RequestID: "req-1",
		UserAgent: "curl/8.4.0",
		Bot:       true,
		Timestamp: s.now,
	}

	s.db.ExpectExec(regexp.QuoteMeta("INSERT INTO security_events")).
		WithArgs(ev.ID, "VALIDATION_FAILED", "HIGH", "203.0.113.9", "ip:203.0.113.9",
			"POST", "/api/chat", "BODY", "req-1", "curl/8.4.0", true, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.Append(s.ctx, ev))
}

func (s *StoreSuite) TestAppendAssignsIDWhenMissing() {
	s.db.ExpectExec(regexp.QuoteMeta("INSERT INTO security_events")).
		WithArgs(sqlmock.AnyArg(), "SLOW_REQUEST", "LOW", "", "", "", "", "", "", "", false, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.Append(s.ctx, audit.SecurityEvent{
		Kind: audit.KindSlowRequest, Severity: audit.SeverityLow, Timestamp: s.now,
	}))
}

func (s *StoreSuite) TestAppendWrapsDriverError() {
	s.db.ExpectExec(regexp.QuoteMeta("INSERT INTO security_events")).
		WillReturnError(errors.New("connection reset"))

	err := s.store.Append(s.ctx, audit.SecurityEvent{Kind: audit.KindIPBlocked, Timestamp: s.now})
	s.ErrorContains(err, "insert security event")
	s.ErrorContains(err, "connection reset")
}

func (s *StoreSuite) TestListRecentByIPScansRows() {
	id := uuid.New()
	rows := sqlmock.NewRows([]string{
		"id", "kind", "severity", "client_ip", "client_key", "method", "path",
		"detail", "request_id", "user_agent", "bot", "occurred_at",
	}).AddRow(id.String(), "IP_BLOCKED", "HIGH", "203.0.113.9", "ip:203.0.113.9", "GET", "/",
		"blocked", "req-2", "", false, s.now)

	s.db.ExpectQuery(regexp.QuoteMeta("FROM security_events")).
		WithArgs("203.0.113.9", 10).
		WillReturnRows(rows)

	events, err := s.store.ListRecentByIP(s.ctx, "203.0.113.9", 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(id, events[0].ID)
	s.Equal(audit.KindIPBlocked, events[0].Kind)
	s.Equal(audit.SeverityHigh, events[0].Severity)
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{
		0:                 100,
		-5:                100,
		1000:              1000,
		math.MaxInt32:     math.MaxInt32,
		math.MaxInt32 + 1: math.MaxInt32,
	}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
