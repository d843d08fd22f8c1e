package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-io/castellan/internal/authz"
)

type stubAuditRepo struct {
	entries   []Entry
	insertErr error
	listCalls int
	lastList  ListFilters
}

func (s *stubAuditRepo) Insert(ctx context.Context, entry Entry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAuditRepo) List(ctx context.Context, filters ListFilters) ([]Entry, error) {
	s.listCalls++
	s.lastList = filters
	return s.entries, nil
}

type stubNotifier struct {
	notified []Entry
	err      error
}

func (s *stubNotifier) NotifyImpersonation(ctx context.Context, entry Entry) error {
	s.notified = append(s.notified, entry)
	return s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func adminCtx(subject string, requested string) context.Context {
	actx := authz.NewContext(authz.Identity{
		Subject: subject,
		Email:   subject + "@example.com",
		Roles:   []string{"admin"},
	}, requested)
	return authz.ContextWith(context.Background(), actx)
}

func editorCtx() context.Context {
	actx := authz.NewContext(authz.Identity{Subject: "user-9", Roles: []string{"editor"}}, "")
	return authz.ContextWith(context.Background(), actx)
}

func TestLogKeysEntryToRealIdentity(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())

	// Impersonating admin: the entry must carry the real identity.
	res := svc.LogImpersonation(adminCtx("admin-1", "editor"), []string{"editor"}, "start")
	require.True(t, res.Success, res.Message)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	assert.Equal(t, "admin-1", entry.RealUserID)
	assert.Equal(t, "admin-1@example.com", entry.RealUserEmail)
	assert.Equal(t, EventImpersonationStart, entry.EventType)
	assert.Equal(t, []string{"editor"}, entry.EventData["requested_roles"])
	assert.NotEmpty(t, entry.EventData["impersonation_id"])
	assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLogSoftDeniesNonAdmin(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())

	res := svc.Log(editorCtx(), EventImpersonationStart, nil)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, repo.entries, "denied log must not persist")
}

func TestLogRejectsUnknownEventType(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())

	res := svc.Log(adminCtx("admin-1", ""), "password_change", nil)
	assert.False(t, res.Success)
	assert.Empty(t, repo.entries)
}

func TestLogImpersonationStartNotifies(t *testing.T) {
	repo := &stubAuditRepo{}
	notifier := &stubNotifier{}
	svc := NewService(repo, notifier, nil, testLogger())

	res := svc.LogImpersonation(adminCtx("admin-1", "editor"), []string{"editor"}, "start")
	require.True(t, res.Success)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, EventImpersonationStart, notifier.notified[0].EventType)

	res = svc.LogImpersonation(adminCtx("admin-1", ""), nil, "stop")
	require.True(t, res.Success)
	assert.Len(t, notifier.notified, 1, "stop must not notify")
}

func TestLogNotifierFailureIsSwallowed(t *testing.T) {
	repo := &stubAuditRepo{}
	notifier := &stubNotifier{err: errors.New("queue down")}
	svc := NewService(repo, notifier, nil, testLogger())

	res := svc.LogImpersonation(adminCtx("admin-1", "editor"), []string{"editor"}, "start")
	assert.True(t, res.Success, "audit write succeeded; notifier failure is best-effort")
	assert.Len(t, repo.entries, 1)
}

func TestLogImpersonationRejectsUnknownAction(t *testing.T) {
	svc := NewService(&stubAuditRepo{}, nil, nil, testLogger())
	res := svc.LogImpersonation(adminCtx("admin-1", ""), nil, "pause")
	assert.False(t, res.Success)
}

func TestLogInsertFailureIsSoft(t *testing.T) {
	repo := &stubAuditRepo{insertErr: errors.New("disk full")}
	svc := NewService(repo, nil, nil, testLogger())

	res := svc.Log(adminCtx("admin-1", ""), EventImpersonationStop, nil)
	assert.False(t, res.Success)
}

func TestListIsHardGatedToRealAdmins(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())

	_, err := svc.List(editorCtx(), "", 0, 0)
	require.ErrorIs(t, err, ErrAccessViolation)
	assert.Zero(t, repo.listCalls)

	// An impersonating real admin keeps read access.
	_, err = svc.List(adminCtx("admin-1", "editor"), "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestListClampsPaging(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())

	_, err := svc.List(adminCtx("admin-1", ""), "impersonation_start", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, ListFilters{EventType: "impersonation_start", Limit: defaultListLimit, Offset: 0}, repo.lastList)

	_, err = svc.List(adminCtx("admin-1", ""), "", 9999, 10)
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, repo.lastList.Limit)
	assert.Equal(t, 10, repo.lastList.Offset)
}

func TestEntriesUseUTCTimestamps(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewService(repo, nil, nil, testLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 4, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	}

	res := svc.Log(adminCtx("admin-1", ""), EventImpersonationStop, nil)
	require.True(t, res.Success)
	assert.Equal(t, time.UTC, repo.entries[0].CreatedAt.Location())
}
