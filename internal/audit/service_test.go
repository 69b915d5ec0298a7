package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"clinicore/internal/audit"
	"clinicore/internal/audit/metrics"
	"clinicore/internal/audit/mocks"
	"clinicore/internal/audit/store/memory"
	"clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

// Prometheus collectors register globally; one instance serves every test
// in this binary.
var testMetrics = metrics.New()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecord_WritesEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	service := audit.NewService(mockStore, discardLogger(), testMetrics)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	var written audit.Entry
	mockStore.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry audit.Entry) error {
			written = entry
			return nil
		})

	result := service.Record(ctx, "u1", "patient.updated", audit.Payload{"patient_id": "p9"})

	require.True(t, result.Ok())
	assert.Equal(t, "u1", written.UserID)
	assert.Equal(t, "patient.updated", written.Action)
	assert.Equal(t, now, written.CreatedAt, "entries use the request-scoped time")
	assert.Equal(t, "p9", written.Payload["patient_id"])
	assert.NotEqual(t, written.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestRecord_RetriesOnceThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	service := audit.NewService(mockStore, discardLogger(), testMetrics)

	gomock.InOrder(
		mockStore.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("store hiccup")),
		mockStore.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil),
	)

	result := service.Record(context.Background(), "u1", "sale.created", nil)
	assert.True(t, result.Ok())
}

func TestRecord_ReportsFailureWithoutPanicking(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	service := audit.NewService(mockStore, discardLogger(), testMetrics)

	mockStore.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		Return(errors.New("store unreachable")).
		Times(2)

	result := service.Record(context.Background(), "u1", "sale.created", nil)

	require.False(t, result.Ok(), "a double failure is surfaced as an explicit result, not swallowed")
	assert.Error(t, result.Err)
}

func TestRecord_FoldsClientMetadataIntoPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	service := audit.NewService(mockStore, discardLogger(), testMetrics)

	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.9", "clinic-web/2.1")

	var written audit.Entry
	mockStore.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry audit.Entry) error {
			written = entry
			return nil
		})

	original := audit.Payload{"k": "v"}
	service.Record(ctx, "u1", "a", original)

	assert.Equal(t, "10.0.0.9", written.Payload["client_ip"])
	assert.Equal(t, "clinic-web/2.1", written.Payload["user_agent"])
	assert.NotContains(t, original, "client_ip", "the caller's payload map stays untouched")
}

func TestQuery_ScopesByRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	service := audit.NewService(mockStore, discardLogger(), testMetrics)
	ctx := context.Background()

	t.Run("staff queries restrict to their own entries", func(t *testing.T) {
		mockStore.EXPECT().
			List(gomock.Any(), audit.ScopeUser("u1"), 5).
			Return(nil, nil)
		_, err := service.Query(ctx, domain.Principal{ID: "u1", Role: domain.RoleStaff}, 5)
		require.NoError(t, err)
	})

	t.Run("admin queries see everything", func(t *testing.T) {
		mockStore.EXPECT().
			List(gomock.Any(), audit.ScopeAll(), 5).
			Return(nil, nil)
		_, err := service.Query(ctx, domain.Principal{ID: "u2", Role: domain.RoleAdmin}, 5)
		require.NoError(t, err)
	})

	t.Run("limits above the ceiling are clamped, not rejected", func(t *testing.T) {
		mockStore.EXPECT().
			List(gomock.Any(), audit.ScopeAll(), audit.MaxPageSize).
			Return(nil, nil)
		_, err := service.Query(ctx, domain.Principal{ID: "u2", Role: domain.RoleAdmin}, 500)
		require.NoError(t, err)
	})

	t.Run("non-positive limits get the full page", func(t *testing.T) {
		mockStore.EXPECT().
			List(gomock.Any(), audit.ScopeUser("u1"), audit.MaxPageSize).
			Return(nil, nil)
		_, err := service.Query(ctx, domain.Principal{ID: "u1", Role: domain.RoleStaff}, 0)
		require.NoError(t, err)
	})
}

// TestQuery_ScopingScenario runs the visibility scenario end to end against
// the in-memory store: a staff member with 3 entries and an administrator
// with 2 see, respectively, exactly their own 3 and all 5.
func TestQuery_ScopingScenario(t *testing.T) {
	st := memory.NewInMemoryStore()
	service := audit.NewService(st, discardLogger(), testMetrics)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		userID string
		action string
	}{
		{"u1", "patient.created"},
		{"u2", "employee.updated"},
		{"u1", "sale.created"},
		{"u2", "backup.exported"},
		{"u1", "patient.updated"},
	}
	for i, e := range seed {
		result := service.Record(requestcontext.WithTime(ctx, base.Add(time.Duration(i)*time.Minute)), e.userID, e.action, nil)
		require.True(t, result.Ok())
	}

	staff := domain.Principal{ID: "u1", Role: domain.RoleStaff}
	staffEntries, err := service.Query(ctx, staff, 20)
	require.NoError(t, err)
	require.Len(t, staffEntries, 3)
	for _, e := range staffEntries {
		assert.Equal(t, "u1", e.UserID, "a non-administrator must never observe another principal's entries")
	}
	assert.Equal(t, "patient.updated", staffEntries[0].Action, "newest first")

	admin := domain.Principal{ID: "u2", Role: domain.RoleAdmin}
	adminEntries, err := service.Query(ctx, admin, 20)
	require.NoError(t, err)
	assert.Len(t, adminEntries, 5)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, audit.Entry) error {
	p.calls++
	return errors.New("broker down")
}

func TestRecord_PublishFailureDoesNotFailWrite(t *testing.T) {
	st := memory.NewInMemoryStore()
	pub := &failingPublisher{}
	service := audit.NewService(st, discardLogger(), testMetrics, audit.WithPublisher(pub))

	result := service.Record(context.Background(), "u1", "a", nil)

	assert.True(t, result.Ok(), "the durable write is the source of truth, fan-out is advisory")
	assert.Equal(t, 1, pub.calls)
}
