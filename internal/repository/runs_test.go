package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/idcard-extractor/constants"
	"github.com/joseph-ayodele/idcard-extractor/internal/common"
	"github.com/joseph-ayodele/idcard-extractor/internal/extract"
	"github.com/joseph-ayodele/idcard-extractor/internal/report"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.True(t, common.IsSetupError(err))
	assert.True(t, IsPostgresDSN("postgres://u:p@localhost/db"))
	assert.False(t, IsPostgresDSN("sqlite://runs.db"))
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestRunRepositoryRoundTrip(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	ctx := context.Background()

	doc := report.Document{
		RunID:      uuid.NewString(),
		Source:     "/cards/pan.jpg",
		PAN:        &report.Number{Value: "ABCPK1234Q", Display: "ABCPK1234Q", Confidence: "high", Method: "strict-pattern"},
		Confidence: "high",
		Details:    extract.Details{DocumentType: constants.DocumentPAN},
		Passes:     []report.Pass{{Pass: "enhanced:6", Chars: 10}},
		StartedAt:  time.UnixMilli(1_700_000_000_000),
	}
	rec := NewRunRecord(doc, "abc123", nil)
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "ABCPK1234Q", got.PAN)
	assert.Equal(t, "high", got.Confidence)
	assert.Equal(t, "PAN", got.DocumentType)
	assert.Equal(t, constants.RunStatusCompleted, got.Status)
	assert.Equal(t, int64(1_700_000_000_000), got.StartedAt.UnixMilli())
	assert.Contains(t, got.ReportJSON, `"ABCPK1234Q"`)
	require.NotNil(t, got.Document().PAN)
	assert.Equal(t, "ABCPK1234Q", got.Document().PAN.Value)
	assert.NoError(t, got.Err())

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRunRepositoryFindByHashAndRecent(t *testing.T) {
	repo := NewRunRepository(openTestDB(t), nil)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	failed := NewRunRecord(report.Document{Source: "a.png", StartedAt: base.Add(3 * time.Second)}, "h1", errors.New("IMAGE_UNDECODABLE"))
	older := &RunRecord{Source: "a.png", ContentHash: "h1", Status: constants.RunStatusCompleted, Aadhaar: "111122223333", StartedAt: base}
	newer := &RunRecord{Source: "a-copy.png", ContentHash: "h1", Status: constants.RunStatusCompleted, StartedAt: base.Add(time.Second), FallbackInvoked: true}
	other := &RunRecord{Source: "b.png", ContentHash: "h2", Status: constants.RunStatusCompleted, StartedAt: base.Add(2 * time.Second)}
	for _, r := range []*RunRecord{older, newer, other, failed} {
		require.NoError(t, repo.Save(ctx, r))
	}

	got, err := repo.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.True(t, got.FallbackInvoked)

	_, err = repo.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, failed.ID, recent[0].ID)
	assert.Equal(t, constants.RunStatusFailed, recent[0].Status)
	assert.Equal(t, "IMAGE_UNDECODABLE", recent[0].ErrorMessage)
	assert.EqualError(t, recent[0].Err(), "IMAGE_UNDECODABLE")
	assert.Equal(t, "a.png", recent[0].Document().Source)
	assert.Equal(t, other.ID, recent[1].ID)
	assert.NoError(t, recent[1].Err())
}
