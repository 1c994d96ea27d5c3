package repository

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/testutil"
)

func newCaseFile(t *testing.T, repo *CaseFileRepository, caseID string) *model.CaseFile {
	t.Helper()
	f := &model.CaseFile{
		CaseID:     caseID,
		UserID:     "11111111-1111-1111-1111-111111111111",
		FileName:   "contrato.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  10,
		StorageKey: "cases/x/contrato.pdf",
	}
	require.NoError(t, repo.Create(f))
	return f
}

func TestCaseFileRepository_VectorLifecycle(t *testing.T) {
	repo := NewCaseFileRepository(testutil.NewDB(t))
	caseID := "44444444-4444-4444-4444-444444444444"
	f := newCaseFile(t, repo, caseID)
	assert.Equal(t, model.VectorStatusPending, f.VectorStatus)

	claimed, err := repo.ClaimForProcessing(f.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.ClaimForProcessing(f.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, repo.SaveVectorResult(f.ID, "texto", "[0.5,0.5]"))
	done, err := repo.ListVectorizedByCaseID(caseID)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, []float32{0.5, 0.5}, done[0].Vector())

	require.NoError(t, repo.SoftDelete(f.ID))
	got, err := repo.GetByID(f.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCaseFileRepository_ListStale(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCaseFileRepository(db)
	f := newCaseFile(t, repo, "44444444-4444-4444-4444-444444444444")
	fresh := newCaseFile(t, repo, "44444444-4444-4444-4444-444444444444")

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(&model.CaseFile{}).Where("id = ?", f.ID).UpdateColumn("updated_at", old).Error)

	stale, err := repo.ListStale(time.Now().UTC().Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, f.ID, stale[0].ID)
	assert.NotEqual(t, fresh.ID, stale[0].ID)

	require.NoError(t, repo.MarkFailed(fresh.ID, "boom"))
	got, err := repo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VectorStatusFailed, got.VectorStatus)
	assert.Equal(t, "boom", got.VectorError)
}

func TestCaseFileRepository_MarkFailedTruncatesOnRunes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCaseFileRepository(db)
	f := newCaseFile(t, repo, "55555555-5555-5555-5555-555555555555")

	reason := strings.Repeat("ñ", 600) + "\x00\xff"
	require.NoError(t, repo.MarkFailed(f.ID, reason))

	got, err := repo.GetByID(f.ID)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got.VectorError))
	assert.Equal(t, 500, utf8.RuneCountInString(got.VectorError))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "ñu", truncateRunes("ñu", 5))
}
