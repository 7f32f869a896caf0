package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-rag/models"
	"go.uber.org/zap"
)

func openTestRepository(t *testing.T) *FragmentRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "nested", "rag.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestFragmentRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepository(t)

	in := []models.Fragment{
		*models.NewTextFragment("tenant-a", "cat.pdf", 1, "first", []float64{0.5, -1.25, 3}),
		*models.NewTextFragment("tenant-a", "cat.pdf", 2, "second", nil),
		*models.NewImageFragment("tenant-a", "cat.pdf", 2, "extracted_images/cat_p2.png", "", []float64{1, 0}),
		*models.NewTextFragment("tenant-b", "cat.pdf", 1, "other tenant", []float64{1}),
	}
	n, err := repo.Insert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	text, err := repo.Fetch(ctx, "tenant-a", models.ModalityText)
	require.NoError(t, err)
	require.Len(t, text, 2)
	assert.Equal(t, in[0].ID, text[0].ID)
	assert.Equal(t, []float64{0.5, -1.25, 3}, text[0].Embedding)
	assert.Equal(t, "second", text[1].Content)
	assert.Nil(t, text[1].Embedding)
	assert.WithinDuration(t, in[0].CreatedAt, text[0].CreatedAt, 0)

	images, err := repo.Fetch(ctx, "tenant-a", models.ModalityImage)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "Image from cat.pdf page 2", images[0].Content)
	assert.Equal(t, "extracted_images/cat_p2.png", images[0].ImagePath)

	none, err := repo.Fetch(ctx, "", models.ModalityText)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFragmentRepository_DeleteAndStats(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepository(t)

	_, err := repo.Insert(ctx, []models.Fragment{
		*models.NewTextFragment("tenant-a", "a.pdf", 3, "x", []float64{1}),
		*models.NewTextFragment("tenant-a", "b.pdf", 1, "y", []float64{1}),
		*models.NewImageFragment("tenant-a", "b.pdf", 1, "img.png", "chair", []float64{1}),
		*models.NewTextFragment("tenant-b", "a.pdf", 1, "z", []float64{1}),
	})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.TextCount)
	assert.Equal(t, 1, stats.ImageCount)
	assert.Equal(t, []int{1, 3}, stats.Pages)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, stats.SourceDocuments)

	deleted, err := repo.Delete(ctx, "tenant-a", "b.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = repo.Delete(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	other, err := repo.Stats(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Total)
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rag.db")

	repo, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	_, err = repo.Insert(context.Background(), []models.Fragment{
		*models.NewTextFragment("t", "d.pdf", 1, "persisted", []float64{1}),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Fetch(context.Background(), "t", models.ModalityText)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].Content)
	assert.NoError(t, reopened.HealthCheck(context.Background()))
}

func TestBlobToVector(t *testing.T) {
	v, err := blobToVector(vectorToBlob([]float64{1.5, -2}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2}, v)

	_, err = blobToVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
