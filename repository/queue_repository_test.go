package repository

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"JamFM/model"
)

func setupQueueRepo(t *testing.T) (QueueRepository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Track{}, &model.QueueItem{}))

	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		require.NoError(t, db.Create(&model.Track{
			ID:       id,
			Source:   model.SourceYouTube,
			SourceID: "src-" + id,
			Title:    "Track " + id,
		}).Error)
	}

	return NewGormQueueRepository(db), db
}

func positions(t *testing.T, items []*model.QueueItem) []int {
	t.Helper()
	out := make([]int, 0, len(items))
	for _, item := range items {
		out = append(out, item.Position)
	}
	return out
}

func TestAppendAssignsSequentialPositions(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	items, err := repo.Append(ctx, "s1", []string{"t1", "t2"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, positions(t, items))

	// appends continue from the current max
	items, err = repo.Append(ctx, "s1", []string{"t3"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, positions(t, items))

	// other sessions are independent
	items, err = repo.Append(ctx, "s2", []string{"t1"}, "p1")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, positions(t, items))
}

func TestAppendPreloadsTracks(t *testing.T) {
	repo, _ := setupQueueRepo(t)

	items, err := repo.Append(context.Background(), "s1", []string{"t1"}, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Track)
	assert.Equal(t, "Track t1", items[0].Track.Title)
}

func TestPopHeadRenumbers(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, "s1", []string{"t1", "t2", "t3"}, "p1")
	require.NoError(t, err)

	head, err := repo.PopHead(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, "t1", head.TrackID)

	rest, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, positions(t, rest))
	assert.Equal(t, "t2", rest[0].TrackID)
}

func TestPopHeadEmptyQueue(t *testing.T) {
	repo, _ := setupQueueRepo(t)

	head, err := repo.PopHead(context.Background(), "empty")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestRemoveClosesGap(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	items, err := repo.Append(ctx, "s1", []string{"t1", "t2", "t3", "t4"}, "p1")
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, "s1", items[1].ID))

	rest, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, []int{1, 2, 3}, positions(t, rest))
	assert.Equal(t, []string{"t1", "t3", "t4"},
		[]string{rest[0].TrackID, rest[1].TrackID, rest[2].TrackID})
}

func TestRemoveMissingItem(t *testing.T) {
	repo, _ := setupQueueRepo(t)

	err := repo.Remove(context.Background(), "s1", "no-such-item")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRemoveScopedToSession(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	items, err := repo.Append(ctx, "s1", []string{"t1"}, "p1")
	require.NoError(t, err)

	// removing via the wrong session must not touch the row
	err = repo.Remove(ctx, "s2", items[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	rest, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestShufflePermutesAndStaysDense(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, "s1", []string{"t1", "t2", "t3", "t4", "t5"}, "p1")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, repo.Shuffle(ctx, "s1", rng))

	items, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, positions(t, items))

	seen := make(map[string]bool)
	for _, item := range items {
		seen[item.TrackID] = true
	}
	assert.Len(t, seen, 5, "shuffle must keep the same set of tracks")
}

func TestShuffleSingleItemNoop(t *testing.T) {
	repo, _ := setupQueueRepo(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, "s1", []string{"t1"}, "p1")
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, repo.Shuffle(ctx, "s1", rng))

	items, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Position)
}
