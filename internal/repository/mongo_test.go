package repository

import (
	"context"
	"testing"
	"time"

	"zeroai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestMongoPostRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns object id", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		post := &models.Post{AuthorID: "a1", MediaURL: "https://cdn/x.png", AIScore: 0.1, HumanScore: 0.9}
		require.NoError(t, repo.Create(ctx, post))
		_, err := primitive.ObjectIDFromHex(post.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{}, post.LikedBy)
	})

	mt.Run("list decodes in server order", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		newer := primitive.NewObjectID()
		older := primitive.NewObjectID()
		now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: newer},
				{Key: "authorId", Value: "a1"},
				{Key: "mediaUrl", Value: "https://cdn/new.png"},
				{Key: "likedBy", Value: bson.A{"u1"}},
				{Key: "createdAt", Value: now},
			},
			bson.D{
				{Key: "_id", Value: older},
				{Key: "authorId", Value: "a2"},
				{Key: "mediaUrl", Value: "https://cdn/old.png"},
				{Key: "createdAt", Value: now.Add(-time.Hour)},
			},
		))

		posts, err := repo.ListByCreatedAtDesc(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, newer.Hex(), posts[0].ID)
		assert.Equal(t, []string{"u1"}, posts[0].LikedBy)
		assert.Equal(t, []string{}, posts[1].LikedBy)
	})

	mt.Run("get by malformed id is not found", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		_, err := repo.GetByID(ctx, "not-an-object-id")
		assert.True(t, models.IsCode(err, models.CodePostNotFound))
	})

	mt.Run("toggle removes existing like", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		state, err := repo.ToggleLike(ctx, primitive.NewObjectID().Hex(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.LikeStateUnliked, state)
	})

	mt.Run("toggle adds missing like", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		state, err := repo.ToggleLike(ctx, primitive.NewObjectID().Hex(), "u1")
		require.NoError(t, err)
		assert.Equal(t, models.LikeStateLiked, state)
	})

	mt.Run("toggle on missing post", func(mt *mtest.T) {
		repo := newMongoPostRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		_, err := repo.ToggleLike(ctx, primitive.NewObjectID().Hex(), "u1")
		assert.True(t, models.IsCode(err, models.CodePostNotFound))
	})
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := newMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: zeroai.users index: email_1",
		}))

		err := repo.Create(ctx, &models.User{Username: "dup", Email: "d@example.com", Password: "hash"})
		assert.True(t, models.IsCode(err, models.CodeDuplicateEmail))
	})

	mt.Run("email not found returns nil", func(mt *mtest.T) {
		repo := newMongoUserRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := newMongoUserRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "username", Value: "dana"},
			{Key: "email", Value: "dana@example.com"},
		}))

		user, err := repo.GetByID(ctx, id.Hex())
		require.NoError(t, err)
		assert.Equal(t, id.Hex(), user.ID)
		assert.Equal(t, "dana", user.Username)
		assert.Equal(t, []string{}, user.Followers)
	})
}
