package repository

import (
	"context"
	"errors"
	"time"

	"zeroai/internal/database"
	"zeroai/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type postDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	AuthorID   string             `bson:"authorId"`
	Caption    string             `bson:"caption"`
	MediaURL   string             `bson:"mediaUrl"`
	AIScore    float64            `bson:"aiScore"`
	HumanScore float64            `bson:"humanScore"`
	LikedBy    []string           `bson:"likedBy"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

func (d *postDocument) toModel() *models.Post {
	p := &models.Post{
		ID:         d.ID.Hex(),
		AuthorID:   d.AuthorID,
		Caption:    d.Caption,
		MediaURL:   d.MediaURL,
		AIScore:    d.AIScore,
		HumanScore: d.HumanScore,
		LikedBy:    d.LikedBy,
		CreatedAt:  d.CreatedAt.UTC(),
	}
	p.Normalize()
	return p
}

type mongoPostRepository struct {
	coll *mongo.Collection
}

// NewMongoPostRepository returns a PostRepository over the posts collection.
// Like sets are stored inline as likedBy.
func NewMongoPostRepository(db *mongo.Database) PostRepository {
	return newMongoPostRepository(db.Collection(database.PostsCollection))
}

func newMongoPostRepository(coll *mongo.Collection) *mongoPostRepository {
	return &mongoPostRepository{coll: coll}
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.Normalize()

	doc := postDocument{
		ID:         primitive.NewObjectID(),
		AuthorID:   post.AuthorID,
		Caption:    post.Caption,
		MediaURL:   post.MediaURL,
		AIScore:    post.AIScore,
		HumanScore: post.HumanScore,
		LikedBy:    post.LikedBy,
		// Mongo stores milliseconds.
		CreatedAt: post.CreatedAt.Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return models.NewInternalError(err)
	}

	post.ID = doc.ID.Hex()
	post.CreatedAt = doc.CreatedAt
	return nil
}

func (r *mongoPostRepository) ListByCreatedAtDesc(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cursor.Close(ctx)

	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.NewInternalError(err)
	}

	posts := make([]*models.Post, len(docs))
	for i := range docs {
		posts[i] = docs[i].toModel()
	}
	return posts, nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewPostNotFoundError(id)
	}

	var doc postDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewPostNotFoundError(id)
		}
		return nil, models.NewInternalError(err)
	}
	return doc.toModel(), nil
}

func (r *mongoPostRepository) ToggleLike(ctx context.Context, postID, userID string) (models.LikeState, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return "", models.NewPostNotFoundError(postID)
	}

	// Pull only matches when userID is already a member.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "likedBy": userID},
		bson.M{"$pull": bson.M{"likedBy": userID}},
	)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if res.ModifiedCount > 0 {
		return models.LikeStateUnliked, nil
	}

	res, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"likedBy": userID}},
	)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if res.MatchedCount == 0 {
		return "", models.NewPostNotFoundError(postID)
	}
	return models.LikeStateLiked, nil
}
