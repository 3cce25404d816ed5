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
)

type userDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	Email          string             `bson:"email"`
	Password       string             `bson:"password"`
	ProfilePicture string             `bson:"profilePicture"`
	Followers      []string           `bson:"followers"`
	Followings     []string           `bson:"followings"`
	IsAdmin        bool               `bson:"isAdmin"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toModel() *models.User {
	u := &models.User{
		ID:             d.ID.Hex(),
		Username:       d.Username,
		Email:          d.Email,
		Password:       d.Password,
		ProfilePicture: d.ProfilePicture,
		Followers:      d.Followers,
		Followings:     d.Followings,
		IsAdmin:        d.IsAdmin,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	u.Normalize()
	return u
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a UserRepository over the users collection.
// Email uniqueness relies on the index created by database.EnsureMongoIndexes.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return newMongoUserRepository(db.Collection(database.UsersCollection))
}

func newMongoUserRepository(coll *mongo.Collection) *mongoUserRepository {
	return &mongoUserRepository{coll: coll}
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.NewUserNotFoundError(id)
	}
	user, err := r.findOne(ctx, bson.M{"_id": oid})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewUserNotFoundError(id)
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.findOne(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User)
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range docs {
		u := docs[i].toModel()
		out[u.ID] = u
	}
	return out, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Normalize()

	doc := userDocument{
		ID:             primitive.NewObjectID(),
		Username:       user.Username,
		Email:          user.Email,
		Password:       user.Password,
		ProfilePicture: user.ProfilePicture,
		Followers:      user.Followers,
		Followings:     user.Followings,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewDuplicateEmailError()
		}
		return models.NewInternalError(err)
	}
	user.ID = doc.ID.Hex()
	return nil
}
