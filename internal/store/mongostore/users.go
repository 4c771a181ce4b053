package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

// Emails are stored lower-cased; the unique index on email enforces one
// account per address.
func (s *Store) InsertUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewClientConflict("Email is already registered")
		}
		return storageErr("insert user", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)}, email)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("user", key)
	}
	if err != nil {
		return nil, storageErr("find user", err)
	}
	return &u, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*models.User, error) {
	var u models.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"username":  username,
			"email":     strings.ToLower(email),
			"updatedAt": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("user", id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, apperrors.NewClientConflict("Email is already registered")
	}
	if err != nil {
		return nil, storageErr("update user", err)
	}
	return &u, nil
}
