package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

func (s *Store) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	err := s.carts.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("cart for user", userID)
	}
	if err != nil {
		return nil, storageErr("find cart", err)
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return &c, nil
}

// SaveCart upserts on userId. The _id and createdAt are only written on
// insert, so an existing document keeps its identity.
func (s *Store) SaveCart(ctx context.Context, cart *models.Cart) error {
	newID := cart.ID
	if newID == "" {
		newID = s.NewID()
	}

	res, err := s.carts.UpdateOne(ctx,
		bson.M{"userId": cart.UserID},
		bson.M{
			"$set": bson.M{
				"items":       cart.Items,
				"totalAmount": cart.TotalAmount,
				"updatedAt":   cart.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":       newID,
				"createdAt": cart.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two first-time adds raced on the unique userId index.
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: cart for user %s was created concurrently", apperrors.ErrConflict, cart.UserID)
		}
		return storageErr("save cart", err)
	}
	if res.UpsertedCount > 0 {
		cart.ID = newID
	}
	return nil
}

func (s *Store) DeleteCart(ctx context.Context, userID string) (bool, error) {
	res, err := s.carts.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return false, storageErr("delete cart", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteCartsIdleSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.carts.DeleteMany(ctx, bson.M{"updatedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, storageErr("delete idle carts", err)
	}
	return res.DeletedCount, nil
}
