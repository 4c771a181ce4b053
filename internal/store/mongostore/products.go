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

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("product", id)
	}
	if err != nil {
		return nil, storageErr("find product", err)
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	total, err := s.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, storageErr("count products", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	cur, err := s.products.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, storageErr("find products", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, storageErr("decode products", err)
	}
	return products, total, nil
}

func (s *Store) InsertProduct(ctx context.Context, p *models.Product) error {
	if _, err := s.products.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: product %s already exists", apperrors.ErrConflict, p.ID)
		}
		return storageErr("insert product", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch, now time.Time) (*models.Product, error) {
	set := bson.M{"updatedAt": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Images != nil {
		set["images"] = patch.Images
	}

	var p models.Product
	err := s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound("product", id)
	}
	if err != nil {
		return nil, storageErr("update product", err)
	}
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr("delete product", err)
	}
	if res.DeletedCount == 0 {
		return notFound("product", id)
	}
	return nil
}

// DecrementStock is a single conditional update: the filter only matches
// while stockQuantity >= qty, so stock can never go negative even without
// a surrounding transaction.
func (s *Store) DecrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	var p models.Product
	err := s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stockQuantity": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stockQuantity": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storageErr("decrement stock", err)
	}

	// No match: either the product is gone or it is short on stock.
	current, getErr := s.GetProduct(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: %s has %d, requested %d",
		apperrors.ErrInsufficientStock, current.Name, current.StockQuantity, qty)
}

// IncrementStock matches only while the result stays within
// models.MaxStockQuantity, mirroring the decrement guard.
func (s *Store) IncrementStock(ctx context.Context, id string, qty int) (*models.Product, error) {
	if qty > models.MaxStockQuantity {
		return nil, fmt.Errorf("%w: cannot add %d units, the limit is %d",
			apperrors.ErrInvalidInput, qty, models.MaxStockQuantity)
	}

	var p models.Product
	err := s.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stockQuantity": bson.M{"$lte": models.MaxStockQuantity - qty}},
		bson.M{
			"$inc": bson.M{"stockQuantity": qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storageErr("increment stock", err)
	}

	// No match: either the product is gone or the restock is too large.
	current, getErr := s.GetProduct(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: adding %d to %s (stock %d) would exceed %d units",
		apperrors.ErrInvalidInput, qty, current.Name, current.StockQuantity, models.MaxStockQuantity)
}
