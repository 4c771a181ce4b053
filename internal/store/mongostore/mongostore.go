// Package mongostore implements store.Store on MongoDB. Checkout atomicity
// comes from multi-document transactions, so the deployment must be a
// replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/database"
	"github.com/01moynul/taptosell-commerce/internal/store"
)

// writeConflictCode is the server code for a transaction write conflict.
const writeConflictCode = 112

// Store talks to one MongoDB database.
type Store struct {
	client   *mongo.Client
	products *mongo.Collection
	carts    *mongo.Collection
	orders   *mongo.Collection
	users    *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New wraps an already connected client.
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:   client,
		products: db.Collection(database.ProductsCollection),
		carts:    db.Collection(database.CartsCollection),
		orders:   db.Collection(database.OrdersCollection),
		users:    db.Collection(database.UsersCollection),
	}
}

func (s *Store) NewID() string { return primitive.NewObjectID().Hex() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// RunInTx runs fn inside a snapshot/majority transaction. The driver retries
// fn on TransientTransactionError until its internal deadline; whatever still
// fails is classified for the caller. All collection calls made with the
// context handed to fn join the transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return storageErr("start session", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	}, txOpts)
	return classifyTxErr(err)
}

// classifyTxErr leaves domain errors untouched and turns driver failures into
// ErrConflict (retryable) or ErrStorage.
func classifyTxErr(err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range []error{
		apperrors.ErrInvalidInput, apperrors.ErrNotFound, apperrors.ErrInsufficientStock,
		apperrors.ErrEmptyCart, apperrors.ErrConflict, apperrors.ErrUnauthorized, apperrors.ErrForbidden,
	} {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	if isConflict(err) {
		return fmt.Errorf("%w: transaction aborted: %v", apperrors.ErrConflict, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return fmt.Errorf("%w: transaction timed out: %v", apperrors.ErrConflict, err)
	}
	if errors.Is(err, apperrors.ErrStorage) {
		return err
	}
	return storageErr("transaction", err)
}

func isConflict(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return true
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == writeConflictCode {
		return true
	}
	var srvErr mongo.ServerError
	return errors.As(err, &srvErr) && srvErr.HasErrorCode(writeConflictCode)
}

// storageErr keeps the driver error reachable through errors.As so the
// driver's own retry logic can still see its labels.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrStorage, op, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, kind, id)
}
