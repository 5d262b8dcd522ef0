package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"developertok/internal/domain/account"
	errs "developertok/internal/errors"
)

const (
	usersCollection = "users"
	emailIndex      = "email_1"
)

type MongoAccountStorage struct {
	collection *mongo.Collection
	log        *zap.SugaredLogger
}

func NewMongoAccountStorage(db *mongo.Database, log *zap.SugaredLogger) *MongoAccountStorage {
	return &MongoAccountStorage{
		collection: db.Collection(usersCollection),
		log:        log,
	}
}

// EnsureIndexes creates the unique indexes backing username and email uniqueness.
func (m *MongoAccountStorage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}
	return nil
}

func (m *MongoAccountStorage) Create(ctx context.Context, acc account.Account) (account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	taken, err := m.exists(ctx, bson.M{"email": acc.Email})
	if err != nil {
		return account.Account{}, err
	}
	if taken {
		return account.Account{}, errs.ErrDuplicateEmail
	}

	taken, err = m.exists(ctx, bson.M{"username": acc.Username})
	if err != nil {
		return account.Account{}, err
	}
	if taken {
		return account.Account{}, errs.ErrDuplicateUsername
	}

	acc.ID = primitive.NewObjectID().Hex()
	if _, err := m.collection.InsertOne(ctx, acc); err != nil {
		// the unique indexes catch registrations racing past the checks above
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, duplicateKeyError(err)
		}
		m.log.Errorf("failed to insert user %s: %v", acc.Username, err)
		return account.Account{}, fmt.Errorf("insert user: %w", err)
	}

	m.log.Infof("user %s created with id %s", acc.Username, acc.ID)
	return acc, nil
}

// duplicateKeyError tells which unique index rejected the insert. The
// message names the index before the key value, so only the index is matched.
func duplicateKeyError(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 && strings.Contains(e.Message, "index: "+emailIndex+" ") {
				return errs.ErrDuplicateEmail
			}
		}
	}
	return errs.ErrDuplicateUsername
}

func (m *MongoAccountStorage) exists(ctx context.Context, filter bson.M) (bool, error) {
	err := m.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return true, nil
}

// FindByEmail returns the full document including the password hash.
func (m *MongoAccountStorage) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

// FindByID returns the document without the password hash.
func (m *MongoAccountStorage) FindByID(ctx context.Context, id string) (account.Account, error) {
	return m.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"password": 0}))
}

func (m *MongoAccountStorage) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result account.Account
	err := m.collection.FindOne(ctx, filter, opts...).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return account.Account{}, errs.ErrUserNotFound
	}
	if err != nil {
		m.log.Errorf("failed to find user: %v", err)
		return account.Account{}, fmt.Errorf("find user: %w", err)
	}
	return result, nil
}

// UpdateProgress loads the account, applies patch and writes progress and
// activity back. Concurrent updates of one account are last-write-wins.
func (m *MongoAccountStorage) UpdateProgress(ctx context.Context, id string, patch account.ProgressPatch, now time.Time) (account.Account, error) {
	acc, err := m.FindByID(ctx, id)
	if err != nil {
		return account.Account{}, err
	}

	acc.ApplyProgress(patch, now)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"progress":       acc.Progress,
		"recentActivity": acc.RecentActivity,
	}}
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		m.log.Errorf("failed to update progress of user %s: %v", id, err)
		return account.Account{}, fmt.Errorf("update progress: %w", err)
	}
	if res.MatchedCount == 0 {
		return account.Account{}, errs.ErrUserNotFound
	}
	return acc, nil
}

func (m *MongoAccountStorage) TouchLastActive(ctx context.Context, id string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"progress.lastActive": now}})
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	if res.MatchedCount == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}
