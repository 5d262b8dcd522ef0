package adapters

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"developertok/internal/bootstrap"
)

type AdapterMongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	cfg      *bootstrap.Config
	log      *zap.SugaredLogger
}

func NewAdapterMongo(cfg *bootstrap.Config, log *zap.SugaredLogger) *AdapterMongo {
	return &AdapterMongo{
		cfg: cfg,
		log: log,
	}
}

// Init connects to MongoDB, retrying on a fixed delay until it succeeds,
// the attempt budget runs out or ctx is cancelled.
func (a *AdapterMongo) Init(ctx context.Context) error {
	attempt := 0
	for {
		attempt++
		err := a.connect(ctx)
		if err == nil {
			a.log.Infof("Connected to MongoDB database %s", a.cfg.MongoDatabase)
			return nil
		}

		if a.cfg.MongoConnectAttempts > 0 && attempt >= a.cfg.MongoConnectAttempts {
			return fmt.Errorf("mongo connection failed after %d attempts: %w", attempt, err)
		}

		a.log.Warnf("MongoDB connection error: %v. Trying to connect again in %s", err, a.cfg.MongoRetryDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.MongoRetryDelay):
		}
	}
}

func (a *AdapterMongo) connect(ctx context.Context) error {
	clientOpts := options.Client().ApplyURI(a.cfg.MongoUri)

	ctxConnect, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctxConnect, clientOpts)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err = client.Ping(ctxConnect, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping: %w", err)
	}

	a.Client = client
	a.Database = client.Database(a.cfg.MongoDatabase)
	return nil
}

func (a *AdapterMongo) Ping(ctx context.Context) error {
	if a.Client == nil {
		return fmt.Errorf("mongo client is not initialized")
	}
	return a.Client.Ping(ctx, nil)
}

func (a *AdapterMongo) Close(ctx context.Context) error {
	if a.Client != nil {
		return a.Client.Disconnect(ctx)
	}
	return nil
}
