package util

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var loadEnvOnce sync.Once

// LoadEnvFor returns the environment variable v, reading .env once first.
func LoadEnvFor(v string) (x string) {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			zap.L().Info("no .env file found, using environment variables")
		}
	})

	x = os.Getenv(v)

	return
}

// ConnectDB opens and pings the mongo client.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	zap.L().Info("starting MongoDB connection..")
	client, err := mongo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo client")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = client.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}

	// try to ping the database
	if err = client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongo ping")
	}

	zap.L().Info("MongoDB connection successful")
	return client, nil
}

// GetCollection Get collection from Db
func GetCollection(client *mongo.Client, database, name string) (collection *mongo.Collection) {
	collection = client.Database(database).Collection(name)
	return
}

// ConnectRedis parses url and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	zap.L().Info("starting redis connection..")
	addr, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(addr)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}

	zap.L().Info("redis connection successful..")
	return client, nil
}
