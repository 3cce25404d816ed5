// Package bootstrap builds the process-wide runtime: stores, Redis, event sinks and external clients.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zeroai/internal/cache"
	"zeroai/internal/classifier"
	"zeroai/internal/config"
	"zeroai/internal/database"
	"zeroai/internal/mediahost"
	"zeroai/internal/middleware"
	"zeroai/internal/notifications"
	"zeroai/internal/repository"
	"zeroai/internal/server"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Runtime owns every long-lived connection. Close releases them.
type Runtime struct {
	DB         *gorm.DB
	Mongo      *mongo.Client
	Redis      *redis.Client
	Posts      repository.PostRepository
	Users      repository.UserRepository
	Classifier classifier.Classifier
	MediaHost  mediahost.Host
	Events     notifications.Publisher

	amqp *notifications.AMQPPublisher
}

// InitRuntime connects the configured store, Redis and the optional broker, and builds the
// classifier and media host clients once.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	if err := rt.connectStore(ctx, cfg); err != nil {
		return nil, err
	}

	// Redis is optional; without it the timeline is read straight from the store.
	if cfg.RedisURL != "" {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	rt.Events = rt.eventSinks(cfg)

	rt.Classifier = classifier.NewHTTPClient(cfg.ClassifierURL, cfg.ClassifierToken, cfg.ClassifierTimeout)
	rt.MediaHost = mediahost.NewCloudinaryClient(cfg.MediaHostURL, cfg.MediaHostUploadPreset, cfg.MediaHostTimeout)

	return rt, nil
}

func (rt *Runtime) connectStore(ctx context.Context, cfg *config.Config) error {
	if cfg.StoreDriver == config.StoreMongo {
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return fmt.Errorf("document store connection failed: %w", err)
		}
		rt.Mongo = client
		rt.Posts = repository.NewMongoPostRepository(db)
		rt.Users = repository.NewMongoUserRepository(db)
		return nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db
	rt.Posts = repository.NewPostRepository(db)
	rt.Users = repository.NewUserRepository(db)
	return nil
}

// eventSinks returns the Redis notifier and the AMQP publisher that are available, or nil.
func (rt *Runtime) eventSinks(cfg *config.Config) notifications.Publisher {
	var sinks notifications.MultiPublisher
	if rt.Redis != nil {
		sinks = append(sinks, notifications.NewNotifier(rt.Redis))
	}
	if cfg.RabbitMQURL != "" {
		pub, err := notifications.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			middleware.Logger.Warn("rabbitmq unavailable, continuing without broker events",
				slog.String("error", err.Error()))
		} else {
			rt.amqp = pub
			sinks = append(sinks, pub)
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

// Deps exposes the runtime as server dependencies.
func (rt *Runtime) Deps() server.Deps {
	return server.Deps{
		DB:         rt.DB,
		Mongo:      rt.Mongo,
		Redis:      rt.Redis,
		Posts:      rt.Posts,
		Users:      rt.Users,
		Classifier: rt.Classifier,
		MediaHost:  rt.MediaHost,
		Events:     rt.Events,
	}
}

// Close releases the broker, Redis and store connections.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.amqp != nil {
		if err := rt.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if rt.Mongo != nil {
		if err := rt.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongo: %w", err))
		}
	}
	return errors.Join(errs...)
}
