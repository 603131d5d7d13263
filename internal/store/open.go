package store

import (
	"context"
	"fmt"
	"log"

	"dytto/internal/config"
	"dytto/internal/database"
)

// Open connects the storage driver selected by cfg and prepares its schema
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		if cfg.MongoDBURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required for the %s storage driver", cfg.StorageDriver)
		}
		log.Println("🔗 Connecting to MongoDB...")
		mongoDB, err := database.NewMongoDB(cfg.MongoDBURI)
		if err != nil {
			return nil, err
		}
		if err := mongoDB.Initialize(ctx); err != nil {
			mongoDB.Close(ctx)
			return nil, err
		}
		log.Println("✅ MongoDB connected successfully")
		return NewMongoStore(mongoDB), nil

	case config.DriverMySQL, config.DriverSQLite:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s storage driver", cfg.StorageDriver)
		}
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLStore(db), nil

	case config.DriverMemory:
		if cfg.IsProduction() {
			log.Println("⚠️ In-memory storage in production: all data is lost on restart")
		}
		log.Println("📦 Using in-memory storage")
		return NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
