// Command seed wipes the product collection and fills it with randomized
// produce attributed to an existing user.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"farmlok/internal/catalog"
	"farmlok/internal/catalog/repository"
	"farmlok/internal/config"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const productCount = 2000

var (
	categories = []string{"Vegetables", "Fruits", "Grains", "Dairy", "Pulses", "Organic"}
	locations  = []string{"Delhi", "Noida", "Greater Noida", "Ghaziabad", "Meerut", "Gurgaon"}
	names      = []string{
		"Tomato", "Potato", "Onion", "Carrot", "Spinach", "Cabbage", "Apple", "Banana",
		"Mango", "Orange", "Milk", "Cheese", "Butter", "Wheat", "Rice", "Corn",
		"Chickpeas", "Lentils", "Beans", "Peas",
	}
	descriptions = []string{
		"Fresh farm product",
		"Organic and healthy",
		"Direct from farmers",
		"High quality produce",
		"Naturally grown",
	}
)

func main() {
	userHex := flag.String("user", "", "hex ObjectID of the user to attribute products to")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(*userHex, logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(userHex string, logger *slog.Logger) error {
	_ = godotenv.Load()

	userID, err := primitive.ObjectIDFromHex(userHex)
	if err != nil {
		return fmt.Errorf("-user must be a valid ObjectID: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	db := client.Database(cfg.DBName)

	repo := repository.NewMongo(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	products := db.Collection("products")
	if _, err := products.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("wipe products: %w", err)
	}

	docs := make([]interface{}, 0, productCount)
	now := time.Now().UTC()
	for i := 1; i <= productCount; i++ {
		docs = append(docs, catalog.Product{
			ID:          primitive.NewObjectID(),
			Name:        fmt.Sprintf("%s %d", pick(names), i),
			Description: pick(descriptions),
			Price:       float64(rand.Intn(500) + 20),
			Category:    pick(categories),
			Stock:       rand.Intn(100) + 1,
			Location:    pick(locations),
			Rating:      float64(rand.Intn(51)) / 10,
			CreatedBy:   userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if _, err := products.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}

	logger.Info("seeded products", "count", productCount, "user", userID.Hex())
	return nil
}

func pick(values []string) string {
	return values[rand.Intn(len(values))]
}
