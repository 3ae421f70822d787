package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"farmlok/internal/catalog"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection = "products"
	usersCollection    = "users"

	healthCheckTimeout = 2 * time.Second
)

// Mongo implements the catalog storage over a MongoDB database. Cache
// interaction is the service's concern; this layer only talks to the store.
type Mongo struct {
	db       *mongo.Database
	validate *validator.Validate
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		db:       db,
		validate: validator.New(),
	}
}

func (r *Mongo) products() *mongo.Collection {
	return r.db.Collection(productsCollection)
}

// FindAll runs the translated listing query. A relevance sort projects the
// text score computed by the store.
func (r *Mongo) FindAll(ctx context.Context, clauses []catalog.FilterClause, skip, limit int64, sort catalog.SortSpec) ([]catalog.Product, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit)
	if sort.ByTextScore {
		opts.SetSort(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
	} else {
		opts.SetSort(sortToBson(sort))
	}

	cursor, err := r.products().Find(ctx, clausesToBson(clauses), opts)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]catalog.Product, 0)
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return list, nil
}

func (r *Mongo) Count(ctx context.Context, clauses []catalog.FilterClause) (int64, error) {
	total, err := r.products().CountDocuments(ctx, clausesToBson(clauses))
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// FindByID loads one product and fills in a name/email summary of the
// creating user. A dangling createdBy reference leaves Owner nil.
func (r *Mongo) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalog.Product{}, catalog.ErrNotFound
	}

	var product catalog.Product
	if err := r.products().FindOne(ctx, bson.M{"_id": oid}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("find product %s: %w", id, err)
	}

	var owner catalog.UserSummary
	err = r.db.Collection(usersCollection).FindOne(ctx,
		bson.M{"_id": product.CreatedBy},
		options.FindOne().SetProjection(bson.M{"name": 1, "email": 1}),
	).Decode(&owner)
	switch {
	case err == nil:
		product.Owner = &owner
	case errors.Is(err, mongo.ErrNoDocuments):
		// weak reference, the user may have been removed
	default:
		return catalog.Product{}, fmt.Errorf("populate product owner: %w", err)
	}

	return product, nil
}

func (r *Mongo) Create(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	now := time.Now().UTC()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := r.validateProduct(product); err != nil {
		return catalog.Product{}, err
	}

	if _, err := r.products().InsertOne(ctx, product); err != nil {
		return catalog.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

// Update merges the patch into the stored document, re-validates the merged
// result and persists only the patched paths, so a concurrent update of
// other fields is not clobbered.
func (r *Mongo) Update(ctx context.Context, id string, patch catalog.ProductPatch) (catalog.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalog.Product{}, catalog.ErrNotFound
	}

	var existing catalog.Product
	if err := r.products().FindOne(ctx, bson.M{"_id": oid}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("find product %s: %w", id, err)
	}

	merged := applyPatch(existing, patch)
	merged.UpdatedAt = time.Now().UTC()

	if err := r.validateProduct(merged); err != nil {
		return catalog.Product{}, err
	}

	result, err := r.products().UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": patchToSet(patch, merged.UpdatedAt)})
	if err != nil {
		return catalog.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return merged, nil
}

func (r *Mongo) Delete(ctx context.Context, id string) (catalog.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalog.Product{}, catalog.ErrNotFound
	}

	var deleted catalog.Product
	if err := r.products().FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&deleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("delete product %s: %w", id, err)
	}
	return deleted, nil
}

func (r *Mongo) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.Client().Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the text index backing search plus the secondary
// indexes the listing sorts on.
func (r *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.products().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "category", Value: "text"},
			},
			Options: options.Index().SetName("product_text"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_asc"),
		},
		{
			Keys:    bson.D{{Key: "price", Value: 1}},
			Options: options.Index().SetName("price_asc"),
		},
		{
			Keys:    bson.D{{Key: "rating", Value: -1}},
			Options: options.Index().SetName("rating_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}
	return nil
}

func (r *Mongo) validateProduct(product catalog.Product) error {
	err := r.validate.Struct(product)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &catalog.ValidationError{
			Field:   lowerFirst(fe.Field()),
			Message: fmt.Sprintf("failed on the %q rule", fe.Tag()),
		}
	}
	return fmt.Errorf("validate product: %w", err)
}

func applyPatch(product catalog.Product, patch catalog.ProductPatch) catalog.Product {
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.Location != nil {
		product.Location = *patch.Location
	}
	if patch.Rating != nil {
		product.Rating = *patch.Rating
	}
	return product
}

// patchToSet builds the $set document for a partial update. Only the fields
// the patch carries are written.
func patchToSet(patch catalog.ProductPatch, updatedAt time.Time) bson.M {
	set := bson.M{"updatedAt": updatedAt}
	if patch.Name != nil {
		set["name"] = *patch.Name
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
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}
	return set
}

// clausesToBson translates the structured filter into the store's query
// form. This is the only place clause semantics meet bson.
func clausesToBson(clauses []catalog.FilterClause) bson.M {
	filter := bson.M{}
	for _, clause := range clauses {
		switch c := clause.(type) {
		case catalog.Equals:
			filter[c.Field] = equalsValue(c.Field, c.Value)
		case catalog.Range:
			bounds := bson.M{}
			if c.Min != nil {
				bounds["$gte"] = *c.Min
			}
			if c.Max != nil {
				bounds["$lte"] = *c.Max
			}
			if len(bounds) > 0 {
				filter[c.Field] = bounds
			}
		case catalog.TextSearch:
			filter["$text"] = bson.M{"$search": c.Term}
		}
	}
	return filter
}

// equalsValue types an equality filter for the numeric product attributes.
// Stored values are numbers, so a string predicate would never match them.
func equalsValue(field, raw string) any {
	switch field {
	case "price", "rating":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "stock":
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return raw
}

func sortToBson(sort catalog.SortSpec) bson.D {
	doc := make(bson.D, 0, len(sort.Fields))
	for _, f := range sort.Fields {
		direction := 1
		if f.Desc {
			direction = -1
		}
		doc = append(doc, bson.E{Key: f.Key, Value: direction})
	}
	if len(doc) == 0 {
		doc = append(doc, bson.E{Key: "createdAt", Value: -1})
	}
	return doc
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
