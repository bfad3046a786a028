package leads

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// leadDocument is the stored shape of a lead.
type leadDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *leadDocument) toLead() *Lead {
	return &Lead{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Status:    Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// MongoRepository stores leads as documents in a MongoDB collection.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to uri and verifies the connection with a ping. The
// caller owns the returned repository and must Close it.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoRepository, error) {
	if uri == "" {
		return nil, errors.New("leads: mongo uri required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("leads: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("leads: mongo ping: %w", err)
	}
	return &MongoRepository{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// NewMongoRepository wraps an existing collection.
func NewMongoRepository(collection *mongo.Collection) *MongoRepository {
	if collection == nil {
		panic("leads: mongo collection required")
	}
	return &MongoRepository{client: collection.Database().Client(), collection: collection}
}

// Close disconnects the underlying client.
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique email index plus the status and
// createdAt indexes used by listings.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("leads: create indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, lead *Lead) error {
	doc := leadDocument{
		Name:      lead.Name,
		Email:     lead.Email,
		Status:    string(lead.Status),
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("leads: unexpected inserted id %T", res.InsertedID)
	}
	lead.ID = oid.Hex()
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Lead, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrLeadNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*Lead, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Lead, error) {
	var doc leadDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: find failed: %w", err)
	}
	return doc.toLead(), nil
}

func (r *MongoRepository) Update(ctx context.Context, id string, changes Changes) (*Lead, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrLeadNotFound
	}

	set := bson.M{"updatedAt": changes.UpdatedAt}
	if changes.Name != nil {
		set["name"] = *changes.Name
	}
	if changes.Email != nil {
		set["email"] = *changes.Email
	}
	if changes.Status != nil {
		set["status"] = string(*changes.Status)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc leadDocument
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	switch {
	case err == nil:
		return doc.toLead(), nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrLeadNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, ErrDuplicateEmail
	default:
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrLeadNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *MongoRepository) Find(ctx context.Context, q Query) ([]*Lead, error) {
	opts := options.Find().
		SetSort(mongoSort(q)).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	cursor, err := r.collection.Find(ctx, mongoFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("leads: find failed: %w", err)
	}
	var docs []leadDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("leads: decode failed: %w", err)
	}

	out := make([]*Lead, len(docs))
	for i := range docs {
		out[i] = docs[i].toLead()
	}
	return out, nil
}

func (r *MongoRepository) Count(ctx context.Context, q Query) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, mongoFilter(q))
	if err != nil {
		return 0, fmt.Errorf("leads: count failed: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("leads: aggregate failed: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("leads: decode failed: %w", err)
	}

	counts := make(map[Status]int64, len(rows))
	for _, row := range rows {
		counts[Status(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// mongoFilter translates the criteria of q. The search term is quoted so it
// always matches literally.
func mongoFilter(q Query) bson.M {
	filter := bson.M{}

	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
		}
	}

	if q.Status != nil {
		filter["status"] = string(*q.Status)
	}

	return filter
}

func mongoSort(q Query) bson.D {
	dir := -1
	if q.Ascending() {
		dir = 1
	}
	return bson.D{
		{Key: string(q.SortBy), Value: dir},
		{Key: "_id", Value: dir},
	}
}
