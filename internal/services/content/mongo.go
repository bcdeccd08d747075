package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/config"
)

// mongoDocument adds the store's own identity to a record
type mongoDocument struct {
	ObjectID             primitive.ObjectID `bson:"_id,omitempty"`
	models.ContentRecord `bson:",inline"`
}

// MongoRepository implements Repository on a MongoDB collection
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// ConnectMongo dials the server, verifies it answers and ensures the
// job_id index exists
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*MongoRepository, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	repo := NewMongoRepository(client, client.Database(cfg.Database).Collection(cfg.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

// NewMongoRepository wraps an existing collection
func NewMongoRepository(client *mongo.Client, collection *mongo.Collection) *MongoRepository {
	return &MongoRepository{client: client, collection: collection, now: time.Now}
}

// EnsureIndexes creates the unique job_id index and the listing index
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "job_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "date_added", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating mongo indexes: %w", err)
	}
	return nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

// Upsert inserts rec or replaces the stored document for its job id
func (r *MongoRepository) Upsert(ctx context.Context, rec *models.ContentRecord) (UpsertResult, error) {
	if rec == nil || rec.JobID == "" {
		return UpsertResult{}, errors.New("content record with a job id is required")
	}

	existing, err := r.findDocument(ctx, bson.M{"job_id": rec.JobID})
	switch {
	case errors.Is(err, ErrNotFound):
		if rec.DateAdded.IsZero() {
			rec.DateAdded = r.now()
		}
		if rec.LastUpdated.IsZero() {
			rec.LastUpdated = rec.DateAdded
		}

		res, err := r.collection.InsertOne(ctx, mongoDocument{ContentRecord: *rec})
		if err == nil {
			id, _ := res.InsertedID.(primitive.ObjectID)
			return UpsertResult{Status: StatusCreated, ID: id.Hex()}, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return UpsertResult{}, fmt.Errorf("inserting %s: %w", rec.JobID, err)
		}

		// another run inserted the job first
		existing, err = r.findDocument(ctx, bson.M{"job_id": rec.JobID})
		if err != nil {
			return UpsertResult{}, fmt.Errorf("reloading %s: %w", rec.JobID, err)
		}
	case err != nil:
		return UpsertResult{}, fmt.Errorf("looking up %s: %w", rec.JobID, err)
	}

	rec.DateAdded = existing.DateAdded
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = r.now()
	}

	set, err := replacementFields(rec)
	if err != nil {
		return UpsertResult{}, err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": existing.ObjectID}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("updating %s: %w", rec.JobID, err)
	}

	status := StatusUpdated
	if res.ModifiedCount == 0 {
		status = StatusNoChange
	}
	return UpsertResult{Status: status, ID: existing.ObjectID.Hex()}, nil
}

// replacementFields is every field of rec except identity and date_added
func replacementFields(rec *models.ContentRecord) (bson.D, error) {
	data, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", rec.JobID, err)
	}
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", rec.JobID, err)
	}

	set := make(bson.D, 0, len(doc))
	for _, e := range doc {
		switch e.Key {
		case "_id", "job_id", "date_added":
			continue
		}
		set = append(set, e)
	}
	return set, nil
}

func (r *MongoRepository) findDocument(ctx context.Context, filter bson.M) (*mongoDocument, error) {
	var doc mongoDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// FindByJobID retrieves a record by its natural key
func (r *MongoRepository) FindByJobID(ctx context.Context, jobID string) (*models.ContentRecord, error) {
	doc, err := r.findDocument(ctx, bson.M{"job_id": jobID})
	if err != nil {
		return nil, err
	}
	return &doc.ContentRecord, nil
}

// FindByID retrieves by ObjectId hex, then by job id
func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.ContentRecord, error) {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		doc, err := r.findDocument(ctx, bson.M{"_id": oid})
		if err == nil {
			return &doc.ContentRecord, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return r.FindByJobID(ctx, id)
}

// List returns a page of records, newest first
func (r *MongoRepository) List(ctx context.Context, opts ListOptions) ([]models.ContentRecord, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	findOpts := newestFirst()
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	records, err := r.find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Search matches one field
func (r *MongoRepository) Search(ctx context.Context, field, query string) ([]models.ContentRecord, error) {
	kind, err := lookupField(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, field)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	records, err := r.find(ctx, searchFilter(kind, field, query), newestFirst())
	if err != nil {
		return nil, err
	}
	if kind == kindTranscript {
		records = filterRecords(records, func(rec *models.ContentRecord) bool {
			return transcriptContains(rec, query)
		})
	}
	return records, nil
}

// SearchTranscripts returns records with a whole word match for any term
func (r *MongoRepository) SearchTranscripts(ctx context.Context, terms []string) ([]models.ContentRecord, error) {
	terms = cleanTerms(terms)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	records, err := r.find(ctx, transcriptTermsFilter(terms), newestFirst())
	if err != nil {
		return nil, err
	}

	patterns := compileTerms(terms)
	return filterRecords(records, func(rec *models.ContentRecord) bool {
		return transcriptMatches(rec, patterns)
	}), nil
}

// UpdateMetadata sets curated fields on an existing document
func (r *MongoRepository) UpdateMetadata(ctx context.Context, jobID string, update MetadataUpdate) (*models.ContentRecord, error) {
	set := bson.D{}
	for column, value := range update.Fields {
		if _, ok := metadataColumns[column]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedField, column)
		}
		set = append(set, bson.E{Key: column, Value: value})
	}
	if update.Keywords != nil {
		set = append(set, bson.E{Key: "keywords", Value: update.Keywords})
	}
	if len(set) == 0 {
		return r.FindByJobID(ctx, jobID)
	}
	if update.LastUpdated.IsZero() {
		update.LastUpdated = r.now()
	}
	set = append(set, bson.E{Key: "last_updated", Value: update.LastUpdated})

	res, err := r.collection.UpdateOne(ctx, bson.M{"job_id": jobID}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return r.FindByJobID(ctx, jobID)
}

// Ping checks the server answers
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.ContentRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]models.ContentRecord, len(docs))
	for i := range docs {
		records[i] = docs[i].ContentRecord
	}
	return records, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "date_added", Value: -1}})
}

// transcriptMatch matches pattern against every language entry of the
// transcript map, whatever languages the document holds
func transcriptMatch(pattern, options string) bson.M {
	entries := bson.M{"$objectToArray": bson.M{"$ifNull": bson.A{"$transcript_content", bson.M{}}}}
	return bson.M{"$expr": bson.M{"$anyElementTrue": bson.A{bson.M{"$map": bson.M{
		"input": entries,
		"as":    "t",
		"in":    bson.M{"$regexMatch": bson.M{"input": "$$t.v", "regex": pattern, "options": options}},
	}}}}}
}

// searchFilter builds the server side filter for one field search
func searchFilter(kind fieldKind, field, query string) bson.M {
	switch kind {
	case kindExact:
		return bson.M{field: query}
	case kindArray:
		return bson.M{field: strings.ToLower(query)}
	case kindTranscript:
		return transcriptMatch(regexp.QuoteMeta(query), "i")
	default:
		return bson.M{field: primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}}
	}
}

// transcriptTermsFilter ORs a whole word match for each term over every
// transcript language
func transcriptTermsFilter(terms []string) bson.M {
	or := bson.A{}
	for _, term := range terms {
		or = append(or, transcriptMatch(wordPattern(term), ""))
	}
	return bson.M{"$or": or}
}
