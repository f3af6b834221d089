// Package mongodb implements the Content Store as a MongoDB collection.
//
// One document per snippet. The compound unique index on {category, slug}
// is the store's key, so a racing duplicate insert fails in the database
// and surfaces as a Conflict.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/snippet-vault/internal/apperror"
	"github.com/sakif/snippet-vault/internal/content"
	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// CollectionName is the collection snippets are stored in.
const CollectionName = "snippets"

const connectTimeout = 10 * time.Second

var _ repository.SnippetRepository = (*Store)(nil)

// Store is a MongoDB-backed SnippetRepository.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document is the stored shape. Timestamps are kept as BSON dates.
type document struct {
	ID          string     `bson:"_id"`
	Category    string     `bson:"category"`
	Slug        string     `bson:"slug"`
	Title       string     `bson:"title"`
	Language    string     `bson:"language"`
	Description string     `bson:"description"`
	Content     string     `bson:"content,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   *time.Time `bson:"updatedAt,omitempty"`
}

// New connects to uri, verifies the connection and makes sure the unique
// key index exists.
func New(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	coll := client.Database(database).Collection(CollectionName)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("category_slug"),
		},
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetName("title"),
		},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: creating indexes: %w", err)
	}

	return &Store{client: client, coll: coll}, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) List(ctx context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	filter := bson.D{}
	if opts.Category != "" {
		if err := content.CheckKey("category", opts.Category); err != nil {
			return nil, err
		}
		filter = bson.D{{Key: "category", Value: opts.Category}}
	}

	find := options.Find().SetSort(bson.D{
		{Key: "title", Value: 1},
		{Key: "category", Value: 1},
		{Key: "slug", Value: 1},
	})
	if !opts.WithContent {
		find.SetProjection(bson.D{{Key: "content", Value: 0}})
	}

	cur, err := s.coll.Find(ctx, filter, find)
	if err != nil {
		return nil, apperror.Storage("mongodb: listing snippets", err)
	}
	defer cur.Close(ctx)

	snippets := []model.Snippet{}
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, apperror.Storage("mongodb: decoding snippet", err)
		}
		snippets = append(snippets, *doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, apperror.Storage("mongodb: iterating snippets", err)
	}
	return snippets, nil
}

func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperror.Storage("mongodb: counting categories", err)
	}
	defer cur.Close(ctx)

	categories := []model.Category{}
	for cur.Next(ctx) {
		var row struct {
			Name  string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, apperror.Storage("mongodb: decoding category", err)
		}
		categories = append(categories, model.Category{Name: row.Name, Count: row.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, apperror.Storage("mongodb: iterating categories", err)
	}
	return categories, nil
}

func (s *Store) Get(ctx context.Context, category, slug string) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	var doc document
	err := s.coll.FindOne(ctx, keyFilter(category, slug)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("snippet", category+"/"+slug)
		}
		return nil, apperror.Storage("mongodb: getting snippet "+category+"/"+slug, err)
	}
	return doc.toModel(), nil
}

func (s *Store) Create(ctx context.Context, snippet *model.Snippet) error {
	if err := checkKeys(snippet.Category, snippet.Slug); err != nil {
		return err
	}

	snippet.ID = xid.New().String()
	if snippet.CreatedAt.IsZero() {
		snippet.CreatedAt = time.Now().UTC()
	}

	if _, err := s.coll.InsertOne(ctx, fromModel(snippet)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("snippet", snippet.Category+"/"+snippet.Slug)
		}
		return apperror.Storage("mongodb: creating snippet", err)
	}
	return nil
}

func (s *Store) UpdateContent(ctx context.Context, category, slug, body string, at time.Time) (*model.Snippet, error) {
	if err := checkKeys(category, slug); err != nil {
		return nil, err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "content", Value: body},
		{Key: "updatedAt", Value: at.UTC()},
	}}}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc document
	err := s.coll.FindOneAndUpdate(ctx, keyFilter(category, slug), update, after).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("snippet", category+"/"+slug)
		}
		return nil, apperror.Storage("mongodb: updating snippet "+category+"/"+slug, err)
	}
	return doc.toModel(), nil
}

func (s *Store) Delete(ctx context.Context, category, slug string) error {
	if err := checkKeys(category, slug); err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, keyFilter(category, slug))
	if err != nil {
		return apperror.Storage("mongodb: deleting snippet "+category+"/"+slug, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("snippet", category+"/"+slug)
	}
	return nil
}

func keyFilter(category, slug string) bson.D {
	return bson.D{{Key: "category", Value: category}, {Key: "slug", Value: slug}}
}

func checkKeys(category, slug string) error {
	if err := content.CheckKey("category", category); err != nil {
		return err
	}
	return content.CheckKey("slug", slug)
}

func fromModel(s *model.Snippet) document {
	return document{
		ID:          s.ID,
		Category:    s.Category,
		Slug:        s.Slug,
		Title:       s.Title,
		Language:    s.Language,
		Description: s.Description,
		Content:     s.Content,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (d *document) toModel() *model.Snippet {
	s := &model.Snippet{
		ID:          d.ID,
		Category:    d.Category,
		Slug:        d.Slug,
		Title:       d.Title,
		Language:    d.Language,
		Description: d.Description,
		Content:     d.Content,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.UpdatedAt != nil {
		t := d.UpdatedAt.UTC()
		s.UpdatedAt = &t
	}
	return s
}
