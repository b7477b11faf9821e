package document

import (
	"context"
	"errors"
	"fmt"

	"docstream/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no document matches an identity or filter.
var ErrNotFound = errors.New("document not found")

// DocumentRepository is the raw store. One Mongo collection per doctype,
// documents keyed by their "name" field.
type DocumentRepository interface {
	Exists(ctx context.Context, doctype, name string) (bool, error)
	ExistsByFilter(ctx context.Context, doctype string, filter map[string]interface{}) (bool, error)
	Get(ctx context.Context, doctype, name string) (map[string]interface{}, error)
	GetByFilter(ctx context.Context, doctype string, filter map[string]interface{}) (map[string]interface{}, error)
	Insert(ctx context.Context, doctype string, doc map[string]interface{}) error
	Update(ctx context.Context, doctype, name string, fields map[string]interface{}) error
	Delete(ctx context.Context, doctype, name string) error
}

type MongoDocumentRepository struct {
	DB *mongo.Database
}

func NewDocumentRepository(db *database.MongodbDB) DocumentRepository {
	return &MongoDocumentRepository{
		DB: db.DB,
	}
}

func collectionName(doctype string) string {
	return fmt.Sprintf("doc_%s", doctype)
}

func (r *MongoDocumentRepository) Exists(ctx context.Context, doctype, name string) (bool, error) {
	return r.ExistsByFilter(ctx, doctype, map[string]interface{}{"name": name})
}

func (r *MongoDocumentRepository) ExistsByFilter(ctx context.Context, doctype string, filter map[string]interface{}) (bool, error) {
	count, err := r.DB.Collection(collectionName(doctype)).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MongoDocumentRepository) Get(ctx context.Context, doctype, name string) (map[string]interface{}, error) {
	return r.GetByFilter(ctx, doctype, map[string]interface{}{"name": name})
}

func (r *MongoDocumentRepository) GetByFilter(ctx context.Context, doctype string, filter map[string]interface{}) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := r.DB.Collection(collectionName(doctype)).FindOne(ctx, bson.M(filter)).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *MongoDocumentRepository) Insert(ctx context.Context, doctype string, doc map[string]interface{}) error {
	_, err := r.DB.Collection(collectionName(doctype)).InsertOne(ctx, doc)
	return err
}

func (r *MongoDocumentRepository) Update(ctx context.Context, doctype, name string, fields map[string]interface{}) error {
	res, err := r.DB.Collection(collectionName(doctype)).UpdateOne(ctx, bson.M{"name": name}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoDocumentRepository) Delete(ctx context.Context, doctype, name string) error {
	res, err := r.DB.Collection(collectionName(doctype)).DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
