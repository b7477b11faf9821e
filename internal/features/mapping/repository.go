package mapping

import (
	"context"
	"time"

	"docstream/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MappingRepository interface {
	Create(ctx context.Context, m *DoctypeMapping) error
	FindByName(ctx context.Context, name string) (*DoctypeMapping, error)
	List(ctx context.Context) ([]DoctypeMapping, error)
	Update(ctx context.Context, m *DoctypeMapping) error
	Delete(ctx context.Context, name string) error
}

type MongoMappingRepository struct {
	Collection *mongo.Collection
}

func NewMappingRepository(db *database.MongodbDB) MappingRepository {
	return &MongoMappingRepository{
		Collection: db.DB.Collection("doctype_mappings"),
	}
}

func (r *MongoMappingRepository) Create(ctx context.Context, m *DoctypeMapping) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
	_, err := r.Collection.InsertOne(ctx, m)
	return err
}

func (r *MongoMappingRepository) FindByName(ctx context.Context, name string) (*DoctypeMapping, error) {
	var m DoctypeMapping
	err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MongoMappingRepository) List(ctx context.Context) ([]DoctypeMapping, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []DoctypeMapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *MongoMappingRepository) Update(ctx context.Context, m *DoctypeMapping) error {
	m.UpdatedAt = time.Now()
	_, err := r.Collection.UpdateOne(ctx, bson.M{"name": m.Name}, bson.M{"$set": m})
	return err
}

func (r *MongoMappingRepository) Delete(ctx context.Context, name string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"name": name})
	return err
}
