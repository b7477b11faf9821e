package doctype

import (
	"context"

	"docstream/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DoctypeRepository interface {
	Create(ctx context.Context, dt *Doctype) error
	FindByName(ctx context.Context, name string) (*Doctype, error)
	List(ctx context.Context) ([]Doctype, error)
	Update(ctx context.Context, dt *Doctype) error
	Delete(ctx context.Context, name string) error
	EnsureIndexes(ctx context.Context) error
}

type MongoDoctypeRepository struct {
	Collection *mongo.Collection
}

func NewDoctypeRepository(db *database.MongodbDB) DoctypeRepository {
	return &MongoDoctypeRepository{
		Collection: db.DB.Collection("doctypes"),
	}
}

func (r *MongoDoctypeRepository) Create(ctx context.Context, dt *Doctype) error {
	_, err := r.Collection.InsertOne(ctx, dt)
	return err
}

func (r *MongoDoctypeRepository) FindByName(ctx context.Context, name string) (*Doctype, error) {
	var dt Doctype
	err := r.Collection.FindOne(ctx, bson.M{"name": name}).Decode(&dt)
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

func (r *MongoDoctypeRepository) List(ctx context.Context) ([]Doctype, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var doctypes []Doctype
	if err = cursor.All(ctx, &doctypes); err != nil {
		return nil, err
	}
	return doctypes, nil
}

func (r *MongoDoctypeRepository) Update(ctx context.Context, dt *Doctype) error {
	filter := bson.M{"name": dt.Name}
	update := bson.M{"$set": dt}
	_, err := r.Collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *MongoDoctypeRepository) Delete(ctx context.Context, name string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"name": name})
	return err
}

func (r *MongoDoctypeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
