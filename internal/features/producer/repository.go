package producer

import (
	"context"
	"time"

	"docstream/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProducerRepository interface {
	Create(ctx context.Context, p *EventProducer) error
	Get(ctx context.Context, id string) (*EventProducer, error)
	GetByURL(ctx context.Context, url string) (*EventProducer, error)
	List(ctx context.Context) ([]EventProducer, error)
	ListActive(ctx context.Context) ([]EventProducer, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	SetCursor(ctx context.Context, id string, updateName string) error
	Delete(ctx context.Context, id string) error
}

type SyncLogRepository interface {
	Create(ctx context.Context, log *EventSyncLog) error
	Get(ctx context.Context, id string) (*EventSyncLog, error)
	List(ctx context.Context, producerURL string, limit int64) ([]EventSyncLog, error)
	SetStatus(ctx context.Context, id string, status, errDetail string) error
}

type ProducerRepositoryImpl struct {
	collection *mongo.Collection
}

func NewProducerRepository(db *database.MongodbDB) ProducerRepository {
	return &ProducerRepositoryImpl{
		collection: db.DB.Collection("event_producers"),
	}
}

func (r *ProducerRepositoryImpl) Create(ctx context.Context, p *EventProducer) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, p)
	return err
}

func (r *ProducerRepositoryImpl) Get(ctx context.Context, id string) (*EventProducer, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var p EventProducer
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *ProducerRepositoryImpl) GetByURL(ctx context.Context, url string) (*EventProducer, error) {
	var p EventProducer
	err := r.collection.FindOne(ctx, bson.M{"url": url}).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProducerRepositoryImpl) List(ctx context.Context) ([]EventProducer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var producers []EventProducer
	if err = cursor.All(ctx, &producers); err != nil {
		return nil, err
	}

	return producers, nil
}

func (r *ProducerRepositoryImpl) ListActive(ctx context.Context) ([]EventProducer, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var producers []EventProducer
	if err = cursor.All(ctx, &producers); err != nil {
		return nil, err
	}

	return producers, nil
}

func (r *ProducerRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": updates},
	)
	return err
}

func (r *ProducerRepositoryImpl) SetCursor(ctx context.Context, id string, updateName string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"last_update": updateName, "updated_at": time.Now()}},
	)
	return err
}

func (r *ProducerRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type SyncLogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncLogRepository(db *database.MongodbDB) SyncLogRepository {
	return &SyncLogRepositoryImpl{
		collection: db.DB.Collection("event_sync_logs"),
	}
}

func (r *SyncLogRepositoryImpl) Create(ctx context.Context, log *EventSyncLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *SyncLogRepositoryImpl) Get(ctx context.Context, id string) (*EventSyncLog, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var log EventSyncLog
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&log)
	if err != nil {
		return nil, err
	}

	return &log, nil
}

func (r *SyncLogRepositoryImpl) List(ctx context.Context, producerURL string, limit int64) ([]EventSyncLog, error) {
	filter := bson.M{}
	if producerURL != "" {
		filter["producer"] = producerURL
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []EventSyncLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *SyncLogRepositoryImpl) SetStatus(ctx context.Context, id string, status, errDetail string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "error": errDetail}},
	)
	return err
}
