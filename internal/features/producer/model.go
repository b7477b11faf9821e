package producer

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UpdateType is the closed set of change kinds a producer emits.
type UpdateType string

const (
	UpdateTypeCreate UpdateType = "Create"
	UpdateTypeUpdate UpdateType = "Update"
	UpdateTypeDelete UpdateType = "Delete"
)

const (
	StatusSynced = "Synced"
	StatusFailed = "Failed"
)

// SubscriptionEntry subscribes this consumer to one doctype on the producer.
// When Mapping is set the subscription targets the mapping's remote doctype
// and payloads are transformed before apply.
type SubscriptionEntry struct {
	RefDoctype  string `json:"ref_doctype" bson:"ref_doctype"`
	Mapping     string `json:"mapping,omitempty" bson:"mapping,omitempty"`
	UseSameName bool   `json:"use_same_name" bson:"use_same_name"`
}

// EventProducer is a registered remote source. LastUpdate is the cursor:
// the name of the last update log entry this consumer has processed up to.
// Only the sync run advances it.
type EventProducer struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name          string              `json:"name" bson:"name"`
	URL           string              `json:"url" bson:"url"`
	APIKey        string              `json:"api_key,omitempty" bson:"api_key,omitempty"`
	APISecret     string              `json:"-" bson:"api_secret,omitempty"`
	LastUpdate    string              `json:"last_update" bson:"last_update"`
	Subscriptions []SubscriptionEntry `json:"subscriptions" bson:"subscriptions"`
	Active        bool                `json:"active" bson:"active"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
}

// UpdateLog is one entry of the producer's append-only change log. It is a
// read-only projection of remote state; Name doubles as the cursor value.
type UpdateLog struct {
	Name       string                 `json:"name"`
	UpdateType UpdateType             `json:"update_type"`
	RefDoctype string                 `json:"ref_doctype"`
	Docname    string                 `json:"docname"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Creation   time.Time              `json:"creation"`
}

// EventSyncLog is the append-only audit entry for one processed update.
// RefDoctype, Docname and Data are recorded pre-mapping so a failed entry
// can be re-driven through the full mapping+apply path.
type EventSyncLog struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Producer    string                 `json:"producer" bson:"producer"` // producer URL
	UpdateName  string                 `json:"update_name" bson:"update_name"`
	UpdateType  UpdateType             `json:"update_type" bson:"update_type"`
	RefDoctype  string                 `json:"ref_doctype" bson:"ref_doctype"`
	ProducerDoc string                 `json:"producer_doc" bson:"producer_doc"` // remote docname
	Docname     string                 `json:"docname,omitempty" bson:"docname,omitempty"`
	Status      string                 `json:"status" bson:"status"`
	Error       string                 `json:"error,omitempty" bson:"error,omitempty"`
	Mapping     string                 `json:"mapping,omitempty" bson:"mapping,omitempty"`
	UseSameName bool                   `json:"use_same_name" bson:"use_same_name"`
	Data        map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
}
