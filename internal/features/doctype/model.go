package doctype

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FieldType string

const (
	FieldTypeData        FieldType = "data"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeCheck       FieldType = "check"
	FieldTypeSelect      FieldType = "select"
	FieldTypeText        FieldType = "text"
	FieldTypeLink        FieldType = "link"
	FieldTypeDynamicLink FieldType = "dynamiclink"
	FieldTypeTable       FieldType = "table"
)

// DocField describes one field of a doctype schema.
//
// Options carries the field's target, depending on Type:
//   - link: the linked doctype name
//   - dynamiclink: the fieldname on the same document that names the
//     linked doctype
//   - table: the child doctype whose rows the field holds
type DocField struct {
	Fieldname string    `json:"fieldname" bson:"fieldname"`
	Label     string    `json:"label" bson:"label"`
	Type      FieldType `json:"type" bson:"type"`
	Required  bool      `json:"required" bson:"required"`
	Options   string    `json:"options,omitempty" bson:"options,omitempty"`
	IsSystem  bool      `json:"is_system" bson:"is_system"`
}

type Doctype struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"` // Unique identifier (e.g. "Task", "Project")
	Label     string             `json:"label" bson:"label"`
	IsChild   bool               `json:"is_child" bson:"is_child"` // Rows of a table field, never synced standalone
	IsSystem  bool               `json:"is_system" bson:"is_system"`
	Fields    []DocField         `json:"fields" bson:"fields"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
