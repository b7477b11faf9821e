package mapping

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldMapEntry declares one local field fed from one remote field.
type FieldMapEntry struct {
	LocalFieldname  string `json:"local_fieldname" bson:"local_fieldname"`
	RemoteFieldname string `json:"remote_fieldname" bson:"remote_fieldname"`
}

// TableMapEntry maps a child-table field, rows transformed with its own
// field map.
type TableMapEntry struct {
	LocalFieldname  string          `json:"local_fieldname" bson:"local_fieldname"`
	RemoteFieldname string          `json:"remote_fieldname" bson:"remote_fieldname"`
	FieldMap        []FieldMapEntry `json:"field_map" bson:"field_map"`
}

// DoctypeMapping translates a remote doctype's record shape into a local one.
type DoctypeMapping struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	LocalDoctype    string             `json:"local_doctype" bson:"local_doctype"`
	RemoteDoctype   string             `json:"remote_doctype" bson:"remote_doctype"`
	FieldMap        []FieldMapEntry    `json:"field_map" bson:"field_map"`
	TableMaps       []TableMapEntry    `json:"table_maps,omitempty" bson:"table_maps,omitempty"`
	TransformScript string             `json:"transform_script,omitempty" bson:"transform_script,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// MappingError reports a rule that could not be applied to a payload.
type MappingError struct {
	Mapping string
	Reason  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping %s: %s", e.Mapping, e.Reason)
}
