package document

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docstream/internal/features/doctype"
)

type memDocRepo struct {
	stores map[string]map[string]map[string]interface{}
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{stores: make(map[string]map[string]map[string]interface{})}
}

func (r *memDocRepo) collection(doctypeName string) map[string]map[string]interface{} {
	if r.stores[doctypeName] == nil {
		r.stores[doctypeName] = make(map[string]map[string]interface{})
	}
	return r.stores[doctypeName]
}

func (r *memDocRepo) Exists(ctx context.Context, doctypeName, name string) (bool, error) {
	_, ok := r.collection(doctypeName)[name]
	return ok, nil
}

func (r *memDocRepo) ExistsByFilter(ctx context.Context, doctypeName string, filter map[string]interface{}) (bool, error) {
	_, err := r.GetByFilter(ctx, doctypeName, filter)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memDocRepo) Get(ctx context.Context, doctypeName, name string) (map[string]interface{}, error) {
	doc, ok := r.collection(doctypeName)[name]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (r *memDocRepo) GetByFilter(ctx context.Context, doctypeName string, filter map[string]interface{}) (map[string]interface{}, error) {
	for _, doc := range r.collection(doctypeName) {
		match := true
		for k, v := range filter {
			if doc[k] != v {
				match = false
				break
			}
		}
		if match {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memDocRepo) Insert(ctx context.Context, doctypeName string, doc map[string]interface{}) error {
	name, _ := doc["name"].(string)
	r.collection(doctypeName)[name] = doc
	return nil
}

func (r *memDocRepo) Update(ctx context.Context, doctypeName, name string, fields map[string]interface{}) error {
	doc, ok := r.collection(doctypeName)[name]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (r *memDocRepo) Delete(ctx context.Context, doctypeName, name string) error {
	if _, ok := r.collection(doctypeName)[name]; !ok {
		return ErrNotFound
	}
	delete(r.collection(doctypeName), name)
	return nil
}

type stubMeta struct {
	doctypes map[string]*doctype.Doctype
}

func (m *stubMeta) Get(ctx context.Context, name string) (*doctype.Doctype, error) {
	dt, ok := m.doctypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown doctype %s", name)
	}
	return dt, nil
}

func (m *stubMeta) fieldsOfType(name string, ft doctype.FieldType) ([]doctype.DocField, error) {
	dt, ok := m.doctypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown doctype %s", name)
	}
	var out []doctype.DocField
	for _, f := range dt.Fields {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *stubMeta) TableFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeTable)
}

func (m *stubMeta) LinkFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeLink)
}

func (m *stubMeta) DynamicLinkFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeDynamicLink)
}

func (m *stubMeta) Invalidate(name string) {}

func newTestService() (Service, *memDocRepo) {
	repo := newMemDocRepo()
	meta := &stubMeta{doctypes: map[string]*doctype.Doctype{
		"Project": {Name: "Project", Fields: []doctype.DocField{
			{Fieldname: "project_name", Type: doctype.FieldTypeData},
		}},
		"Task": {Name: "Task", Fields: []doctype.DocField{
			{Fieldname: "subject", Type: doctype.FieldTypeData},
			{Fieldname: "project", Type: doctype.FieldTypeLink, Options: "Project"},
			{Fieldname: "ref_type", Type: doctype.FieldTypeData},
			{Fieldname: "ref_name", Type: doctype.FieldTypeDynamicLink, Options: "ref_type"},
			{Fieldname: "checklist", Type: doctype.FieldTypeTable, Options: "Checklist Item"},
		}},
		"Checklist Item": {Name: "Checklist Item", IsChild: true, Fields: []doctype.DocField{
			{Fieldname: "assignee", Type: doctype.FieldTypeLink, Options: "User"},
		}},
		"User": {Name: "User", Fields: []doctype.DocField{
			{Fieldname: "email", Type: doctype.FieldTypeData},
		}},
	}}
	return NewDocumentService(repo, meta), repo
}

func TestInsertExplicitAndGeneratedNames(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	name, err := svc.Insert(ctx, "Project", map[string]interface{}{"project_name": "a"}, "P-1")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if name != "P-1" {
		t.Fatalf("name = %q, want the explicit P-1", name)
	}

	generated, err := svc.Insert(ctx, "Project", map[string]interface{}{"project_name": "b"}, "")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if generated == "" || generated == "P-1" {
		t.Fatalf("generated name = %q", generated)
	}

	doc, err := svc.Get(ctx, "Project", generated)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["name"] != generated {
		t.Fatal("stored document must carry its name")
	}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Insert(ctx, "Project", map[string]interface{}{}, "P-1"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := svc.Insert(ctx, "Project", map[string]interface{}{}, "P-1"); err == nil {
		t.Fatal("duplicate name must be rejected")
	}
}

func TestInsertValidatesLinks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Insert(ctx, "Project", map[string]interface{}{}, "P-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Insert(ctx, "User", map[string]interface{}{}, "U-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name  string
		doc   map[string]interface{}
		unmet string // "" means the insert must succeed
	}{
		{
			name:  "satisfied links",
			doc:   map[string]interface{}{"subject": "ok", "project": "P-1"},
			unmet: "",
		},
		{
			name:  "missing direct link",
			doc:   map[string]interface{}{"project": "P-404"},
			unmet: "project",
		},
		{
			name:  "missing dynamic link",
			doc:   map[string]interface{}{"ref_type": "Project", "ref_name": "P-404"},
			unmet: "ref_name",
		},
		{
			name: "missing child row link",
			doc: map[string]interface{}{
				"checklist": []interface{}{map[string]interface{}{"assignee": "U-404"}},
			},
			unmet: "assignee",
		},
		{
			name: "satisfied child row link",
			doc: map[string]interface{}{
				"checklist": []interface{}{map[string]interface{}{"assignee": "U-1"}},
			},
			unmet: "",
		},
		{
			name:  "empty link value ignored",
			doc:   map[string]interface{}{"project": ""},
			unmet: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Insert(ctx, "Task", tc.doc, "")
			if tc.unmet == "" {
				if err != nil {
					t.Fatalf("insert: %v", err)
				}
				return
			}
			var unmet *UnmetLinkError
			if !errors.As(err, &unmet) {
				t.Fatalf("got %v, want UnmetLinkError", err)
			}
			if unmet.Fieldname != tc.unmet {
				t.Fatalf("unmet field = %s, want %s", unmet.Fieldname, tc.unmet)
			}
		})
	}
}

func TestUpdatePreservesName(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.Insert(ctx, "Project", map[string]interface{}{"project_name": "a"}, "P-1"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := svc.Update(ctx, "Project", "P-1", map[string]interface{}{
		"project_name": "b",
		"name":         "P-2",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	doc := repo.stores["Project"]["P-1"]
	if doc == nil || doc["name"] != "P-1" {
		t.Fatal("update must not rename the document")
	}
	if doc["project_name"] != "b" {
		t.Fatalf("project_name = %v, want b", doc["project_name"])
	}

	if err := svc.Update(ctx, "Project", "P-404", map[string]interface{}{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Delete(context.Background(), "Project", "P-404"); !errors.Is(err, ErrNotFound) {
		t.Fatal("delete of a missing document must report ErrNotFound")
	}
}
