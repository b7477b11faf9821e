package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docstream/internal/features/doctype"

	"github.com/google/uuid"
)

// UnmetLinkError reports an insert rejected because a link field points at a
// record that does not exist locally. Callers decide whether to resolve the
// target and retry.
type UnmetLinkError struct {
	Doctype   string
	Fieldname string
	Target    string // linked doctype
	Value     string // linked docname
}

func (e *UnmetLinkError) Error() string {
	return fmt.Sprintf("%s.%s links to missing %s/%s", e.Doctype, e.Fieldname, e.Target, e.Value)
}

// Service is the storage collaborator used by the sync path. Identity
// handling lives here: inserts without an explicit name get a generated one,
// and link fields are validated against local existence before the write.
type Service interface {
	Exists(ctx context.Context, doctype, name string) (bool, error)
	Get(ctx context.Context, doctype, name string) (map[string]interface{}, error)
	GetByFilter(ctx context.Context, doctype string, filter map[string]interface{}) (map[string]interface{}, error)
	Insert(ctx context.Context, doctype string, doc map[string]interface{}, explicitName string) (string, error)
	Update(ctx context.Context, doctype, name string, fields map[string]interface{}) error
	Delete(ctx context.Context, doctype, name string) error
}

type ServiceImpl struct {
	Repo DocumentRepository
	Meta doctype.MetaService
}

func NewDocumentService(repo DocumentRepository, meta doctype.MetaService) Service {
	return &ServiceImpl{
		Repo: repo,
		Meta: meta,
	}
}

func (s *ServiceImpl) Exists(ctx context.Context, doctypeName, name string) (bool, error) {
	return s.Repo.Exists(ctx, doctypeName, name)
}

func (s *ServiceImpl) Get(ctx context.Context, doctypeName, name string) (map[string]interface{}, error) {
	return s.Repo.Get(ctx, doctypeName, name)
}

func (s *ServiceImpl) GetByFilter(ctx context.Context, doctypeName string, filter map[string]interface{}) (map[string]interface{}, error) {
	return s.Repo.GetByFilter(ctx, doctypeName, filter)
}

func (s *ServiceImpl) Insert(ctx context.Context, doctypeName string, doc map[string]interface{}, explicitName string) (string, error) {
	name := explicitName
	if name == "" {
		name = uuid.NewString()
	}

	exists, err := s.Repo.Exists(ctx, doctypeName, name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errors.New("document " + doctypeName + "/" + name + " already exists")
	}

	if err := s.validateLinks(ctx, doctypeName, doc); err != nil {
		return "", err
	}

	stored := make(map[string]interface{}, len(doc)+2)
	for k, v := range doc {
		stored[k] = v
	}
	stored["name"] = name
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now()
	}
	stored["updated_at"] = time.Now()

	if err := s.Repo.Insert(ctx, doctypeName, stored); err != nil {
		return "", err
	}
	return name, nil
}

func (s *ServiceImpl) Update(ctx context.Context, doctypeName, name string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	delete(updates, "name")
	updates["updated_at"] = time.Now()
	return s.Repo.Update(ctx, doctypeName, name, updates)
}

func (s *ServiceImpl) Delete(ctx context.Context, doctypeName, name string) error {
	return s.Repo.Delete(ctx, doctypeName, name)
}

// validateLinks enforces referential existence for direct links, dynamic
// links, and links on child-table rows. A miss is reported as UnmetLinkError
// so the sync path can fetch the target and retry.
func (s *ServiceImpl) validateLinks(ctx context.Context, doctypeName string, doc map[string]interface{}) error {
	linkFields, err := s.Meta.LinkFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	if err := s.checkLinks(ctx, doctypeName, linkFields, doc); err != nil {
		return err
	}

	dynamicFields, err := s.Meta.DynamicLinkFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	for _, df := range dynamicFields {
		target, _ := doc[df.Options].(string)
		value, _ := doc[df.Fieldname].(string)
		if target == "" || value == "" {
			continue
		}
		if err := s.checkOne(ctx, doctypeName, df.Fieldname, target, value); err != nil {
			return err
		}
	}

	tableFields, err := s.Meta.TableFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	for _, tf := range tableFields {
		if tf.Options == "" {
			continue
		}
		childLinks, err := s.Meta.LinkFields(ctx, tf.Options)
		if err != nil {
			return err
		}
		for _, row := range rowsOf(doc[tf.Fieldname]) {
			if err := s.checkLinks(ctx, tf.Options, childLinks, row); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *ServiceImpl) checkLinks(ctx context.Context, doctypeName string, fields []doctype.DocField, doc map[string]interface{}) error {
	for _, lf := range fields {
		value, _ := doc[lf.Fieldname].(string)
		if value == "" || lf.Options == "" {
			continue
		}
		if err := s.checkOne(ctx, doctypeName, lf.Fieldname, lf.Options, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceImpl) checkOne(ctx context.Context, doctypeName, fieldname, target, value string) error {
	exists, err := s.Repo.Exists(ctx, target, value)
	if err != nil {
		return err
	}
	if !exists {
		return &UnmetLinkError{Doctype: doctypeName, Fieldname: fieldname, Target: target, Value: value}
	}
	return nil
}

func rowsOf(rows interface{}) []map[string]interface{} {
	switch v := rows.(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, raw := range v {
			if row, ok := raw.(map[string]interface{}); ok {
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}
