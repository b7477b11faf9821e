package producer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"docstream/internal/features/doctype"
	"docstream/internal/features/document"
	"docstream/internal/features/mapping"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMeta struct {
	doctypes map[string]*doctype.Doctype
}

func (m *fakeMeta) Get(ctx context.Context, name string) (*doctype.Doctype, error) {
	dt, ok := m.doctypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown doctype %s", name)
	}
	return dt, nil
}

func (m *fakeMeta) fieldsOfType(name string, ft doctype.FieldType) ([]doctype.DocField, error) {
	dt, ok := m.doctypes[name]
	if !ok {
		return nil, fmt.Errorf("unknown doctype %s", name)
	}
	var fields []doctype.DocField
	for _, f := range dt.Fields {
		if f.Type == ft {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (m *fakeMeta) TableFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeTable)
}

func (m *fakeMeta) LinkFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeLink)
}

func (m *fakeMeta) DynamicLinkFields(ctx context.Context, name string) ([]doctype.DocField, error) {
	return m.fieldsOfType(name, doctype.FieldTypeDynamicLink)
}

func (m *fakeMeta) Invalidate(name string) {}

type fakeDocRepo struct {
	mu     sync.Mutex
	stores map[string]map[string]map[string]interface{} // doctype -> name -> doc
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{stores: make(map[string]map[string]map[string]interface{})}
}

func (r *fakeDocRepo) collection(doctypeName string) map[string]map[string]interface{} {
	if r.stores[doctypeName] == nil {
		r.stores[doctypeName] = make(map[string]map[string]interface{})
	}
	return r.stores[doctypeName]
}

func (r *fakeDocRepo) Exists(ctx context.Context, doctypeName, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.collection(doctypeName)[name]
	return ok, nil
}

func matches(doc map[string]interface{}, filter map[string]interface{}) bool {
	for k, v := range filter {
		if doc[k] != v {
			return false
		}
	}
	return true
}

func (r *fakeDocRepo) ExistsByFilter(ctx context.Context, doctypeName string, filter map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.collection(doctypeName) {
		if matches(doc, filter) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDocRepo) Get(ctx context.Context, doctypeName, name string) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.collection(doctypeName)[name]
	if !ok {
		return nil, document.ErrNotFound
	}
	return doc, nil
}

func (r *fakeDocRepo) GetByFilter(ctx context.Context, doctypeName string, filter map[string]interface{}) (map[string]interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.collection(doctypeName) {
		if matches(doc, filter) {
			return doc, nil
		}
	}
	return nil, document.ErrNotFound
}

func (r *fakeDocRepo) Insert(ctx context.Context, doctypeName string, doc map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, _ := doc["name"].(string)
	r.collection(doctypeName)[name] = doc
	return nil
}

func (r *fakeDocRepo) Update(ctx context.Context, doctypeName, name string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.collection(doctypeName)[name]
	if !ok {
		return document.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, doctypeName, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.collection(doctypeName)[name]; !ok {
		return document.ErrNotFound
	}
	delete(r.collection(doctypeName), name)
	return nil
}

type fakeSiteClient struct {
	mu        sync.Mutex
	docs      map[string]map[string]map[string]interface{} // doctype -> name -> doc
	updates   []UpdateLog
	creations map[string]time.Time // update log name -> creation

	failFetch bool
	block     chan struct{} // when set, GetUpdateLogs waits on it

	updateLogCalls int
	fetchedDocs    []string
}

func newFakeSiteClient() *fakeSiteClient {
	return &fakeSiteClient{
		docs:      make(map[string]map[string]map[string]interface{}),
		creations: make(map[string]time.Time),
	}
}

func (c *fakeSiteClient) addDoc(doctypeName, name string, doc map[string]interface{}) {
	if c.docs[doctypeName] == nil {
		c.docs[doctypeName] = make(map[string]map[string]interface{})
	}
	c.docs[doctypeName][name] = doc
}

func (c *fakeSiteClient) addUpdate(u UpdateLog) {
	c.updates = append(c.updates, u)
	c.creations[u.Name] = u.Creation
}

func (c *fakeSiteClient) GetUpdateLogs(ctx context.Context, filter UpdateLogFilter) ([]UpdateLog, error) {
	if c.block != nil {
		<-c.block
	}

	c.mu.Lock()
	c.updateLogCalls++
	c.mu.Unlock()

	if c.failFetch {
		return nil, &TransportError{URL: "http://producer.test", Err: errors.New("connection refused")}
	}

	subscribed := make(map[string]bool)
	for _, dt := range filter.Doctypes {
		subscribed[dt] = true
	}

	var out []UpdateLog
	for _, u := range c.updates {
		if !subscribed[u.RefDoctype] {
			continue
		}
		if !filter.After.IsZero() && !u.Creation.After(filter.After) {
			continue
		}
		out = append(out, u)
	}

	// The remote log answers newest first.
	sort.Slice(out, func(i, j int) bool {
		return out[i].Creation.After(out[j].Creation)
	})
	return out, nil
}

func (c *fakeSiteClient) GetDoc(ctx context.Context, doctypeName, name string) (map[string]interface{}, error) {
	c.mu.Lock()
	c.fetchedDocs = append(c.fetchedDocs, doctypeName+"/"+name)
	c.mu.Unlock()

	doc, ok := c.docs[doctypeName][name]
	if !ok {
		return nil, &TransportError{URL: "http://producer.test", StatusCode: 404}
	}

	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (c *fakeSiteClient) GetValue(ctx context.Context, doctypeName, name, field string) (string, error) {
	if doctypeName == remoteUpdateLogDoctype && field == "creation" {
		if t, ok := c.creations[name]; ok {
			return t.Format(time.RFC3339Nano), nil
		}
		return "", nil
	}
	return "", nil
}

func (c *fakeSiteClient) RegisterConsumer(ctx context.Context, consumerURL string, doctypes []string) (*RegisterResponse, error) {
	return &RegisterResponse{APIKey: "key", APISecret: "secret"}, nil
}

func (c *fakeSiteClient) UpdateConsumer(ctx context.Context, consumerURL string, doctypes []string) error {
	return nil
}

type fakeProducerRepo struct {
	mu            sync.Mutex
	producers     map[string]*EventProducer
	cursorHistory []string
}

func newFakeProducerRepo() *fakeProducerRepo {
	return &fakeProducerRepo{producers: make(map[string]*EventProducer)}
}

func (r *fakeProducerRepo) Create(ctx context.Context, p *EventProducer) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[p.ID.Hex()] = p
	return nil
}

func (r *fakeProducerRepo) Get(ctx context.Context, id string) (*EventProducer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	if !ok {
		return nil, errors.New("producer not found")
	}
	return p, nil
}

func (r *fakeProducerRepo) GetByURL(ctx context.Context, url string) (*EventProducer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.producers {
		if p.URL == url {
			return p, nil
		}
	}
	return nil, errors.New("producer not found")
}

func (r *fakeProducerRepo) List(ctx context.Context) ([]EventProducer, error) {
	return r.ListActive(ctx)
}

func (r *fakeProducerRepo) ListActive(ctx context.Context) ([]EventProducer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventProducer
	for _, p := range r.producers {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProducerRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return nil
}

func (r *fakeProducerRepo) SetCursor(ctx context.Context, id string, updateName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	if !ok {
		return errors.New("producer not found")
	}
	p.LastUpdate = updateName
	r.cursorHistory = append(r.cursorHistory, updateName)
	return nil
}

func (r *fakeProducerRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.producers, id)
	return nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*EventSyncLog
}

func (r *fakeLogRepo) Create(ctx context.Context, log *EventSyncLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeLogRepo) Get(ctx context.Context, id string) (*EventSyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID.Hex() == id {
			return e, nil
		}
	}
	return nil, errors.New("log entry not found")
}

func (r *fakeLogRepo) List(ctx context.Context, producerURL string, limit int64) ([]EventSyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventSyncLog
	for _, e := range r.entries {
		if producerURL == "" || e.Producer == producerURL {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeLogRepo) SetStatus(ctx context.Context, id string, status, errDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID.Hex() == id {
			e.Status = status
			e.Error = errDetail
			return nil
		}
	}
	return errors.New("log entry not found")
}

type fakeMappingRepo struct {
	mu       sync.Mutex
	mappings map[string]*mapping.DoctypeMapping
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: make(map[string]*mapping.DoctypeMapping)}
}

func (r *fakeMappingRepo) Create(ctx context.Context, m *mapping.DoctypeMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Name] = m
	return nil
}

func (r *fakeMappingRepo) FindByName(ctx context.Context, name string) (*mapping.DoctypeMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[name]
	if !ok {
		return nil, errors.New("mapping not found")
	}
	return m, nil
}

func (r *fakeMappingRepo) List(ctx context.Context) ([]mapping.DoctypeMapping, error) {
	return nil, nil
}

func (r *fakeMappingRepo) Update(ctx context.Context, m *mapping.DoctypeMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Name] = m
	return nil
}

func (r *fakeMappingRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, name)
	return nil
}
