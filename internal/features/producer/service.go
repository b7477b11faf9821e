package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docstream/internal/config"
	"docstream/internal/features/doctype"
	"docstream/internal/features/document"
	"docstream/internal/features/mapping"

	"go.uber.org/zap"
)

type ProducerService interface {
	CreateProducer(ctx context.Context, p *EventProducer) error
	GetProducer(ctx context.Context, id string) (*EventProducer, error)
	ListProducers(ctx context.Context) ([]EventProducer, error)
	UpdateProducer(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteProducer(ctx context.Context, id string) error
	PullAll(ctx context.Context)
	PullFromProducer(ctx context.Context, id string) error
	Notify(ctx context.Context, producerURL string) error
	Resync(ctx context.Context, logID string) (string, error)
	ListLogs(ctx context.Context, producerURL string, limit int64) ([]EventSyncLog, error)
	ExportLogs(ctx context.Context, producerURL string, limit int64) ([]byte, string, error)
}

type ProducerServiceImpl struct {
	Repo     ProducerRepository
	LogRepo  SyncLogRepository
	Mappings mapping.Service
	Clients  ClientFactory
	Hub      *Hub
	Logger   *zap.Logger
	Config   *config.Config

	engine *applyEngine

	// One mutex per producer: at most one in-flight sync run each.
	locks sync.Map
}

func NewProducerService(
	repo ProducerRepository,
	logRepo SyncLogRepository,
	docs document.Service,
	meta doctype.MetaService,
	mappings mapping.Service,
	clients ClientFactory,
	hub *Hub,
	logger *zap.Logger,
	cfg *config.Config,
) ProducerService {
	deps := newDependencyResolver(meta, docs, cfg.MaxDepDepth)
	return &ProducerServiceImpl{
		Repo:     repo,
		LogRepo:  logRepo,
		Mappings: mappings,
		Clients:  clients,
		Hub:      hub,
		Logger:   logger,
		Config:   cfg,
		engine:   newApplyEngine(docs, deps),
	}
}

func (s *ProducerServiceImpl) CreateProducer(ctx context.Context, p *EventProducer) error {
	if p.URL == "" {
		return errors.New("producer URL is required")
	}
	if len(p.Subscriptions) == 0 {
		return errors.New("at least one subscription is required")
	}
	if _, err := s.Repo.GetByURL(ctx, p.URL); err == nil {
		return fmt.Errorf("producer %s is already registered", p.URL)
	}

	doctypes, _, _, err := s.expandConfig(ctx, p)
	if err != nil {
		return err
	}

	// Registration handshake: the producer issues credentials and the
	// initial cursor position.
	client := s.Clients(p)
	resp, err := client.RegisterConsumer(ctx, s.Config.ConsumerURL, doctypes)
	if err != nil {
		return fmt.Errorf("consumer registration failed: %w", err)
	}
	p.APIKey = resp.APIKey
	p.APISecret = resp.APISecret
	p.LastUpdate = resp.LastUpdate
	p.Active = true

	if err := s.Repo.Create(ctx, p); err != nil {
		return err
	}

	s.Logger.Info("registered event producer", zap.String("producer", p.URL))
	return nil
}

func (s *ProducerServiceImpl) GetProducer(ctx context.Context, id string) (*EventProducer, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ProducerServiceImpl) ListProducers(ctx context.Context) ([]EventProducer, error) {
	return s.Repo.List(ctx)
}

func (s *ProducerServiceImpl) UpdateProducer(ctx context.Context, id string, updates map[string]interface{}) error {
	if err := s.Repo.Update(ctx, id, updates); err != nil {
		return err
	}

	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}

	// Push the revised subscription list upstream; the producer keeps
	// emitting only what this consumer subscribed to.
	doctypes, _, _, err := s.expandConfig(ctx, p)
	if err != nil {
		return err
	}
	if err := s.Clients(p).UpdateConsumer(ctx, s.Config.ConsumerURL, doctypes); err != nil {
		s.Logger.Warn("failed to push subscription update to producer",
			zap.String("producer", p.URL), zap.Error(err))
	}
	return nil
}

func (s *ProducerServiceImpl) DeleteProducer(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// PullAll drives one pull per active producer. Producers are independent,
// so each runs in its own goroutine; the per-producer lock keeps any single
// producer from running twice.
func (s *ProducerServiceImpl) PullAll(ctx context.Context) {
	producers, err := s.Repo.ListActive(ctx)
	if err != nil {
		s.Logger.Error("failed to list active producers", zap.Error(err))
		return
	}

	for _, p := range producers {
		go func(id string) {
			if err := s.PullFromProducer(context.Background(), id); err != nil {
				s.Logger.Error("pull failed", zap.String("producer_id", id), zap.Error(err))
			}
		}(p.ID.Hex())
	}
}

// PullFromProducer fetches and applies the pending change batch for one
// producer. A second trigger while a run is in flight is a no-op.
func (s *ProducerServiceImpl) PullFromProducer(ctx context.Context, id string) error {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		s.Logger.Debug("sync already running, skipping trigger", zap.String("producer_id", id))
		return nil
	}
	defer mu.Unlock()

	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active {
		return nil
	}

	client := s.Clients(p)

	doctypes, mappingConf, namingConf, err := s.expandConfig(ctx, p)
	if err != nil {
		return err
	}

	updates, err := fetchUpdates(ctx, client, p, doctypes, s.Logger)
	if err != nil {
		// Transport failure: abort the whole run, cursor untouched.
		return err
	}

	for i := range updates {
		s.processOne(ctx, client, p, updates[i], mappingConf[updates[i].RefDoctype], namingConf[updates[i].RefDoctype])
	}

	s.Logger.Info("pull complete",
		zap.String("producer", p.URL),
		zap.Int("updates", len(updates)))
	return nil
}

// Notify is the producer-push entry point: pull in the background, the
// per-producer lock deduplicates concurrent triggers.
func (s *ProducerServiceImpl) Notify(ctx context.Context, producerURL string) error {
	p, err := s.Repo.GetByURL(ctx, producerURL)
	if err != nil {
		return fmt.Errorf("unknown producer %s", producerURL)
	}

	go func(id string) {
		if err := s.PullFromProducer(context.Background(), id); err != nil {
			s.Logger.Error("notified pull failed", zap.String("producer", producerURL), zap.Error(err))
		}
	}(p.ID.Hex())

	return nil
}

// Resync re-drives one previously logged update through the same
// mapping+apply path and records the verdict on the existing entry.
func (s *ProducerServiceImpl) Resync(ctx context.Context, logID string) (string, error) {
	entry, err := s.LogRepo.Get(ctx, logID)
	if err != nil {
		return "", fmt.Errorf("sync log entry not found: %w", err)
	}

	p, err := s.Repo.GetByURL(ctx, entry.Producer)
	if err != nil {
		return "", fmt.Errorf("producer %s is no longer registered", entry.Producer)
	}

	update := UpdateLog{
		Name:       entry.UpdateName,
		UpdateType: entry.UpdateType,
		RefDoctype: entry.RefDoctype,
		Docname:    entry.ProducerDoc,
		Data:       entry.Data,
	}

	_, applyErr := s.driveUpdate(ctx, s.Clients(p), p, update, entry.Mapping, entry.UseSameName)
	verdict := StatusSynced
	detail := ""
	if applyErr != nil {
		verdict = StatusFailed
		detail = applyErr.Error()
	}

	if err := s.LogRepo.SetStatus(ctx, logID, verdict, detail); err != nil {
		return "", err
	}
	return verdict, nil
}

func (s *ProducerServiceImpl) ListLogs(ctx context.Context, producerURL string, limit int64) ([]EventSyncLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.LogRepo.List(ctx, producerURL, limit)
}

// processOne applies a single update, writes its audit entry, and advances
// the cursor. Failures are recorded, never propagated: one bad record must
// not block the stream behind it.
func (s *ProducerServiceImpl) processOne(ctx context.Context, client SiteClient, p *EventProducer, update UpdateLog, mappingName string, useSameName bool) {
	entry := &EventSyncLog{
		Producer:    p.URL,
		UpdateName:  update.Name,
		UpdateType:  update.UpdateType,
		RefDoctype:  update.RefDoctype,
		ProducerDoc: update.Docname,
		Mapping:     mappingName,
		UseSameName: useSameName,
		Data:        update.Data,
	}

	localName, err := s.driveUpdate(ctx, client, p, update, mappingName, useSameName)
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		s.Logger.Warn("update failed",
			zap.String("producer", p.URL),
			zap.String("doctype", update.RefDoctype),
			zap.String("docname", update.Docname),
			zap.Error(err))
	} else {
		entry.Status = StatusSynced
		entry.Docname = localName
	}

	if err := s.LogRepo.Create(ctx, entry); err != nil {
		s.Logger.Error("failed to write sync log", zap.Error(err))
	}

	s.Hub.Broadcast(SyncEvent{
		Producer:   p.URL,
		UpdateName: update.Name,
		UpdateType: string(update.UpdateType),
		RefDoctype: update.RefDoctype,
		Docname:    update.Docname,
		Status:     entry.Status,
		Error:      entry.Error,
	})

	// Advance past this record whether it synced or failed; failed entries
	// are recoverable only through resync.
	if err := s.Repo.SetCursor(ctx, p.ID.Hex(), update.Name); err != nil {
		s.Logger.Error("failed to advance cursor",
			zap.String("producer", p.URL), zap.Error(err))
	}
	p.LastUpdate = update.Name
}

// driveUpdate runs the mapping (when configured) and the apply engine for
// one update. The update is passed by value: mapping rewrites doctype and
// payload locally without touching the caller's copy.
func (s *ProducerServiceImpl) driveUpdate(ctx context.Context, client SiteClient, p *EventProducer, update UpdateLog, mappingName string, useSameName bool) (string, error) {
	if mappingName != "" {
		rule, err := s.Mappings.GetMapping(ctx, mappingName)
		if err != nil {
			return "", fmt.Errorf("mapping %s not found: %w", mappingName, err)
		}
		if update.UpdateType != UpdateTypeDelete {
			mapped, err := s.Mappings.Resolve(rule, update.Data)
			if err != nil {
				return "", err
			}
			update.Data = mapped
		}
		update.RefDoctype = rule.LocalDoctype
	}

	return s.engine.Apply(ctx, client, p, &update, useSameName)
}

// expandConfig flattens the subscription list into the effective remote
// doctypes plus per-doctype mapping and naming lookups. A mapping-based
// subscription listens for the rule's remote doctype.
func (s *ProducerServiceImpl) expandConfig(ctx context.Context, p *EventProducer) ([]string, map[string]string, map[string]bool, error) {
	var doctypes []string
	mappingConf := make(map[string]string)
	namingConf := make(map[string]bool)

	for _, sub := range p.Subscriptions {
		if sub.Mapping != "" {
			rule, err := s.Mappings.GetMapping(ctx, sub.Mapping)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("subscription mapping %s not found: %w", sub.Mapping, err)
			}
			mappingConf[rule.RemoteDoctype] = rule.Name
			namingConf[rule.RemoteDoctype] = sub.UseSameName
			doctypes = append(doctypes, rule.RemoteDoctype)
			continue
		}

		namingConf[sub.RefDoctype] = sub.UseSameName
		doctypes = append(doctypes, sub.RefDoctype)
	}

	return doctypes, mappingConf, namingConf, nil
}
