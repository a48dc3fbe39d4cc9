package qdrant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"admissionsbot/internal/domain"
	"admissionsbot/internal/logging"
	"admissionsbot/internal/vectorstore"
)

// Payload keys. Qdrant has no namespaces, so every point carries its
// namespace and searches filter on it.
const (
	keyNamespace = "namespace"
	keyContent   = "page_content"
	keyMetadata  = "metadata"
)

const defaultMaxMessageSize = 50 * 1024 * 1024

// client is the subset of *qdrant.Client the store uses.
type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// Storage stores every namespace of one index in a single Qdrant collection.
// The collection is created with cosine distance on first upsert.
type Storage struct {
	client     client
	collection string
	timeout    time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
}

type Config struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection is required")
	}
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(defaultMaxMessageSize),
				grpc.MaxCallSendMsgSize(defaultMaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return newStorage(c, cfg.Collection, cfg.Timeout, logger), nil
}

func newStorage(c client, collection string, timeout time.Duration, logger *zap.Logger) *Storage {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{client: c, collection: collection, timeout: timeout, logger: logging.OrNop(logger)}
}

func (s *Storage) Close() error { return s.client.Close() }

func (s *Storage) Upsert(ctx context.Context, namespace string, entries []domain.IndexedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	dim, err := vectorstore.CheckDimensions(entries)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.ensureCollection(ctx, dim); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(e.ID),
			Vectors: qdrant.NewVectors(e.Embedding...),
			Payload: toPayload(namespace, e.Document),
		}
	}
	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant upsert into %s/%s: %w", s.collection, namespace, err)
	}
	s.logger.Debug("upserted points",
		zap.String("collection", s.collection),
		zap.String("namespace", namespace),
		zap.Int("count", len(points)),
	)
	return nil
}

func (s *Storage) Search(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// nothing has been ingested into this index yet
	if ok, err := s.collectionExists(ctx); err != nil {
		return nil, err
	} else if !ok {
		return []domain.SearchResult{}, nil
	}

	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(keyNamespace, namespace)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query %s/%s: %w", s.collection, namespace, err)
	}
	out := make([]domain.SearchResult, 0, len(res))
	for _, p := range res {
		out = append(out, domain.SearchResult{Document: fromPayload(p.GetPayload()), Score: p.GetScore()})
	}
	return out, nil
}

func (s *Storage) collectionExists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready {
		return true, nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("qdrant collection %s: %w", s.collection, err)
	}
	return exists, nil
}

func (s *Storage) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant collection %s: %w", s.collection, err)
	}
	if !exists {
		if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		}); err != nil {
			return fmt.Errorf("qdrant create collection %s: %w", s.collection, err)
		}
		if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      keyNamespace,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		}); err != nil {
			return fmt.Errorf("qdrant index %s.%s: %w", s.collection, keyNamespace, err)
		}
		s.logger.Info("created collection",
			zap.String("collection", s.collection),
			zap.Int("dimension", dim),
		)
	}
	s.ready = true
	return nil
}

func toPayload(namespace string, doc domain.Document) map[string]*qdrant.Value {
	meta := make(map[string]*qdrant.Value, len(doc.Metadata))
	for k, v := range doc.Metadata {
		meta[k] = qdrant.NewValueString(v)
	}
	return map[string]*qdrant.Value{
		keyNamespace: qdrant.NewValueString(namespace),
		keyContent:   qdrant.NewValueString(doc.Content),
		keyMetadata:  {Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: meta}}},
	}
}

func fromPayload(payload map[string]*qdrant.Value) domain.Document {
	doc := domain.Document{
		Content:  payload[keyContent].GetStringValue(),
		Metadata: map[string]string{},
	}
	for k, v := range payload[keyMetadata].GetStructValue().GetFields() {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			doc.Metadata[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			doc.Metadata[k] = fmt.Sprintf("%d", kind.IntegerValue)
		case *qdrant.Value_DoubleValue:
			doc.Metadata[k] = fmt.Sprintf("%g", kind.DoubleValue)
		case *qdrant.Value_BoolValue:
			doc.Metadata[k] = fmt.Sprintf("%t", kind.BoolValue)
		}
	}
	return doc
}
