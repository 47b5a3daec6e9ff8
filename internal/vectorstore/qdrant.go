// Package vectorstore provides the external vector database client.
package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("rune.vectorstore.qdrant")

// collectionNamePattern validates collection names: lowercase letters,
// digits, underscores, 1-69 characters (matches CollectionNameFor output).
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,69}$`)

// ValidateCollectionName rejects collection names outside the pattern the
// engine itself generates, preventing path-traversal-style names from
// reaching the gRPC client.
func ValidateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: must match ^[a-z0-9_]{1,69}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	Host                    string
	Port                    int
	UseTLS                  bool
	APIKey                  string
	MaxMessageSize          int
	MaxRetries              int
	RetryBackoff            time.Duration
	CircuitBreakerThreshold int32
	CircuitBreakerReset     time.Duration
}

// ApplyDefaults fills in unset fields with the documented defaults.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.CircuitBreakerReset == 0 {
		c.CircuitBreakerReset = 30 * time.Second
	}
}

// IsTransientError reports whether err is worth retrying (network blips,
// timeouts, overload) as opposed to a permanent rejection.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// QdrantStore is the Store implementation backed by an external Qdrant
// instance over gRPC. One collection per workspace; quantization mode is
// fixed per collection at creation time.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig

	collections sync.Map // collection name -> true, existence cache
	breaker     *CircuitBreaker
}

// NewQdrantStore dials the configured Qdrant endpoint and verifies
// connectivity with a health check before returning.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	cfg.ApplyDefaults()
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host required", ErrInvalidConfig)
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	}
	if cfg.APIKey != "" {
		qcfg.APIKey = cfg.APIKey
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &QdrantStore{
		client:  client,
		config:  cfg,
		breaker: NewCircuitBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerReset),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check failed: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Healthy reports whether the circuit breaker currently allows requests.
// The Engine polls this to populate the `degraded` flag in stats.
func (s *QdrantStore) Healthy() bool {
	return s.breaker.State() != "open"
}

// Ping performs a lightweight health check against the Qdrant server, for
// use by a HealthMonitor's background reconnection loop.
func (s *QdrantStore) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	return err
}

func (s *QdrantStore) retry(ctx context.Context, op string, fn func() error) error {
	if !s.breaker.Allow() {
		return fmt.Errorf("%w: %s: circuit breaker open", ErrUnavailable, op)
	}

	backoff := s.config.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			s.breaker.RecordSuccess()
			return nil
		}
		if !IsTransientError(lastErr) {
			return fmt.Errorf("%s: %w", op, lastErr)
		}
		s.breaker.RecordFailure()
		if attempt == s.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", op, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return fmt.Errorf("%w: %s failed after %d retries: %v", ErrUnavailable, op, s.config.MaxRetries, lastErr)
}

// pointID derives a deterministic UUID from (path, start_line, end_line)
// so re-indexing an unchanged chunk upserts in place rather than
// duplicating.
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func toPayload(p Point) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"path":        {Kind: &qdrant.Value_StringValue{StringValue: p.Path}},
		"rel_path":    {Kind: &qdrant.Value_StringValue{StringValue: p.RelPath}},
		"repository":  {Kind: &qdrant.Value_StringValue{StringValue: p.Repository}},
		"language":    {Kind: &qdrant.Value_StringValue{StringValue: p.Language}},
		"start_line":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.StartLine)}},
		"end_line":    {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.EndLine)}},
		"symbol_name": {Kind: &qdrant.Value_StringValue{StringValue: p.SymbolName}},
		"content":     {Kind: &qdrant.Value_StringValue{StringValue: p.Content}},
		"point_id":    {Kind: &qdrant.Value_StringValue{StringValue: p.ID}},
	}
}

func fromPayload(payload map[string]*qdrant.Value) Point {
	var p Point
	str := func(k string) string {
		if v, ok := payload[k]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	p.Path = str("path")
	p.RelPath = str("rel_path")
	p.Repository = str("repository")
	p.Language = str("language")
	p.SymbolName = str("symbol_name")
	p.Content = str("content")
	p.ID = str("point_id")
	if v, ok := payload["start_line"]; ok {
		p.StartLine = int(v.GetIntegerValue())
	}
	if v, ok := payload["end_line"]; ok {
		p.EndLine = int(v.GetIntegerValue())
	}
	return p
}

// Upsert inserts or replaces points in a collection, batched by chunk.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if len(points) == 0 {
		return ErrEmptyPoints
	}

	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("points", len(points)))

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id:      pointID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: toPayload(p),
		}
	}

	err := s.retry(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         qpoints,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func buildFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		cond := &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: k,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: v},
					},
				},
			},
		}
		conditions = append(conditions, cond)
	}
	return &qdrant.Filter{Must: conditions}
}

func toScoredPoints(results []*qdrant.ScoredPoint) []ScoredPoint {
	out := make([]ScoredPoint, len(results))
	for i, r := range results {
		out[i] = ScoredPoint{
			Point: fromPayload(r.GetPayload()),
			Score: r.GetScore(),
		}
	}
	return out
}

// Search performs a similarity search against a query vector. When the
// collection was created with `asymmetric` quantization, the search is
// issued with a rescore param so the binary-storage ANN pass is corrected
// by a scalar-precision rescore.
func (s *QdrantStore) Search(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]ScoredPoint, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection), attribute.Int("k", k))

	var results []*qdrant.ScoredPoint
	err := s.retry(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         buildFilter(filter),
			Params: &qdrant.SearchParams{
				Quantization: &qdrant.QuantizationSearchParams{
					Rescore: qdrant.PtrOf(true),
				},
			},
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toScoredPoints(results), nil
}

// ExactSearch bypasses HNSW for brute-force search, used for small or
// freshly-created collections where the ANN index may not be built yet.
func (s *QdrantStore) ExactSearch(ctx context.Context, collection string, queryVector []float32, k int) ([]ScoredPoint, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "QdrantStore.ExactSearch")
	defer span.End()

	var results []*qdrant.ScoredPoint
	err := s.retry(ctx, "exact_search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
			Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toScoredPoints(results), nil
}

// Delete removes points by ID from a collection.
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	qids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		qids[i] = pointID(id)
	}

	return s.retry(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: qids},
				},
			},
		})
		return err
	})
}

// DeleteByPath removes all points belonging to a file, used on file
// deletion or re-chunking.
func (s *QdrantStore) DeleteByPath(ctx context.Context, collection string, path string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	return s.retry(ctx, "delete_by_path", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: &qdrant.Filter{
						Must: []*qdrant.Condition{
							{
								ConditionOneOf: &qdrant.Condition_Field{
									Field: &qdrant.FieldCondition{
										Key:   "path",
										Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: path}},
									},
								},
							},
						},
					},
				},
			},
		})
		return err
	})
}

// quantizationConfigFor builds the Qdrant quantization config for the
// requested mode. "asymmetric" stores points at 1-bit precision (cheapest)
// and relies on Search's per-query rescore param for accuracy.
func quantizationConfigFor(mode QuantizationMode) *qdrant.QuantizationConfig {
	switch mode {
	case QuantizationScalar:
		return qdrant.NewQuantizationScalar(&qdrant.ScalarQuantization{
			Type:      qdrant.QuantizationType_Int8,
			Quantile:  qdrant.PtrOf(float32(0.99)),
			AlwaysRam: qdrant.PtrOf(true),
		})
	case QuantizationBinary, QuantizationAsymmetric:
		return qdrant.NewQuantizationBinary(&qdrant.BinaryQuantization{
			AlwaysRam: qdrant.PtrOf(true),
		})
	default:
		return nil
	}
}

// CreateCollection creates a collection with the given vector size and
// quantization mode, if it doesn't already exist. Quantization is fixed
// per collection; changing it later requires recreation.
func (s *QdrantStore) CreateCollection(ctx context.Context, collection string, vectorSize int, quantization QuantizationMode) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.retry(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
			QuantizationConfig: quantizationConfigFor(quantization),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", collection, err)
	}
	s.collections.Store(collection, true)
	return nil
}

// DeleteCollection deletes a collection and all its points.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	err := s.retry(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, collection)
	})
	s.collections.Delete(collection)
	return err
}

// CollectionExists reports whether a collection exists, consulting a
// local cache before round-tripping to Qdrant.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return false, err
	}
	if _, ok := s.collections.Load(collection); ok {
		return true, nil
	}

	var exists bool
	err := s.retry(ctx, "collection_exists", func() error {
		info, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if exists {
		s.collections.Store(collection, true)
	}
	return exists, nil
}

// GetCollectionInfo returns point count and vector size for a collection.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	var info *CollectionInfo
	err := s.retry(ctx, "get_collection_info", func() error {
		collInfo, err := s.client.GetCollectionInfo(ctx, collection)
		if err != nil {
			if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
				return ErrCollectionNotFound
			}
			return err
		}
		pointCount := 0
		if collInfo.PointsCount != nil {
			pointCount = int(*collInfo.PointsCount)
		}
		vectorSize := 0
		if vp := collInfo.GetConfig().GetParams().GetVectorsConfig().GetParams(); vp != nil {
			vectorSize = int(vp.GetSize())
		}
		info = &CollectionInfo{Name: collection, PointCount: pointCount, VectorSize: vectorSize}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

var _ Store = (*QdrantStore)(nil)
