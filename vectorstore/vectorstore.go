// Package vectorstore keeps trained SQL examples, DDL and documentation in
// Qdrant and retrieves the entries closest to a question.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"querypilot/config"
	"querypilot/errs"
	"querypilot/models"
)

// Collection names.
const (
	CollectionSQL           = "sql"
	CollectionDDL           = "ddl"
	CollectionDocumentation = "documentation"
)

var collectionSuffix = map[string]string{
	CollectionSQL:           "-sql",
	CollectionDDL:           "-ddl",
	CollectionDocumentation: "-doc",
}

const (
	payloadContent  = "content"
	payloadQuestion = "question"
	payloadSQL      = "sql"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type client interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Hit is one retrieved entry. Question and SQL are set for the sql collection.
type Hit struct {
	ID       string
	Content  string
	Question string
	SQL      string
	Score    float32
}

type Store struct {
	client   client
	embedder Embedder
	dim      uint64
}

// New connects to Qdrant over gRPC.
func New(cfg config.QdrantConfig, dim int, embedder Embedder) (*Store, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errs.Connection("connect to qdrant", err)
	}
	return NewWithClient(c, dim, embedder), nil
}

func NewWithClient(c client, dim int, embedder Embedder) *Store {
	return &Store{client: c, embedder: embedder, dim: uint64(dim)}
}

// WithEmbedder returns a store sharing the same connection but embedding with e.
func (s *Store) WithEmbedder(e Embedder) *Store {
	return &Store{client: s.client, embedder: e, dim: s.dim}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollections creates any missing collection with cosine distance.
func (s *Store) EnsureCollections(ctx context.Context) error {
	for _, name := range []string{CollectionSQL, CollectionDDL, CollectionDocumentation} {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return errs.Connection(fmt.Sprintf("check collection %s", name), err)
		}
		if exists {
			continue
		}
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return errs.Connection(fmt.Sprintf("create collection %s", name), err)
		}
	}
	return nil
}

// DeterministicID derives a stable point id from content so re-training the
// same item overwrites it.
func DeterministicID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return uuid.NewSHA1(uuid.Nil, []byte(hex.EncodeToString(sum[:]))).String()
}

// QuestionSQLContent is the text embedded for a question/SQL pair.
func QuestionSQLContent(question, sql string) string {
	return fmt.Sprintf("Question: %s\n\nSQL: %s", question, sql)
}

// Add embeds and stores item, returning its public id.
func (s *Store) Add(ctx context.Context, item models.TrainingItem) (string, error) {
	collection, content, payload, err := itemPayload(item)
	if err != nil {
		return "", err
	}
	vector, err := s.embed(ctx, content)
	if err != nil {
		return "", err
	}

	pointID := DeterministicID(content)
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(pointID),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return "", errs.Connection(fmt.Sprintf("upsert into %s", collection), err)
	}
	return pointID + collectionSuffix[collection], nil
}

func itemPayload(item models.TrainingItem) (collection, content string, payload map[string]any, err error) {
	switch item.Kind {
	case models.TrainingKindSQL:
		if strings.TrimSpace(item.Question) == "" || strings.TrimSpace(item.SQL) == "" {
			return "", "", nil, fmt.Errorf("sql training item needs both question and sql")
		}
		content = QuestionSQLContent(item.Question, item.SQL)
		return CollectionSQL, content, map[string]any{
			payloadContent:  content,
			payloadQuestion: item.Question,
			payloadSQL:      item.SQL,
		}, nil
	case models.TrainingKindDDL:
		collection = CollectionDDL
	case models.TrainingKindDocumentation:
		collection = CollectionDocumentation
	default:
		return "", "", nil, fmt.Errorf("unknown training kind %q", item.Kind)
	}
	if strings.TrimSpace(item.Content) == "" {
		return "", "", nil, fmt.Errorf("%s training item has no content", item.Kind)
	}
	return collection, item.Content, map[string]any{payloadContent: item.Content}, nil
}

// SplitID maps a public id to its collection and point id.
func SplitID(id string) (collection, pointID string, ok bool) {
	for name, suffix := range collectionSuffix {
		if strings.HasSuffix(id, suffix) {
			pointID = strings.TrimSuffix(id, suffix)
			if _, err := uuid.Parse(pointID); err != nil {
				return "", "", false
			}
			return name, pointID, true
		}
	}
	return "", "", false
}

// Remove deletes the point with the given public id. Unknown id formats report false.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	collection, pointID, ok := SplitID(id)
	if !ok {
		return false, nil
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(pointID)),
	})
	if err != nil {
		return false, errs.Connection(fmt.Sprintf("delete from %s", collection), err)
	}
	return true, nil
}

// Search returns the k entries of collection closest to text, best first.
func (s *Store) Search(ctx context.Context, collection, text string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	vector, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, collection, vector, k)
}

// SearchVector is Search for an already embedded query.
func (s *Store) SearchVector(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.Connection(fmt.Sprintf("query %s", collection), err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		hit := hitFromPayload(collection, point.GetId(), point.GetPayload())
		hit.Score = point.GetScore()
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

func hitFromPayload(collection string, id *qdrant.PointId, payload map[string]*qdrant.Value) Hit {
	hit := Hit{
		Content:  payload[payloadContent].GetStringValue(),
		Question: payload[payloadQuestion].GetStringValue(),
		SQL:      payload[payloadSQL].GetStringValue(),
	}
	if id != nil {
		hit.ID = id.GetUuid() + collectionSuffix[collection]
	}
	return hit
}

// Related is the trained context retrieved for one question.
type Related struct {
	QuestionSQL   []Hit
	DDL           []string
	Documentation []string
}

// RelatedContext embeds question once and returns the k closest entries of
// every collection.
func (s *Store) RelatedContext(ctx context.Context, question string, k int) (Related, error) {
	var related Related
	if k <= 0 {
		return related, nil
	}
	vector, err := s.embed(ctx, question)
	if err != nil {
		return related, err
	}

	if related.QuestionSQL, err = s.SearchVector(ctx, CollectionSQL, vector, k); err != nil {
		return Related{}, err
	}
	if related.DDL, err = s.contents(ctx, CollectionDDL, vector, k); err != nil {
		return Related{}, err
	}
	if related.Documentation, err = s.contents(ctx, CollectionDocumentation, vector, k); err != nil {
		return Related{}, err
	}
	return related, nil
}

func (s *Store) contents(ctx context.Context, collection string, vector []float32, k int) ([]string, error) {
	hits, err := s.SearchVector(ctx, collection, vector, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.Content)
	}
	return out, nil
}

// SampleQuestions returns up to n trained questions without embedding anything.
func (s *Store) SampleQuestions(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: CollectionSQL,
		Limit:          qdrant.PtrOf(uint32(n)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.Connection("scroll sql collection", err)
	}
	questions := make([]string, 0, len(points))
	for _, point := range points {
		if q := point.GetPayload()[payloadQuestion].GetStringValue(); q != "" {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errs.Configuration("vector store has no embedder", nil)
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.dim > 0 && uint64(len(vector)) != s.dim {
		return nil, errs.Configuration(fmt.Sprintf("embedding has %d dimensions, collections expect %d", len(vector), s.dim), nil)
	}
	return vector, nil
}
