package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"admissionsbot/internal/config"
	"admissionsbot/internal/domain"
	"admissionsbot/internal/service"
	"admissionsbot/internal/vectorstore/memory"
)

// keywordEmbedder maps text onto a small bag-of-keywords vector so that
// related texts land close together.
type keywordEmbedder struct {
	mu         sync.Mutex
	batchCalls int
	queryCalls int
	err        error
}

var keywords = []string{"deadline", "fee", "computer", "business", "hostel", "scholarship"}

func vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(keywords)+1)
	for i, k := range keywords {
		if strings.Contains(lower, k) {
			v[i] = 1
		}
	}
	v[len(keywords)] = 0.1
	return v
}

func (e *keywordEmbedder) Name() string { return "keyword" }

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return vectorFor(text), nil
}

// recordingStore wraps a store and records upsert batches and search order.
type recordingStore struct {
	domain.VectorStore
	mu       sync.Mutex
	upserts  int
	searched []string
	failNS   string
}

func (s *recordingStore) Upsert(ctx context.Context, ns string, entries []domain.IndexedEntry) error {
	s.mu.Lock()
	s.upserts++
	s.mu.Unlock()
	return s.VectorStore.Upsert(ctx, ns, entries)
}

func (s *recordingStore) Search(ctx context.Context, ns string, q []float32, k int) ([]domain.SearchResult, error) {
	s.mu.Lock()
	s.searched = append(s.searched, ns)
	s.mu.Unlock()
	if ns == s.failNS {
		return nil, errors.New("namespace unavailable")
	}
	return s.VectorStore.Search(ctx, ns, q, k)
}

// groundedCompleter answers from the "Data:" section of the prompt only.
type groundedCompleter struct {
	mu      sync.Mutex
	prompts []string
	creds   []string
	err     error
}

func (c *groundedCompleter) Complete(_ context.Context, prompt, credential string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.creds = append(c.creds, credential)
	c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	data := between(prompt, "Data:", "Question:")
	question := strings.ToLower(between(prompt, "Question:", "Instructions:"))
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, k := range keywords {
			if strings.Contains(question, k) && strings.Contains(strings.ToLower(line), k) {
				return line, nil
			}
		}
	}
	return service.FallbackAnswer, nil
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		s = s[:j]
	}
	return s
}

var namespaces = []string{"umt-faqs-namespace", "umt-programs-namespace"}

func newFixture(t *testing.T) (*service.RAGService, *keywordEmbedder, *recordingStore, *groundedCompleter) {
	t.Helper()
	emb := &keywordEmbedder{}
	store := &recordingStore{VectorStore: memory.NewStorage()}
	comp := &groundedCompleter{}
	return service.NewRAGService(emb, store, comp, namespaces, 5, zap.NewNop()), emb, store, comp
}

func doc(content string) domain.Document {
	return domain.Document{Content: content, Metadata: map[string]string{"category": "test"}}
}

func TestIngestOneBatchPerCall(t *testing.T) {
	svc, emb, store, _ := newFixture(t)
	ctx := context.Background()

	ids, err := svc.IngestDocuments(ctx, namespaces[0], []domain.Document{
		doc("The application deadline for Fall is August 15."),
		doc("Hostel rooms are allotted on a first come basis."),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, 1, emb.batchCalls)
	assert.Equal(t, 1, store.upserts)
}

func TestIngestTwiceCreatesDistinctEntries(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()
	docs := []domain.Document{doc("Fee is payable quarterly.")}

	first, err := svc.IngestDocuments(ctx, namespaces[0], docs)
	require.NoError(t, err)
	second, err := svc.IngestDocuments(ctx, namespaces[0], docs)
	require.NoError(t, err)
	assert.NotEqual(t, first[0], second[0])

	got, err := svc.Retrieve(ctx, "what is the fee")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestIngestEmptyBatch(t *testing.T) {
	svc, emb, _, _ := newFixture(t)
	_, err := svc.IngestDocuments(context.Background(), namespaces[0], nil)
	assert.ErrorIs(t, err, service.ErrNoDocuments)
	assert.Zero(t, emb.batchCalls)
}

func TestIngestEmbedFailureWritesNothing(t *testing.T) {
	svc, emb, store, _ := newFixture(t)
	emb.err = errors.New("provider down")
	_, err := svc.IngestDocuments(context.Background(), namespaces[0], []domain.Document{doc("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Zero(t, store.upserts)
}

func TestIngestLogsNamespaceAndCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	emb := &keywordEmbedder{}
	ix := service.NewIndexer(emb, memory.NewStorage(), zap.New(core))

	_, err := ix.Index(context.Background(), "ns", []domain.Document{doc("a"), doc("b")})
	require.NoError(t, err)

	entries := logs.FilterMessage("indexed documents").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ns", fields["namespace"])
	assert.EqualValues(t, 2, fields["count"])
}

func TestRetrieveBoundedByNamespacesTimesK(t *testing.T) {
	svc, emb, store, _ := newFixture(t)
	ctx := context.Background()
	var many []domain.Document
	for i := 0; i < 8; i++ {
		many = append(many, doc("fee schedule entry"))
	}
	_, err := svc.IngestDocuments(ctx, namespaces[0], many)
	require.NoError(t, err)
	_, err = svc.IngestDocuments(ctx, namespaces[1], many)
	require.NoError(t, err)

	got, err := svc.Retrieve(ctx, "fee")
	require.NoError(t, err)
	assert.Len(t, got, 10)
	assert.Equal(t, 1, emb.queryCalls)
	assert.Equal(t, namespaces, store.searched)
}

func TestRetrieverDefaultsK(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	store := memory.NewStorage()
	var many []domain.Document
	for i := 0; i < 8; i++ {
		many = append(many, doc("fee schedule entry"))
	}
	_, err := service.NewIndexer(emb, store, nil).Index(ctx, "ns", many)
	require.NoError(t, err)

	got, err := service.NewRetriever(emb, store, []string{"ns"}, 0, nil).Retrieve(ctx, "fee")
	require.NoError(t, err)
	assert.Len(t, got, config.DefaultTopK)
}

func TestRetrieveNamespaceOrder(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()
	_, err := svc.IngestDocuments(ctx, namespaces[1], []domain.Document{doc("Program: Computer Science, fee 1,000,000")})
	require.NoError(t, err)
	_, err = svc.IngestDocuments(ctx, namespaces[0], []domain.Document{doc("FAQ: fee is paid quarterly")})
	require.NoError(t, err)

	got, err := svc.Retrieve(ctx, "fee")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "FAQ: fee is paid quarterly", got[0].Content)
	assert.Equal(t, "Program: Computer Science, fee 1,000,000", got[1].Content)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	got, err := svc.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveFailsWhenOneNamespaceFails(t *testing.T) {
	svc, _, store, _ := newFixture(t)
	ctx := context.Background()
	_, err := svc.IngestDocuments(ctx, namespaces[0], []domain.Document{doc("fee")})
	require.NoError(t, err)
	store.failNS = namespaces[1]

	_, err = svc.Retrieve(ctx, "fee")
	require.Error(t, err)
	assert.Contains(t, err.Error(), namespaces[1])
}

func TestAnswerGroundedInRetrievedData(t *testing.T) {
	svc, _, _, comp := newFixture(t)
	ctx := context.Background()
	_, err := svc.IngestDocuments(ctx, namespaces[0], []domain.Document{
		doc("The application deadline for Fall is August 15."),
	})
	require.NoError(t, err)

	answer, err := svc.Answer(ctx, "What is the application deadline?", "sk-user")
	require.NoError(t, err)
	assert.Contains(t, answer, "August 15")
	require.Len(t, comp.creds, 1)
	assert.Equal(t, "sk-user", comp.creds[0])
	assert.Contains(t, comp.prompts[0], "The application deadline for Fall is August 15.")
	assert.Contains(t, comp.prompts[0], "What is the application deadline?")
}

func TestAnswerFallbackWhenDataLacksAnswer(t *testing.T) {
	svc, _, _, _ := newFixture(t)
	ctx := context.Background()
	_, err := svc.IngestDocuments(ctx, namespaces[0], []domain.Document{doc("Hostel rooms are limited.")})
	require.NoError(t, err)

	answer, err := svc.Answer(ctx, "Is there a scholarship for athletes?", "sk-user")
	require.NoError(t, err)
	assert.Equal(t, service.FallbackAnswer, answer)
}

func TestAnswerMissingCredentialCallsNothing(t *testing.T) {
	svc, emb, store, comp := newFixture(t)
	_, err := svc.Answer(context.Background(), "fee?", "")
	assert.ErrorIs(t, err, service.ErrMissingCredential)
	assert.Zero(t, emb.queryCalls)
	assert.Empty(t, store.searched)
	assert.Empty(t, comp.prompts)
}

func TestAnswerPropagatesCompleterError(t *testing.T) {
	svc, _, _, comp := newFixture(t)
	comp.err = errors.New("status 401: invalid api key")
	_, err := svc.Answer(context.Background(), "fee?", "sk-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestComposerPromptLayout(t *testing.T) {
	c := service.NewComposer(&groundedCompleter{})
	prompt, err := c.Prompt([]domain.Document{doc("first"), doc("second")}, "q?")
	require.NoError(t, err)
	assert.Contains(t, prompt, "first\nsecond")
	assert.Contains(t, prompt, "Question:\nq?")
	assert.Contains(t, prompt, service.FallbackAnswer)
	assert.Contains(t, prompt, "Do NOT invent facts or guess.")
}

func TestComposerEmptyContextStillCallsModel(t *testing.T) {
	comp := &groundedCompleter{}
	c := service.NewComposer(comp)
	answer, err := c.Compose(context.Background(), nil, "Is there a scholarship?", "sk")
	require.NoError(t, err)
	assert.Equal(t, service.FallbackAnswer, answer)
	assert.Len(t, comp.prompts, 1)
}

func TestComposerReturnsReplyVerbatim(t *testing.T) {
	c := service.NewComposer(completerFunc(func(context.Context, string, string) (string, error) {
		return "  spaced reply\n", nil
	}))
	answer, err := c.Compose(context.Background(), nil, "q", "sk")
	require.NoError(t, err)
	assert.Equal(t, "  spaced reply\n", answer)
}

type completerFunc func(ctx context.Context, prompt, credential string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt, credential string) (string, error) {
	return f(ctx, prompt, credential)
}
