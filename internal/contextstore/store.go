// Package contextstore is the semantic memory of past interactions. Each
// question/answer pair is embedded and indexed per session in a chromem-go
// collection; retrieval returns the nearest pairs by cosine distance.
package contextstore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/xiaot623/entertainbot/internal/sanitize"
)

// Defaults for retrieval.
const (
	DefaultMaxResults = 3
	DefaultThreshold  = 1.2

	// CollectionName is the chromem collection holding interactions.
	CollectionName = "conversation_context"
)

// Metadata keys stored with each document.
const (
	metaSessionID   = "session_id"
	metaTimestamp   = "timestamp"
	metaUserMessage = "user_message"
	metaToolsUsed   = "tools_used"
)

// Metadata describes a stored interaction.
type Metadata struct {
	SessionID   string `json:"session_id"`
	Timestamp   string `json:"timestamp"`
	UserMessage string `json:"user_message"`
	ToolsUsed   string `json:"tools_used"`
}

// Record is one retrieval hit. Distance is cosine distance in [0, 2];
// smaller is more similar.
type Record struct {
	Document string   `json:"document"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// Stats summarizes the store for operational endpoints.
type Stats struct {
	Embedder      string `json:"embedder"`
	DocumentCount int    `json:"document_count"`
}

// Config tunes retrieval.
type Config struct {
	MaxResults int
	// Threshold is the largest distance a record may have to be returned.
	// Zero keeps only exact matches; a negative value selects
	// DefaultThreshold.
	Threshold float64
	Logger    *slog.Logger
}

// Store embeds, indexes and retrieves past interactions.
type Store struct {
	// mu serializes writes so ClearSession can report how many documents
	// it removed.
	mu         sync.Mutex
	collection *chromem.Collection
	embedder   Embedder
	maxResults int
	threshold  float64
	logger     *slog.Logger
	now        func() time.Time
}

// New opens (or creates) the interaction collection in db.
func New(db *chromem.DB, embedder Embedder, cfg Config) (*Store, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	collection, err := db.GetOrCreateCollection(CollectionName, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to open context collection: %w", err)
	}

	return &Store{
		collection: collection,
		embedder:   embedder,
		maxResults: cfg.MaxResults,
		threshold:  cfg.Threshold,
		logger:     cfg.Logger,
		now:        time.Now,
	}, nil
}

// MaxResults is the configured default result cap.
func (s *Store) MaxResults() int {
	return s.maxResults
}

// Threshold is the configured distance cutoff.
func (s *Store) Threshold() float64 {
	return s.threshold
}

// Store saves one question/answer pair for sessionID.
func (s *Store) Store(ctx context.Context, sessionID, question, answer string, toolNames []string) error {
	document := fmt.Sprintf("Q: %s\nA: %s", question, answer)
	vectors, err := s.embedder.Embed(ctx, []string{document})
	if err != nil {
		return err
	}

	now := s.now().UTC()
	doc := chromem.Document{
		ID:      sessionID + "_" + uuid.NewString(),
		Content: document,
		Metadata: map[string]string{
			metaSessionID:   sessionID,
			metaTimestamp:   now.Format(time.RFC3339Nano),
			metaUserMessage: sanitize.Truncate(question, 500),
			metaToolsUsed:   strings.Join(toolNames, ","),
		},
		Embedding: vectors[0],
	}

	s.mu.Lock()
	err = s.collection.AddDocument(ctx, doc)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to store context: %w", err)
	}

	s.logger.Info("context_stored",
		"session_id", sessionID,
		"doc_id", doc.ID,
		"doc_length", len(document),
	)
	return nil
}

// Retrieve returns up to maxResults records nearest to query, most similar
// first, dropping any farther than the threshold. maxResults <= 0 uses the
// configured default. Without crossSession only sessionID's records are
// searched.
func (s *Store) Retrieve(ctx context.Context, sessionID, query string, maxResults int, crossSession bool) ([]Record, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	// chromem rejects nResults larger than the collection.
	n := min(maxResults, s.collection.Count())
	if n == 0 {
		return []Record{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if isZero(vectors[0]) {
		return []Record{}, nil
	}

	var where map[string]string
	if !crossSession {
		where = map[string]string{metaSessionID: sessionID}
	}
	results, err := s.collection.QueryEmbedding(ctx, vectors[0], n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query context: %w", err)
	}

	hits := make([]Record, 0, len(results))
	for _, r := range results {
		hits = append(hits, Record{
			Document: r.Content,
			Metadata: Metadata{
				SessionID:   r.Metadata[metaSessionID],
				Timestamp:   r.Metadata[metaTimestamp],
				UserMessage: r.Metadata[metaUserMessage],
				ToolsUsed:   r.Metadata[metaToolsUsed],
			},
			Distance: math.Round((1-float64(r.Similarity))*10000) / 10000,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	out := make([]Record, 0, len(hits))
	for _, h := range hits {
		if h.Distance <= s.threshold {
			out = append(out, h)
		}
	}

	s.logger.Info("context_retrieved",
		"session_id", sessionID,
		"query_length", len(query),
		"results_found", len(out),
	)
	return out, nil
}

// ClearSession deletes every record of sessionID and returns the count.
func (s *Store) ClearSession(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.collection.Count()
	if err := s.collection.Delete(ctx, map[string]string{metaSessionID: sessionID}, nil); err != nil {
		return 0, fmt.Errorf("failed to clear context: %w", err)
	}
	n := before - s.collection.Count()
	if n > 0 {
		s.logger.Info("context_cleared", "session_id", sessionID, "docs_deleted", n)
	}
	return n, nil
}

// Stats reports the embedder and document count.
func (s *Store) Stats(context.Context) (Stats, error) {
	return Stats{Embedder: s.embedder.Name(), DocumentCount: s.collection.Count()}, nil
}

// FormatForPrompt renders records as a context block for the system
// prompt, or "" when there are none.
func FormatForPrompt(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	parts := []string{"Here is relevant context from our previous conversations:\n"}
	for i, r := range records {
		parts = append(parts,
			fmt.Sprintf("--- Past Interaction %d (relevance: %.0f%%) ---", i+1, (1-r.Distance)*100),
			r.Document,
			"",
		)
	}
	parts = append(parts, "Use this context to provide more informed and personalized responses.")
	return strings.Join(parts, "\n")
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
