package websearch

import (
	"context"
	"fmt"
	"strings"

	"medirag-be/pkg/search/tavily"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

const DefaultMaxResults = 3

// Searcher looks up terminology questions on the web and shapes the
// results into the same context/sources form the retriever produces.
type Searcher struct {
	client     tavily.Searcher
	logger     *zap.Logger
	maxResults int
}

func NewSearcher(client tavily.Searcher, logger *zap.Logger, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Searcher{client: client, logger: logger, maxResults: maxResults}
}

func (s *Searcher) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	query := strings.TrimSpace(state.Question)

	results, err := s.client.Search(ctx, query, s.maxResults)
	if err != nil {
		s.logger.Warn("web search failed, continuing with empty context", zap.Error(err))
		state.RetrievedDocs = nil
		state.Context = ""
		state.Sources = nil
		return state, nil
	}

	var (
		docs         []workflow.Document
		contextParts []string
		sources      []string
		seenURLs     = make(map[string]bool)
	)
	for i, result := range results {
		n := i + 1
		docs = append(docs, workflow.Document{
			Content: result.Content,
			Metadata: map[string]string{
				"title": result.Title,
				"url":   result.URL,
			},
			Score: result.Score,
		})
		contextParts = append(contextParts, fmt.Sprintf("[출처 %d] %s", n, result.Content))
		if result.URL != "" && !seenURLs[result.URL] {
			sources = append(sources, fmt.Sprintf("[%d] %s", n, result.URL))
			seenURLs[result.URL] = true
		}
	}

	state.RetrievedDocs = docs
	state.Context = strings.Join(contextParts, "\n\n")
	state.Sources = sources

	s.logger.Info("web search done", zap.Int("results", len(results)))

	return state, nil
}
