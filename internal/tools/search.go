package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultSearchResults = 5

type searchResult struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Content string   `json:"content"`
	Score   *float64 `json:"score,omitempty"`
}

type searchResponse struct {
	Query        string         `json:"query"`
	Results      []searchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// webSearch queries the Tavily search API. The API key travels in the
// request body per the Tavily contract and never appears in errors or logs.
func (r *Runner) webSearch(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req struct {
		Query       string `json:"query"`
		MaxResults  int    `json:"max_results"`
		SearchDepth string `json:"search_depth"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.MaxResults == 0 {
		req.MaxResults = defaultSearchResults
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}

	if r.tavilyAPIKey == "" {
		return nil, fmt.Errorf("search API not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"api_key":             r.tavilyAPIKey,
		"query":               req.Query,
		"max_results":         req.MaxResults,
		"search_depth":        req.SearchDepth,
		"include_answer":      false,
		"include_raw_content": false,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.searchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error: %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			Title   string   `json:"title"`
			URL     string   `json:"url"`
			Content string   `json:"content"`
			Score   *float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]searchResult, 0, len(body.Results))
	for _, item := range body.Results {
		results = append(results, searchResult{
			Title:   item.Title,
			URL:     item.URL,
			Content: item.Content,
			Score:   item.Score,
		})
	}

	r.logger.Info().Int("results", len(results)).Msg("search executed")

	return toMap(searchResponse{
		Query:        req.Query,
		Results:      results,
		TotalResults: len(results),
	})
}
