// Package permitsearch provides a Go client for the permitsearch
// semantic building-permit search API.
//
//	client, _ := permitsearch.New("http://localhost:8080",
//	    permitsearch.WithAPIKey(os.Getenv("PERMITSEARCH_API_KEY")),
//	)
//
//	results, _ := client.Search(ctx, permitsearch.SearchRequest{
//	    Query:   "kitchen remodel with structural changes",
//	    Filters: map[string]any{"jurisdiction": "portland"},
//	})
//
// Non-2xx replies are returned as *APIError. The wire code is also
// mapped onto package sentinels, so callers can branch with errors.Is:
//
//	_, err := client.GetDocument(ctx, "p-2024-0117")
//	if errors.Is(err, permitsearch.ErrNotFound) { ... }
package permitsearch
