// Package searchkit is a Go client for multi-stage retrievers. It streams
// pipeline stage progress, folds it into a coherent view, caches finalized
// outcomes, and falls back to a buffered call when streaming fails.
//
// # Interactive search (debounced, cached, streaming)
//
//	client, _ := searchkit.New(ctx, "my-retriever-slug")
//	defer client.Close()
//
//	s := client.NewSearcher(
//	    searchkit.WithOnChange(func(st searchkit.State) { render(st) }),
//	    searchkit.WithOnZeroResults(func(q string) { log.Println("nothing for", q) }),
//	)
//	defer s.Close()
//	<-s.Search("wireless headphones")
//
// # Direct calls
//
//	out, err := client.Execute(ctx, searchkit.SearchRequest{Query: "headphones", Limit: 5})
//
//	stream, err := client.Stream(ctx, searchkit.SearchRequest{Query: "headphones"})
//	defer stream.Close()
//	for stream.Next() {
//	    sig := stream.Signal()
//	    ...
//	}
//
// A secret key (prefix "ret_sk_") is sent in the X-Public-API-Key header;
// any other project key is treated as a public retriever slug.
package searchkit
