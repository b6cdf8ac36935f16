// Package annodoc embeds the annotated document store in a Go program
// without running the HTTP server.
//
// Documents live on the local filesystem or in Redis:
//
//	client, _ := annodoc.New(ctx, annodoc.WithDir("data/documents"))
//	defer client.Close()
//
//	docs := client.Documents()
//	doc, _ := docs.Create(ctx, []string{"Hello world", "Second page"}, nil)
//	_, _ = docs.Annotate(ctx, doc.ID(), annodoc.Set("tokens",
//	    annodoc.NewSpanGroup(annodoc.NewSpan(0, 5, 0)),
//	    annodoc.NewSpanGroup(annodoc.NewSpan(6, 11, 0)),
//	))
//	hits, _ := docs.Find(ctx, doc.ID(), "tokens", annodoc.NewSpan(3, 8, 0))
//
// Fields whose annotations are not span groups need a decoder registered
// with WithDecoder so they survive a round trip through storage.
package annodoc
