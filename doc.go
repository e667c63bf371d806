// Package vibelist recommends catalog tracks for a free-text vibe.
//
// A snapshot pairs a track catalog with a vector index whose row i holds the
// embedding of catalog row i. Open loads a snapshot through a blobstore and
// serves queries against it:
//
//	ctx := context.Background()
//	enc, _ := openai.New(openai.DefaultConfig(apiKey))
//	vl, err := vibelist.Open(ctx, blobstore.NewLocalStore("./snapshot"), enc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vl.Close()
//
//	res, err := vl.Recommend(ctx, vibelist.Query{Vibe: "rainy sunday", Count: 20})
//
// Or with the fluent API:
//
//	recs, err := vl.Vibe("rainy sunday").
//	    Exclude(alreadyPlayed...).
//	    Count(20).
//	    Execute(ctx)
//
// # Oversampling
//
// The index is searched for Count + |Exclude| + margin candidates, and
// excluded tracks are dropped afterwards. With the default single-shot policy
// a result may come back short when many excluded tracks crowd the top of the
// ranking; PolicyAdaptive doubles the search width until Count tracks are
// found or the catalog is exhausted.
//
// # Snapshots
//
// Snapshots are produced offline with snapshot.Build and snapshot.Write, or
// with the vibelist CLI:
//
//	vibelist build --catalog tracks.csv --out ./snapshot --compression zstd
//
// Playlist editing on top of recommendations lives in the playlist and
// session packages.
package vibelist
