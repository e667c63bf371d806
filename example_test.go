package vibelist_test

import (
	"context"
	"fmt"
	"log"

	"github.com/heavenlydemon269/vibelist"
	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/distance"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/testutil"
)

func exampleVibelist() *vibelist.Vibelist {
	tracks := []catalog.Track{
		{ID: "sun", Name: "Walking on Sunshine", Artist: "Katrina and the Waves"},
		{ID: "rain", Name: "Riders on the Storm", Artist: "The Doors"},
		{ID: "dance", Name: "Dancing Queen", Artist: "ABBA"},
	}
	cat, err := catalog.New(tracks)
	if err != nil {
		log.Fatal(err)
	}

	idx, err := index.NewFlat(2, distance.MetricCosine)
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range [][]float32{{1, 0.1}, {0, 1}, {0.9, 0.3}} {
		if _, err := idx.Add(v); err != nil {
			log.Fatal(err)
		}
	}

	enc := &testutil.FixedEncoder{
		Dim: 2,
		Vectors: map[string][]float32{
			"happy":  {1, 0},
			"gloomy": {0, 1},
		},
	}

	vl, err := vibelist.New(cat, idx, enc)
	if err != nil {
		log.Fatal(err)
	}
	return vl
}

// Example_recommend demonstrates a single recommendation round.
func Example_recommend() {
	vl := exampleVibelist()
	defer vl.Close()

	res, err := vl.Recommend(context.Background(), vibelist.Query{Vibe: "happy", Count: 2})
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range res.Recommendations {
		fmt.Println(r.Track.Name)
	}
	// Output:
	// Walking on Sunshine
	// Dancing Queen
}

// Example_exclude demonstrates a refinement round that skips tracks already
// in the playlist.
func Example_exclude() {
	vl := exampleVibelist()
	defer vl.Close()

	recs, err := vl.Vibe("happy").Exclude("sun").Count(5).Execute(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range recs {
		fmt.Println(r.Track.ID)
	}
	// Output:
	// dance
	// rain
}
