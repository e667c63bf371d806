package vibelist

import (
	"context"
	"iter"
)

// DefaultCount is the number of tracks a QueryBuilder asks for unless Count is set.
const DefaultCount = 10

// Vibe creates a new fluent query builder for the given vibe.
//
// Example:
//
//	recs, err := vl.Vibe("late night drive").
//	    Exclude("t1", "t2").
//	    Count(25).
//	    Execute(ctx)
//
//	// Or with streaming:
//	for rec, err := range vl.Vibe("late night drive").Count(100).Stream(ctx) {
//	    if err != nil { break }
//	    if rec.Distance > threshold { break }
//	    process(rec)
//	}
func (vl *Vibelist) Vibe(vibe string) *QueryBuilder {
	return &QueryBuilder{
		vl: vl,
		q:  Query{Vibe: vibe, Count: DefaultCount},
	}
}

// QueryBuilder is a fluent builder for recommendation queries.
type QueryBuilder struct {
	vl *Vibelist
	q  Query
}

// Count sets the number of tracks to return.
func (qb *QueryBuilder) Count(n int) *QueryBuilder {
	qb.q.Count = n
	return qb
}

// Exclude adds track IDs that must not be returned.
func (qb *QueryBuilder) Exclude(ids ...string) *QueryBuilder {
	qb.q.Exclude = append(qb.q.Exclude, ids...)
	return qb
}

// Query returns the query built so far.
func (qb *QueryBuilder) Query() Query {
	return qb.q
}

// Execute runs the query and returns the recommendations.
func (qb *QueryBuilder) Execute(ctx context.Context) ([]Recommendation, error) {
	res, err := qb.vl.Recommend(ctx, qb.q)
	if err != nil {
		return nil, err
	}
	return res.Recommendations, nil
}

// MustExecute runs the query, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (qb *QueryBuilder) MustExecute(ctx context.Context) []Recommendation {
	recs, err := qb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return recs
}

// Stream returns an iterator over recommendations, nearest first.
// The iterator supports early termination by breaking from the loop.
func (qb *QueryBuilder) Stream(ctx context.Context) iter.Seq2[Recommendation, error] {
	return func(yield func(Recommendation, error) bool) {
		recs, err := qb.Execute(ctx)
		if err != nil {
			yield(Recommendation{}, err)
			return
		}
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// First returns only the best match, or ErrNotFound when every track is excluded.
func (qb *QueryBuilder) First(ctx context.Context) (Recommendation, error) {
	qb.q.Count = 1
	recs, err := qb.Execute(ctx)
	if err != nil {
		return Recommendation{}, err
	}
	if len(recs) == 0 {
		return Recommendation{}, ErrNotFound
	}
	return recs[0], nil
}
