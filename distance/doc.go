// Package distance provides the vector distance kernels used by the index.
//
// Every metric is expressed as a distance: lower means more similar.
//
// # Supported Metrics
//
//   - MetricCosine: 1 - dot(a, b) over L2-normalized vectors (default)
//   - MetricL2: Squared Euclidean distance
//   - MetricDot: Negated dot product (inner product)
//
// # Usage
//
//	fn, err := distance.Provider(distance.MetricCosine)
//	d := fn(a, b)
package distance
