// Package agg owns the aggregation engine: the reduction of many noisy
// per-rater classifications into consensus annotation tables.
//
// Responsibilities: payload flattening (frame boxes and per-project clip
// events), participation and agreement filtering, IoU-based box-consensus
// resolution, and median clip reduction.
// Key types: Classification, FrameAnnotation, ClipAnnotation, BoxCluster,
// FrameAggregate, ClipAggregate.
//
// Dependency rule: agg is pure computation over in-memory tables. It reads
// subject metadata through the SubjectCatalog interface and never touches
// SQL, files, or the network.
package agg
