package agg

import (
	"fmt"

	flatbush "github.com/bmharper/flatbush-go"
)

// BoxCluster is one accepted consensus cluster: the representative box, the
// number of distinct contributing users, and the contributing input indices.
type BoxCluster struct {
	Box   Box
	Users int
	Rows  []int // indices into the input boxes, ascending
}

// ResolveBoxes reduces a group of user-drawn boxes sharing one (filename,
// label, frame) to consensus clusters. users[i] drew boxes[i]; totalUsers is
// the group's distinct rater count.
//
// Boxes whose pairwise IoU reaches eps are clustered transitively
// (connected components, not a strict pairwise requirement). A cluster is
// accepted when its distinct-user fraction of totalUsers reaches both iua
// (inter-user agreement) and obj (object presence). Each accepted cluster
// yields one representative box: the per-coordinate median of its members.
//
// A lone box forms a cluster of size one and survives only when
// 1/totalUsers clears both thresholds; with more than a handful of raters a
// singleton is dropped as unconfirmed. Whether single-rater annotations ever
// surface is decided entirely by that interaction, so treat the obj and iua
// floor as policy, not tuning.
//
// Clusters come back ordered by their smallest contributing index, so
// identical input yields identical output.
func ResolveBoxes(totalUsers int, users []string, boxes []Box, obj, eps, iua float64) ([]BoxCluster, error) {
	if len(users) != len(boxes) {
		return nil, fmt.Errorf("users and boxes length mismatch: %d vs %d", len(users), len(boxes))
	}
	if totalUsers < 1 {
		return nil, fmt.Errorf("total users must be at least 1, got %d", totalUsers)
	}
	if obj < 0 || obj > 1 {
		return nil, fmt.Errorf("agg_obj must be between 0 and 1, got %v", obj)
	}
	if eps < 0 || eps > 1 {
		return nil, fmt.Errorf("agg_iou must be between 0 and 1, got %v", eps)
	}
	if iua < 0 || iua > 1 {
		return nil, fmt.Errorf("agg_iua must be between 0 and 1, got %v", iua)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	labels := clusterBoxes(boxes, eps)

	maxCluster := 0
	for _, l := range labels {
		if l > maxCluster {
			maxCluster = l
		}
	}

	clusters := make([]BoxCluster, 0, maxCluster)
	for cid := 1; cid <= maxCluster; cid++ {
		var rows []int
		clusterUsers := map[string]struct{}{}
		for i, l := range labels {
			if l != cid {
				continue
			}
			rows = append(rows, i)
			clusterUsers[users[i]] = struct{}{}
		}
		if len(rows) == 0 {
			continue
		}

		userFrac := float64(len(clusterUsers)) / float64(totalUsers)
		if userFrac < iua || userFrac < obj {
			continue
		}

		xs := make([]float64, len(rows))
		ys := make([]float64, len(rows))
		ws := make([]float64, len(rows))
		hs := make([]float64, len(rows))
		for k, i := range rows {
			xs[k] = boxes[i].X
			ys[k] = boxes[i].Y
			ws[k] = boxes[i].W
			hs[k] = boxes[i].H
		}

		clusters = append(clusters, BoxCluster{
			Box:   Box{X: median(xs), Y: median(ys), W: median(ws), H: median(hs)},
			Users: len(clusterUsers),
			Rows:  rows,
		})
	}

	return clusters, nil
}

// clusterBoxes assigns each box a 1-based cluster id by transitive IoU
// overlap: boxes with IoU >= eps share a cluster. Groups are small (tens of
// raters), but a spatial index keeps the candidate search away from the full
// pairwise scan. Cluster ids follow scan order, so the labelling is
// deterministic for a given input order.
func clusterBoxes(boxes []Box, eps float64) []int {
	n := len(boxes)
	labels := make([]int, n) // 0=unvisited, >0=clusterID

	fb := flatbush.NewFlatbush[float64]()
	fb.Reserve(n)
	for _, b := range boxes {
		fb.Add(b.X, b.Y, b.X+b.W, b.Y+b.H)
	}
	fb.Finish()

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue // Already assigned
		}

		clusterID++
		labels[i] = clusterID

		// Queue-based expansion across the overlap graph
		queue := []int{i}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			b := boxes[cur]
			for _, j := range fb.Search(b.X, b.Y, b.X+b.W, b.Y+b.H) {
				if labels[j] != 0 {
					continue
				}
				if b.IoU(boxes[j]) < eps {
					continue
				}
				labels[j] = clusterID
				queue = append(queue, j)
			}
		}
	}

	return labels
}
