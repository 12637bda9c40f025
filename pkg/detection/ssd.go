package detection

import (
	"fmt"
	"image"
	"sort"
)

// SSDRowSize is the number of values per detection in an SSD network's
// output blob: image id, class id, confidence, then left, top, right, bottom
// as fractions of the frame size.
const SSDRowSize = 7

// DecodeSSD turns the flattened [1, 1, N, 7] output of an SSD style network
// into detections, best first. Results scoring below minScore are dropped
// and at most maxResults are returned (no limit if maxResults <= 0).
func DecodeSSD(out []float32, frame image.Point, labels []string, minScore float64, maxResults int) []Detection {
	var dets []Detection
	bounds := image.Rectangle{Max: frame}
	for i := 0; i+SSDRowSize <= len(out); i += SSDRowSize {
		row := out[i : i+SSDRowSize]
		score := float64(row[2])
		if score < minScore {
			continue
		}
		box := image.Rect(
			int(row[3]*float32(frame.X)),
			int(row[4]*float32(frame.Y)),
			int(row[5]*float32(frame.X)),
			int(row[6]*float32(frame.Y)),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{
			Box:        box,
			Categories: []Category{{Label: label(labels, int(row[1])), Score: score}},
		})
	}

	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Categories[0].Score > dets[j].Categories[0].Score
	})
	if maxResults > 0 && len(dets) > maxResults {
		dets = dets[:maxResults]
	}
	return dets
}

func label(labels []string, id int) string {
	if id >= 0 && id < len(labels) && labels[id] != "" {
		return labels[id]
	}
	return fmt.Sprintf("class-%d", id)
}
