// Package detection holds the object detector's results and the rules for
// deciding which of them the pan tracker follows.
package detection

import (
	"fmt"
	"image"
	"math"
)

const DefaultMinScore = 0.5

type Category struct {
	Label string
	Score float64
}

// Detection is one object found in a frame. Box is in pixel coordinates
// (Min = left, top; Max = right, bottom). Categories are ranked best first.
type Detection struct {
	Box        image.Rectangle
	Categories []Category
}

// Top returns the best ranked category.
func (d Detection) Top() (Category, bool) {
	if len(d.Categories) == 0 {
		return Category{}, false
	}
	return d.Categories[0], true
}

// RoundScore rounds a score to two decimal places, the precision scores are
// displayed and compared at.
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}

// Text is the caption drawn next to a detection, e.g. "bottle (0.87)".
func Text(d Detection) string {
	c, ok := d.Top()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s (%v)", c.Label, RoundScore(c.Score))
}

// Filter selects the detections the tracker should follow.
type Filter struct {
	Label string
	// MinScore is exclusive: a detection must score strictly more.
	MinScore float64
}

func (f Filter) Matches(d Detection) bool {
	c, ok := d.Top()
	if !ok {
		return false
	}
	return c.Label == f.Label && RoundScore(c.Score) > f.MinScore
}

const (
	textMargin  = 10
	textRowSize = 10
)

// TextOrigin is where a detection's caption is drawn: just inside the top
// left corner of its box.
func TextOrigin(box image.Rectangle) image.Point {
	return image.Pt(textMargin+box.Min.X, textMargin+textRowSize+box.Min.Y)
}

// Any reports whether any of dets matches.
func (f Filter) Any(dets []Detection) bool {
	for _, d := range dets {
		if f.Matches(d) {
			return true
		}
	}
	return false
}
