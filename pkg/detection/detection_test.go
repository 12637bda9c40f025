package detection

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func det(label string, score float64) Detection {
	return Detection{
		Box:        image.Rect(10, 20, 110, 220),
		Categories: []Category{{Label: label, Score: score}, {Label: "cup", Score: 0.1}},
	}
}

func TestFilter(t *testing.T) {
	f := Filter{Label: "bottle", MinScore: DefaultMinScore}

	require.True(t, f.Matches(det("bottle", 0.9)))
	require.True(t, f.Matches(det("bottle", 0.51)))
	require.False(t, f.Matches(det("bottle", 0.5)))
	// Rounds to 0.50, which isn't above the threshold.
	require.False(t, f.Matches(det("bottle", 0.504)))
	require.False(t, f.Matches(det("bottle", 0.4)))
	require.False(t, f.Matches(det("person", 0.99)))
	// Only the top category counts.
	require.False(t, f.Matches(det("cup", 0.9)))
	require.False(t, f.Matches(Detection{Box: image.Rect(0, 0, 1, 1)}))
}

func TestText(t *testing.T) {
	require.Equal(t, "bottle (0.87)", Text(det("bottle", 0.8712)))
	require.Equal(t, "bottle (0.5)", Text(det("bottle", 0.5)))
	require.Equal(t, "", Text(Detection{}))
}

func TestDecodeSSD(t *testing.T) {
	labels := []string{"background", "person", "bottle"}
	out := []float32{
		0, 2, 0.6, 0.1, 0.1, 0.3, 0.5,
		0, 1, 0.2, 0.0, 0.0, 1.0, 1.0, // below min score
		0, 1, 0.9, 0.5, 0.5, 1.2, 1.1, // clipped to the frame
		0, 7, 0.4, 0.0, 0.0, 0.5, 0.5, // unknown class
		0, 2, 0.8, 0.2, 0.2, 0.2, 0.4, // zero width
		0, 2, // truncated row
	}
	dets := DecodeSSD(out, image.Pt(640, 480), labels, 0.3, 0)
	require.Equal(t, []Detection{
		{Box: image.Rect(320, 240, 640, 480), Categories: []Category{{"person", float64(float32(0.9))}}},
		{Box: image.Rect(64, 48, 192, 240), Categories: []Category{{"bottle", float64(float32(0.6))}}},
		{Box: image.Rect(0, 0, 320, 240), Categories: []Category{{"class-7", float64(float32(0.4))}}},
	}, dets)

	require.Len(t, DecodeSSD(out, image.Pt(640, 480), labels, 0.3, 2), 2)
	require.Empty(t, DecodeSSD(nil, image.Pt(640, 480), labels, 0.3, 2))
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("background\nperson\n\nbottle \n"), 0644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	require.Equal(t, []string{"background", "person", "", "bottle"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestTextOrigin(t *testing.T) {
	require.Equal(t, image.Pt(110, 70), TextOrigin(image.Rect(100, 50, 300, 400)))
}

func TestFilterAny(t *testing.T) {
	f := Filter{Label: "bottle", MinScore: DefaultMinScore}
	require.False(t, f.Any(nil))
	require.False(t, f.Any([]Detection{det("person", 0.9), det("bottle", 0.3)}))
	require.True(t, f.Any([]Detection{det("person", 0.9), det("bottle", 0.8)}))
}
