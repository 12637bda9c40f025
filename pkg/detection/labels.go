package detection

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadLabels reads a class list with one label per line; the line number
// (from 0) is the class id. Blank lines keep their slot.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open labels")
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read labels from %s", path)
	}
	return labels, nil
}
