package pipeline

import (
	"io"
	"os"

	"github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
)

// Parse reads a graph from r. In strict mode duplicate node IDs and dangling
// links are rejected; otherwise they are left for the simulation, which
// skips dangling links and reports them in the layout.
func Parse(r io.Reader, strict bool) (*graph.Graph, error) {
	g, err := graph.ReadGraph(r)
	if err != nil {
		return nil, err
	}
	if strict {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ParseFile reads a graph from path, or from stdin when path is "-".
func ParseFile(path string, strict bool) (*graph.Graph, error) {
	if path == "-" {
		return Parse(os.Stdin, strict)
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, strict)
}
