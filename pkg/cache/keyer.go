package cache

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// LayoutKey identifies a finished layout of the graph with hash graphHash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of the layout with hash
	// layoutHash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the inputs besides the graph that determine a layout.
type LayoutKeyOpts struct {
	Variant string `json:"variant,omitempty"` // "", "tree"
	Params  any    `json:"params,omitempty"`  // simulation parameters
}

// ArtifactKeyOpts holds the inputs besides the layout that determine an
// artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Labels bool   `json:"labels,omitempty"`
}

// DefaultKeyer produces "layout:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the graph hash together with the layout options.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey hashes the layout hash together with the artifact options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
