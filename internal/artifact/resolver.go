// Package artifact maps stored image references to files under the images
// directory and builds the public URL they are served from.
package artifact

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/0x5457/product-concierge/internal/metrics"
	"go.uber.org/zap"
)

// FallbackExtensions are tried, in order, for <product_id><ext> when the
// reference carries no extension.
var FallbackExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

type Resolver struct {
	imagesDir string
	baseURL   string
	logger    *zap.Logger
}

func New(imagesDir, baseURL string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{imagesDir: filepath.Clean(imagesDir), baseURL: baseURL, logger: logger}
}

type candidate struct {
	path string
	rule string
}

// Resolve returns the first existing file among, in order:
// the normalized reference, its basename, and <productID><ext>. The second
// return value is false when nothing matched, which is not an error.
func (r *Resolver) Resolve(artifactURI *string, productID string) (string, bool) {
	for _, c := range r.candidates(artifactURI, productID) {
		if isRegularFile(c.path) {
			metrics.ArtifactResolutionsTotal.WithLabelValues(c.rule).Inc()
			return c.path, true
		}
	}
	metrics.ArtifactResolutionsTotal.WithLabelValues("missing").Inc()
	uri := ""
	if artifactURI != nil {
		uri = *artifactURI
	}
	r.logger.Warn("no local image found",
		zap.String("product_id", productID),
		zap.String("artifact_uri", uri),
	)
	return "", false
}

func (r *Resolver) candidates(artifactURI *string, productID string) []candidate {
	var out []candidate
	seen := map[string]bool{}
	add := func(rel, rule string) {
		if rel == "" {
			return
		}
		p := filepath.Join(r.imagesDir, filepath.FromSlash(rel))
		if seen[p] || !r.within(p) {
			return
		}
		seen[p] = true
		out = append(out, candidate{path: p, rule: rule})
	}

	var ext string
	if artifactURI != nil {
		// references may use either separator
		ref := strings.TrimLeft(strings.ReplaceAll(*artifactURI, `\`, "/"), "/")
		if ref != "" {
			base := path.Base(ref)
			add(ref, "path")
			add(base, "basename")
			ext = path.Ext(base)
		}
	}

	exts := FallbackExtensions
	if ext != "" {
		exts = []string{ext}
	}
	if productID != "" {
		for _, e := range exts {
			add(productID+e, "id")
		}
	}
	return out
}

func (r *Resolver) within(p string) bool {
	rel, err := filepath.Rel(r.imagesDir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// BuildURL joins the base URL and the file name of p with exactly one slash.
func (r *Resolver) BuildURL(p string) string {
	return JoinURL(r.baseURL, filepath.Base(p))
}

// JoinURL joins base and name with exactly one slash between them.
func JoinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}

// Markdown formats an inline image preceded by its label.
func Markdown(label, url string) string {
	return label + " ![" + label + "](" + url + ")"
}
