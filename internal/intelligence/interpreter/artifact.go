package interpreter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// ArtifactExt is the suffix of a packaged model.
const ArtifactExt = ".tar.gz"

// ArtifactFetcher copies the newest remote artifact for lang into destDir and
// returns its local path.
type ArtifactFetcher interface {
	FetchLatest(ctx context.Context, lang, destDir string) (string, error)
}

// Resolver locates the model artifact of a language under
// <root>/<prefix><lang>, optionally downloading it first.
type Resolver struct {
	root    string
	prefix  string
	fetcher ArtifactFetcher
	logger  logging.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFetcher downloads artifacts before resolving.
func WithFetcher(f ArtifactFetcher) ResolverOption {
	return func(r *Resolver) { r.fetcher = f }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l logging.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a resolver over root with directory prefix (e.g. "models_").
func NewResolver(root, prefix string, opts ...ResolverOption) *Resolver {
	r := &Resolver{root: root, prefix: prefix, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ModelDir returns the artifact directory of lang.
func (r *Resolver) ModelDir(lang string) string {
	return filepath.Join(r.root, r.prefix+lang)
}

// Latest returns the newest artifact of lang. When a fetcher is configured
// the remote copy is downloaded first; a failed download falls back to
// whatever is already on disk.
func (r *Resolver) Latest(ctx context.Context, lang string) (string, error) {
	dir := r.ModelDir(lang)

	if r.fetcher != nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageError, "cannot create model directory").WithDetail(dir)
		}
		path, err := r.fetcher.FetchLatest(ctx, lang, dir)
		if err == nil {
			r.logger.Info("model artifact downloaded", logging.String("locale", lang), logging.String("path", path))
			return path, nil
		}
		r.logger.Warn("model artifact download failed, using local copy",
			logging.String("locale", lang), logging.Err(err))
	}

	return newestArtifact(dir)
}

// newestArtifact picks the most recently modified *.tar.gz in dir; ties go
// to the lexically greatest name, which for timestamped names is the newest.
func newestArtifact(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeModelNotFound, "model directory unreadable").WithDetail(dir)
	}

	type candidate struct {
		name string
		mod  int64
	}
	var found []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(found) == 0 {
		return "", errors.New(errors.ErrCodeModelNotFound, "no model artifact found").WithDetail(dir)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].mod != found[j].mod {
			return found[i].mod > found[j].mod
		}
		return found[i].name > found[j].name
	})
	return filepath.Join(dir, found[0].name), nil
}

//Personal.AI order the ending
