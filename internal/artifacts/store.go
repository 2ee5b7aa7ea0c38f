package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelforge/reelforge-backend/pkg/config"
	pkgerrors "github.com/reelforge/reelforge-backend/pkg/errors"
)

const downloadSizeLimit int64 = 32 << 20 // 32 MiB per image

// Store persists generated images on local disk and hands out the public
// references the API serves them under.
type Store struct {
	httpClient *http.Client
	dir        string
	publicPath string
}

// Option configures optional store behavior.
type Option func(*Store)

// WithHTTPClient overrides the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewStore creates the image directory if needed and returns a store.
func NewStore(cfg config.StorageConfig, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.ImagesDir) == "" {
		return nil, fmt.Errorf("images directory is required")
	}
	if strings.TrimSpace(cfg.PublicPath) == "" {
		return nil, fmt.Errorf("images public path is required")
	}

	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images dir %q: %w", cfg.ImagesDir, err)
	}

	store := &Store{
		dir:        cfg.ImagesDir,
		publicPath: strings.TrimRight(cfg.PublicPath, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Dir returns the on-disk directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// SaveFromURL downloads the image at srcURL into the project's namespace and
// returns the public reference to serve it under.
func (s *Store) SaveFromURL(ctx context.Context, projectID uuid.UUID, srcURL string) (string, error) {
	if strings.TrimSpace(srcURL) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "source image URL is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build image download request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "download generated image")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("image download returned status %d", resp.StatusCode))
	}

	filename := fmt.Sprintf("%s_%s.png", projectID, uuid.New())
	fullpath := filepath.Join(s.dir, filename)

	f, err := os.Create(fullpath)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create image file")
	}

	_, copyErr := io.Copy(f, io.LimitReader(resp.Body, downloadSizeLimit))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(fullpath)
		if copyErr != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, copyErr, "write image file")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, closeErr, "close image file")
	}

	return path.Join(s.publicPath, filename), nil
}

// DeleteProject removes every stored image belonging to the project.
func (s *Store) DeleteProject(projectID uuid.UUID) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading images dir: %w", err)
	}

	prefix := projectID.String() + "_"
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing image %q: %w", e.Name(), err)
		}
	}
	return nil
}
