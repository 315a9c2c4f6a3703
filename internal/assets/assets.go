package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store resolves an asset reference (certificate template, signature)
// to raw image bytes. Whether an event has an asset at all is the
// caller's question; Fetch is only called for a declared reference.
type Store interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

var ErrUnreadable = errors.New("asset unreadable")

// uploaded images are small; anything past this is suspect
const maxAssetBytes = 20 << 20

// Resolver reads assets from the local upload root, or over HTTP when
// the event stores a full URL (the hosted setup keeps uploads in a CDN).
type Resolver struct {
	root   string
	client *http.Client
}

func NewResolver(root string) *Resolver {
	return &Resolver{
		root: root,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (r *Resolver) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrUnreadable)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return r.fetchURL(ctx, ref)
	}

	return r.fetchFile(ref)
}

func (r *Resolver) fetchFile(ref string) ([]byte, error) {
	// keep references inside the upload root
	clean := filepath.Clean("/" + ref)
	path := filepath.Join(r.root, clean)

	info, err := os.Stat(path)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, ref, err)
	}

	if info.Size() > maxAssetBytes {
		return nil, fmt.Errorf("%w: %s: too large", ErrUnreadable, ref)
	}

	b, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, ref, err)
	}

	return b, nil
}

func (r *Resolver) fetchURL(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, ref, err)
	}

	resp, err := r.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, ref, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrUnreadable, ref, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, ref, err)
	}

	if len(b) > maxAssetBytes {
		return nil, fmt.Errorf("%w: %s: too large", ErrUnreadable, ref)
	}

	return b, nil
}
