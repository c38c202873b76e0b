package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// Proxy streams stored images from whichever backend a reference points at.
type Proxy struct {
	local     *LocalStore
	primary   *PrimaryStore
	secondary *SecondaryStore
	client    *http.Client
}

// NewProxy creates a streaming proxy. Primary and secondary may be nil when
// the deployment only uses local storage.
func NewProxy(local *LocalStore, primary *PrimaryStore, secondary *SecondaryStore) *Proxy {
	return &Proxy{
		local:     local,
		primary:   primary,
		secondary: secondary,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify determines which backend a stored reference lives in.
func Classify(ref string) Backend {
	switch {
	case strings.HasPrefix(ref, PrefixPrimary):
		return BackendPrimary
	case strings.HasPrefix(ref, PrefixSecondary):
		return BackendSecondary
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return BackendExternal
	default:
		return BackendLocal
	}
}

// Open resolves a reference and opens the underlying object for streaming.
func (p *Proxy) Open(ctx context.Context, ref string) (*Object, error) {
	switch Classify(ref) {
	case BackendPrimary:
		if p.primary == nil {
			return nil, fmt.Errorf("primary object store not configured for ref %s", ref)
		}
		return p.primary.Get(ctx, ref)
	case BackendSecondary:
		if p.secondary == nil {
			return nil, fmt.Errorf("secondary object store not configured for ref %s", ref)
		}
		return p.secondary.Get(ctx, ref)
	case BackendExternal:
		return p.openExternal(ctx, ref)
	default:
		return p.local.Get(ctx, ref)
	}
}

// Stream writes the referenced image to the response with the origin's
// content type and an inline disposition carrying the key's basename.
func (p *Proxy) Stream(w http.ResponseWriter, r *http.Request, ref string) error {
	obj, err := p.Open(r.Context(), ref)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", Basename(ref)))

	if _, err := io.Copy(w, obj.Body); err != nil {
		// Headers are already gone; nothing to send the client.
		return fmt.Errorf("stream image %s: %w", ref, err)
	}
	return nil
}

// Basename extracts the filename component of a reference for the
// Content-Disposition header.
func Basename(ref string) string {
	trimmed := ref
	for _, prefix := range []string{PrefixPrimary, PrefixSecondary, "http://", "https://"} {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return path.Base(trimmed)
}

func (p *Proxy) openExternal(ctx context.Context, ref string) (*Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build external image request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch external image: %w", err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("external image host returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Object{Body: resp.Body, ContentType: contentType}, nil
}
