package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// tokenTTL is how long an acquired secondary-store token is trusted before
// a proactive refresh. The store side advertises ~30 minutes.
const tokenTTL = 25 * time.Minute

// PrimaryStore talks to the primary object store with a static API key.
type PrimaryStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPrimaryStore creates the primary store client.
func NewPrimaryStore(baseURL, apiKey string) *PrimaryStore {
	return &PrimaryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Put uploads the bytes and returns a primary:// reference.
func (s *PrimaryStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/"+key, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("object store returned %d for %s", resp.StatusCode, key)
	}
	return PrefixPrimary + key, nil
}

// Get streams a stored object by primary:// reference.
func (s *PrimaryStore) Get(ctx context.Context, ref string) (*Object, error) {
	key := strings.TrimPrefix(ref, PrefixPrimary)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("object store returned %d for %s", resp.StatusCode, key)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	return &Object{Body: resp.Body, ContentType: contentType}, nil
}

// SecondaryStore talks to the secondary object store, which requires a
// short-lived auth token. The token is cached in-process and refreshed
// when it ages out or the store answers 401/403.
type SecondaryStore struct {
	baseURL   string
	accessKey string
	secretKey string
	client    *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewSecondaryStore creates the secondary store client.
func NewSecondaryStore(baseURL, accessKey, secretKey string) *SecondaryStore {
	return &SecondaryStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Put uploads the bytes and returns a secondary:// reference.
func (s *SecondaryStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	resp, err := s.do(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/objects/"+key, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("secondary store returned %d for %s", resp.StatusCode, key)
	}
	return PrefixSecondary + key, nil
}

// Get streams a stored object by secondary:// reference.
func (s *SecondaryStore) Get(ctx context.Context, ref string) (*Object, error) {
	key := strings.TrimPrefix(ref, PrefixSecondary)
	resp, err := s.do(ctx, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/objects/"+key, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("secondary store returned %d for %s", resp.StatusCode, key)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}
	return &Object{Body: resp.Body, ContentType: contentType}, nil
}

// do executes a request with the cached token, re-authenticating once on
// 401/403.
func (s *SecondaryStore) do(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, error) {
	token, err := s.authToken(ctx, false)
	if err != nil {
		return nil, err
	}

	req, err := build(token)
	if err != nil {
		return nil, fmt.Errorf("build secondary store request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secondary store request: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		token, err = s.authToken(ctx, true)
		if err != nil {
			return nil, err
		}
		req, err = build(token)
		if err != nil {
			return nil, fmt.Errorf("build secondary store request: %w", err)
		}
		resp, err = s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("secondary store request: %w", err)
		}
	}

	return resp, nil
}

// authToken returns the cached token, acquiring a fresh one when absent,
// aged out, or force is set.
func (s *SecondaryStore) authToken(ctx context.Context, force bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"access_key": s.accessKey,
		"secret_key": s.secretKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("secondary store auth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("secondary store auth returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}

	s.token = out.Token
	s.tokenExpiry = time.Now().Add(tokenTTL)
	return s.token, nil
}
