package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PrincipalResolver resolves the identity behind an incoming request by
// consulting the external session auth service. A request without
// credentials resolves to (nil, nil); only transport or decoding problems
// produce an error.
type PrincipalResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*AuthContext, error)
}

// ServiceResolver resolves sessions against the auth service's session
// endpoint, forwarding the caller's cookies and Authorization header.
type ServiceResolver struct {
	baseURL string
	client  *http.Client
}

// NewServiceResolver creates a resolver for the auth service at baseURL
func NewServiceResolver(baseURL string, client *http.Client) *ServiceResolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &ServiceResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// sessionEnvelope is the auth service's session response shape
type sessionEnvelope struct {
	User    *Principal `json:"user"`
	Session *Session   `json:"session"`
}

// Resolve calls GET {base}/session with the request's credentials. A 401
// or 404 means no live session and resolves to (nil, nil).
func (sr *ServiceResolver) Resolve(ctx context.Context, r *http.Request) (*AuthContext, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sr.baseURL+"/session", nil)
	if err != nil {
		return nil, fmt.Errorf("building session request: %w", err)
	}
	if cookie := r.Header.Get("Cookie"); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := sr.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling auth service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}

	var envelope sessionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	if envelope.User == nil || envelope.Session == nil {
		return nil, nil
	}

	return &AuthContext{Principal: envelope.User, Session: envelope.Session}, nil
}
