package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Directory is the admin-side surface of the auth service: the user
// records it owns. Mutations here are gated by the user-resource policy
// in pkg/authz before they are ever invoked.
type Directory interface {
	ListUsers(ctx context.Context) ([]Principal, error)
	GetUser(ctx context.Context, userID string) (*Principal, error)
	BanUser(ctx context.Context, userID, reason string, expiresAt *time.Time) error
	UnbanUser(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}

// ServiceDirectory talks to the auth service's admin API using a
// service-to-service token.
type ServiceDirectory struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

// NewServiceDirectory creates a Directory client for the auth service
func NewServiceDirectory(baseURL, serviceToken string, client *http.Client) *ServiceDirectory {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ServiceDirectory{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		client:       client,
	}
}

func (d *ServiceDirectory) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.serviceToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("auth service returned status %d for %s %s", resp.StatusCode, method, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// ListUsers lists all user records
func (d *ServiceDirectory) ListUsers(ctx context.Context) ([]Principal, error) {
	var users []Principal
	if err := d.do(ctx, http.MethodGet, "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches a single user record
func (d *ServiceDirectory) GetUser(ctx context.Context, userID string) (*Principal, error) {
	var user Principal
	if err := d.do(ctx, http.MethodGet, "/admin/users/"+userID, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// BanUser bans a user, optionally until expiresAt
func (d *ServiceDirectory) BanUser(ctx context.Context, userID, reason string, expiresAt *time.Time) error {
	body := map[string]interface{}{"reason": reason}
	if expiresAt != nil {
		body["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
	}
	return d.do(ctx, http.MethodPost, "/admin/users/"+userID+"/ban", body, nil)
}

// UnbanUser lifts a user's ban
func (d *ServiceDirectory) UnbanUser(ctx context.Context, userID string) error {
	return d.do(ctx, http.MethodPost, "/admin/users/"+userID+"/unban", nil, nil)
}

// DeleteUser deletes a user record. The self-deletion check happens at
// the handler layer before this is called.
func (d *ServiceDirectory) DeleteUser(ctx context.Context, userID string) error {
	return d.do(ctx, http.MethodDelete, "/admin/users/"+userID, nil, nil)
}
