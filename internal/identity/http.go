package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 20 * time.Second

// HTTPResolver looks the doctor up through GET /doctor/{token}.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPResolver(baseURL string, httpClient *http.Client) *HTTPResolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPResolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type doctorResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Doctor  *Identity `json:"doctor"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, token string) (Identity, error) {
	endpoint := r.baseURL + "/doctor/" + url.PathEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, fmt.Errorf("identity: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("identity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out doctorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Identity{}, fmt.Errorf("identity: decode: %w", err)
	}
	if out.Doctor == nil || out.Doctor.ID == 0 {
		return Identity{}, ErrNoIdentity
	}
	return *out.Doctor, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges doctor credentials for a token via POST /doctor/login.
func (r *HTTPResolver) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("identity: encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/doctor/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity: login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("identity: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity: login status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("identity: decode login: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("identity: login returned no token")
	}
	return out.Token, nil
}
