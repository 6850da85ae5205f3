package simplefin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AuthState is the saved result of claiming a setup token.
type AuthState struct {
	ClaimedAt time.Time `json:"claimed_at"`
	AccessURL string    `json:"access_url"`
	TokenHint string    `json:"token_hint"`
}

// LoadOrClaim returns the access URL saved in path, or claims token and saves the
// result. Setup tokens can be claimed only once, so the file must survive restarts.
func LoadOrClaim(ctx context.Context, client *http.Client, token, path string, logger *slog.Logger) (*AuthState, error) {
	if path != "" {
		auth, err := loadAuthState(path)
		switch {
		case err == nil && auth.AccessURL != "":
			logger.Debug("Using saved access URL", "claimed_at", auth.ClaimedAt.Format("2006-01-02"), "state_file", path)
			return auth, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	if token == "" {
		return nil, fmt.Errorf("no saved access URL and no setup token to claim")
	}

	logger.Info("Claiming setup token")
	accessURL, err := claimToken(ctx, client, token)
	if err != nil {
		return nil, err
	}

	auth := &AuthState{
		AccessURL: accessURL,
		ClaimedAt: time.Now().UTC(),
		TokenHint: tokenHint(token),
	}
	if path != "" {
		if err := saveAuthState(path, auth); err != nil {
			return nil, fmt.Errorf("access URL claimed but not saved: %w", err)
		}
		logger.Info("Saved access URL", "state_file", path)
	}
	return auth, nil
}

// claimToken exchanges a base64 setup token for an access URL.
func claimToken(ctx context.Context, client *http.Client, token string) (string, error) {
	token = strings.TrimSpace(token)
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return "", fmt.Errorf("failed to decode setup token: %w", err)
		}
	}

	claimURL := string(decoded)
	if _, err := parseAccessURL(claimURL); err != nil {
		return "", fmt.Errorf("setup token does not hold a claim URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claimURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create claim request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to claim access URL: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp); err != nil {
		return "", fmt.Errorf("claim rejected: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read access URL: %w", err)
	}
	accessURL := strings.TrimSpace(string(body))
	if _, err := parseAccessURL(accessURL); err != nil {
		return "", fmt.Errorf("bridge returned an unusable access URL: %w", err)
	}
	return accessURL, nil
}

func loadAuthState(path string) (*AuthState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var auth AuthState
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

func saveAuthState(path string, auth *AuthState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func tokenHint(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-8:]
	}
	return "short"
}
