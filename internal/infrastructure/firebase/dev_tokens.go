package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GenerateIDToken mints a custom token for uid and exchanges it for an
// ID token through the Identity Toolkit REST API, so development
// clients can call authenticated endpoints without a device SDK. When
// no API key is configured the raw custom token is returned instead.
func (f *AuthClient) GenerateIDToken(ctx context.Context, uid string) (string, error) {
	customToken, err := f.client.CustomToken(ctx, uid)
	if err != nil {
		return "", err
	}

	if f.apiKey == "" {
		return customToken, nil
	}

	return f.exchangeCustomToken(ctx, customToken)
}

func (f *AuthClient) exchangeCustomToken(ctx context.Context, customToken string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"token":             customToken,
		"returnSecureToken": true,
	})
	if err != nil {
		return "", err
	}

	url := "https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken?key=" + f.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var result struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("token exchange returned no idToken")
	}

	return result.IDToken, nil
}
