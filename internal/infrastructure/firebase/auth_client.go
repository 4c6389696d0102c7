package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// AuthClient wraps the Firebase Admin auth client as the identity
// verifier for both the REST middleware and the realtime handshake.
type AuthClient struct {
	client *auth.Client
	apiKey string
}

func NewAuthClient(client *auth.Client, apiKey string) *AuthClient {
	return &AuthClient{
		client: client,
		apiKey: apiKey,
	}
}

// VerifyToken validates a caller-presented ID token and returns the
// user id it names.
func (f *AuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return result.UID, nil
}

// CustomToken mints a custom token for uid, exchangeable for an ID
// token by a client SDK or the dev-token endpoint.
func (f *AuthClient) CustomToken(ctx context.Context, uid string) (string, error) {
	return f.client.CustomToken(ctx, uid)
}

// TestConnection probes the Auth backend for the health endpoint.
func (f *AuthClient) TestConnection(ctx context.Context) error {
	_, err := f.client.GetUser(ctx, "healthcheck-probe")
	if err != nil && auth.IsUserNotFound(err) {
		return nil
	}
	return err
}
