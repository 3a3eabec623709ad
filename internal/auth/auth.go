// Package auth resolves requests to an opaque user ID. Production uses
// Firebase ID tokens; local development can run with a static identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var (
	ErrMissingToken = errors.New("missing authorization token")
	ErrInvalidToken = errors.New("invalid authorization token")
)

// Verifier turns a bearer token into a user ID.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// ExtractBearerToken pulls the token out of an Authorization header.
func ExtractBearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// FirebaseVerifier validates Firebase ID tokens and returns the Firebase
// UID as the user ID.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier initializes the Firebase Admin SDK.
// credentialsFile may be empty to use application default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return decoded.UID, nil
}

// StaticVerifier accepts any token and resolves it to a fixed user ID.
// Local development only; never wire it up in production config.
type StaticVerifier struct {
	UserID string
}

func (v StaticVerifier) Verify(_ context.Context, _ string) (string, error) {
	if v.UserID == "" {
		return "", ErrInvalidToken
	}
	return v.UserID, nil
}
