package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/firebase-recipes/recipes-api/internal/session"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a bearer token into a signed-in user.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*session.User, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(client *auth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*session.User, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user := &session.User{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		user.DisplayName = name
	}
	return user, nil
}

const devTokenPrefix = "dev:"

// DevVerifier accepts tokens of the form "dev:<uid>".
// Use this ONLY for development/testing without Firebase credentials.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, idToken string) (*session.User, error) {
	uid := strings.TrimSpace(strings.TrimPrefix(idToken, devTokenPrefix))
	if !strings.HasPrefix(idToken, devTokenPrefix) || uid == "" {
		return nil, ErrInvalidToken
	}
	return &session.User{UID: uid, Email: uid + "@firebase.local"}, nil
}
