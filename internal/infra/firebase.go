// README: Firebase Admin SDK token verifier used by the auth middleware.
package infra

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// RoleClaim is the custom claim carrying helper, requester or admin.
const RoleClaim = "role"

type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// Role returns the role claim, or "" when absent or not a string.
func (t *FirebaseToken) Role() string {
	role, _ := t.Claims[RoleClaim].(string)
	return role
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier uses credentialsFile when set, otherwise application
// default credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firebase new app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "firebase auth client")
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Wrap(err, "verify id token")
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}
