package services

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseCredentials selects how the Admin SDK authenticates. Base64 wins
// over a file; with neither, application default credentials are used.
type FirebaseCredentials struct {
	Base64    string
	File      string
	ProjectID string
}

// NewFirebaseApp initializes the Firebase Admin app shared by the truck store,
// auth and messaging clients.
func NewFirebaseApp(ctx context.Context, creds FirebaseCredentials) (*firebase.App, error) {
	var opts []option.ClientOption

	switch {
	case creds.Base64 != "":
		credentialsJSON, err := base64.StdEncoding.DecodeString(creds.Base64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	case creds.File != "":
		opts = append(opts, option.WithCredentialsFile(creds.File))
	}

	var cfg *firebase.Config
	if creds.ProjectID != "" {
		cfg = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}
