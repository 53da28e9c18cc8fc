package db

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	rtdb "firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/example/storefront/internal/config"
)

// Firebase bundles the Admin SDK app and the clients derived from it.
type Firebase struct {
	App *firebase.App
	// Auth verifies ID tokens minted by the identity provider.
	Auth *auth.Client
}

// InitFirebase initializes the Firebase Admin SDK with credentials and
// project settings from appConfig.
func InitFirebase(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*Firebase, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("InitFirebase: appConfig cannot be nil")
	}

	var credsOption option.ClientOption
	switch {
	case appConfig.GoogleApplicationCredentials != "":
		logger.Info("Initializing Firebase with credentials file", zap.String("path", appConfig.GoogleApplicationCredentials))
		if _, err := os.Stat(appConfig.GoogleApplicationCredentials); os.IsNotExist(err) {
			// ADC may still be available, so this is not fatal.
			logger.Warn("Credentials file does not exist", zap.String("path", appConfig.GoogleApplicationCredentials))
		}
		credsOption = option.WithCredentialsFile(appConfig.GoogleApplicationCredentials)
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		logger.Info("Initializing Firebase with Base64 encoded service account JSON")
		decodedJSON, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FirebaseServiceAccountJSONBase64: %w", err)
		}
		credsOption = option.WithCredentialsJSON(decodedJSON)
	default:
		logger.Info("Initializing Firebase using Application Default Credentials (ADC)")
	}

	fbConfig := &firebase.Config{
		ProjectID:   appConfig.FirebaseProjectID,
		DatabaseURL: appConfig.FirebaseDatabaseURL,
	}

	var app *firebase.App
	var err error
	if credsOption != nil {
		app, err = firebase.NewApp(ctx, fbConfig, credsOption)
	} else {
		app, err = firebase.NewApp(ctx, fbConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Auth: %w", err)
	}
	logger.Info("Firebase Auth client initialized successfully")

	return &Firebase{App: app, Auth: authClient}, nil
}

// Firestore returns a Firestore client for the app.
func (f *Firebase) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := f.App.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}
	return client, nil
}

// Database returns a Realtime Database client for the app's DatabaseURL.
func (f *Firebase) Database(ctx context.Context) (*rtdb.Client, error) {
	client, err := f.App.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Database: %w", err)
	}
	return client, nil
}
