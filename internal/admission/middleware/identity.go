package middleware

import (
	"context"

	"shieldgate/internal/admission/models"
	"shieldgate/pkg/requestcontext"
)

// ClientKey picks the rate-limit identity of a request: the authenticated
// user, then the API key, then the client address resolved by the metadata
// middleware.
func ClientKey(ctx context.Context) string {
	if userID := requestcontext.UserID(ctx); userID != "" {
		return models.NewClientKey(models.KeyPrefixUser, userID)
	}
	if keyID := requestcontext.APIKey(ctx); keyID != "" {
		return models.NewClientKey(models.KeyPrefixAPIKey, keyID)
	}
	return models.NewClientKey(models.KeyPrefixIP, requestcontext.ClientIP(ctx))
}
