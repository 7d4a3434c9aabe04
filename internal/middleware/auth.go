package middleware

import (
	"context"
	"strings"

	"github.com/dfryer1193/micropub/blog/domain"
	"github.com/dfryer1193/micropub/shared/indieauth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TokenInfoKey is the gin context key holding the verified *indieauth.TokenInfo.
const TokenInfoKey = "micropub.token"

// TokenVerifier introspects a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*indieauth.TokenInfo, error)
}

// RequireToken rejects requests without a bearer token with 401 and requests
// whose token the verifier refuses with 403.
func RequireToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, domain.NewError(domain.KindUnauthorized, "Missing authorization token"))
			return
		}

		info, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		log.Debug().Str("client_id", info.ClientID).Strs("scope", info.Scopes()).Msg("Accepted access token")
		c.Set(TokenInfoKey, info)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
