package middleware

import (
	"net/http"
	"strings"

	"example.com/backstage/services/tenders/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// PrincipalKey is the gin context key of the authenticated caller
const PrincipalKey = "principal"

// JWTAuth verifies the bearer token and stores its subject as the principal
func JWTAuth(cfg config.AuthConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.JWTSecret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortUnauthorised(c, "Authorization header must be 'Bearer {token}'")
			return
		}
		if len(secret) == 0 {
			log.Error().Msg("auth.jwt_secret is not configured, rejecting request")
			abortUnauthorised(c, "Token verification is not configured")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			abortUnauthorised(c, "Invalid bearer token")
			return
		}

		subject, err := claims.GetSubject()
		if err != nil || subject == "" {
			abortUnauthorised(c, "Bearer token has no subject")
			return
		}

		c.Set(PrincipalKey, subject)
		c.Next()
	}
}

// Principal returns the authenticated caller
func Principal(c *gin.Context) string {
	return c.GetString(PrincipalKey)
}

func abortUnauthorised(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"errors": []gin.H{{
			"status": "401",
			"title":  "UNAUTHENTICATED",
			"detail": detail,
		}},
	})
}
