package paygin

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/open-rails/paykit/adapters/ginutil"
	jwtkit "github.com/open-rails/paykit/jwt"
)

// AdminRole is the role claim required on admin tokens.
const AdminRole = "admin"

// AdminAuthConfig configures the admin middleware. Either (or both) of the
// two modes may be enabled: bearer JWTs carrying the admin role, or an
// X-Admin-Key header checked against bcrypt hashes.
type AdminAuthConfig struct {
	Verifier *jwtkit.Verifier
	// KeyHashes are bcrypt hashes of accepted admin API keys.
	KeyHashes []string
}

// AdminAuth gates the override endpoints. It stores the authenticated actor
// under "paykit.actor" for audit trails.
func AdminAuth(cfg AdminAuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := strings.TrimSpace(c.GetHeader("X-Admin-Key")); key != "" && len(cfg.KeyHashes) > 0 {
			for _, hash := range cfg.KeyHashes {
				if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
					c.Set("paykit.actor", "api_key")
					c.Next()
					return
				}
			}
			ginutil.Unauthorized(c, "invalid_admin_key")
			return
		}

		if cfg.Verifier != nil {
			raw := bearerToken(c.GetHeader("Authorization"))
			if raw == "" {
				ginutil.Unauthorized(c, "missing_credentials")
				return
			}
			claims, err := cfg.Verifier.Verify(c.Request.Context(), raw)
			if err != nil {
				ginutil.Unauthorized(c, "invalid_token")
				return
			}
			if !claims.HasRole(AdminRole) {
				ginutil.Forbidden(c, "admin_role_required")
				return
			}
			c.Set("paykit.actor", claims.Subject)
			c.Next()
			return
		}

		ginutil.Unauthorized(c, "missing_credentials")
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// HashAdminKey bcrypt-hashes a plaintext admin key for AdminAuthConfig.
func HashAdminKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}
