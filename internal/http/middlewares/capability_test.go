package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/smarteventhub/internal/auth"
	"github.com/geocoder89/smarteventhub/internal/domain/account"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticVerifier struct {
	claims *auth.Claims
}

func (s *staticVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return s.claims, nil
}

func capTestRouter(role string, cap Capability) *gin.Engine {
	mw := NewAuthMiddleware(&staticVerifier{claims: &auth.Claims{
		AccountID:      "acc-1",
		Role:           role,
		OrganizationID: "org-1",
	}})

	r := gin.New()
	r.GET("/guarded", mw.RequireAuth(), mw.RequireCapability(cap), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func get(r *gin.Engine, withToken bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)

	if withToken {
		req.Header.Set("Authorization", "Bearer t")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name string
		role string
		cap  Capability
		want int
	}{
		{"organization manages managers", account.RoleOrganization, CapManageManagers, http.StatusOK},
		{"manager cannot manage managers", account.RoleEventManager, CapManageManagers, http.StatusForbidden},
		{"manager dispatches certificates", account.RoleEventManager, CapDispatchCertificates, http.StatusOK},
		{"manager exports participants", account.RoleEventManager, CapExportParticipants, http.StatusOK},
		{"unknown role gets nothing", "intern", CapManageEvents, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(capTestRouter(tt.role, tt.cap), true)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	w := get(capTestRouter(account.RoleOrganization, CapManageEvents), false)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
