package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vonity-org/visor-api/databases"
	"github.com/vonity-org/visor-api/models"
)

// OrgAuth authenticates organization bearer tokens against the
// organizations collection. The authenticator and cache are instance state,
// injected at construction rather than held in package globals, so tests
// can build isolated instances.
type OrgAuth struct {
	DB            databases.OrganizationDatabase
	Logger        *zap.SugaredLogger
	authenticator auth.Authenticator
}

// NewOrgAuth sets up the go-guardian cached bearer strategy over the
// organization database
func NewOrgAuth(db databases.OrganizationDatabase, logger *zap.SugaredLogger) *OrgAuth {
	a := &OrgAuth{DB: db, Logger: logger}
	a.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), 12*time.Hour)
	tokenStrategy := bearer.New(a.validateOrgToken, cache)
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return a
}

// validateOrgToken resolves a bearer token to its organization. Only the
// sha256 of the current token is stored; inactive organizations never
// authenticate.
func (a *OrgAuth) validateOrgToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	org, err := a.DB.FindOne(ctx, bson.M{"tokenHash": HashToken(token), "activated": true})
	if err != nil {
		return nil, fmt.Errorf("invalid organization token")
	}
	return auth.NewDefaultUser(org.Name, org.ID.Hex(), nil, nil), nil
}

// Middleware guards the /visor routes: a valid org token puts the
// organization on the request context, anything else is a 401 envelope.
func (a *OrgAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info, err := a.authenticator.Authenticate(r)
		if err != nil {
			a.Logger.Errorw("unauthorized",
				"url", r.URL,
			)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.Response{
				Message: "Please provide a valid organization token in order to authenticate.",
				Code:    models.CodeUnauthorized,
			})
			return
		}
		a.Logger.Debugf("organization %s authenticated", info.UserName())
		next.ServeHTTP(w, r.WithContext(WithOrganization(r.Context(), info.UserName())))
	})
}

// AdminAuth guards the management routes with the X-VISOR-API-KEY header,
// verified against a bcrypt hash from config.
type AdminAuth struct {
	KeyHash string
	Logger  *zap.SugaredLogger
}

// Middleware rejects requests whose admin API key is missing or wrong.
func (a AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		key := r.Header.Get("X-VISOR-API-KEY")
		if key == "" {
			a.Logger.Warn("no VISOR API key found")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.Response{
				Message: "No X-VISOR-API-KEY provided, please provide this header in order to authenticate.",
				Code:    models.CodeUnauthorized,
			})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(a.KeyHash), []byte(key)); err != nil {
			a.Logger.Warn("wrong VISOR API key provided")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.Response{
				Message: "The given VISOR-Admin-API key is not correct.",
				Code:    models.CodeUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashToken returns the sha256 hex of an access token; only hashes are
// persisted.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
