package backend

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Granville-Christopher/granalysis-sub000/internal/errs"
)

// sessionFile is the persisted bearer session for the backend.
type sessionFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SaveSession stores an access token at path, with expiry taken from the
// token's own claims (fallback: 15 minutes).
func SaveSession(path, token string) error {
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	exp := time.Now().Add(15 * time.Minute)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sessionFile{AccessToken: token, ExpiresAt: exp})
}

// LoadSession returns the stored access token, or ErrNoSession when the file
// is missing, unreadable or expired.
func LoadSession(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errs.ErrNoSession
	}
	var sf sessionFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return "", errs.ErrNoSession
	}
	if sf.AccessToken == "" || time.Now().After(sf.ExpiresAt) {
		return "", errs.ErrNoSession
	}
	return sf.AccessToken, nil
}
