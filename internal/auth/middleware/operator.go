package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const realm = `Basic realm="everify-tester", charset="UTF-8"`

// OperatorGate protects the tester with HTTP basic auth. An empty hash
// disables the gate, which is the default for a local run.
func OperatorGate(user, passHash string) func(http.Handler) http.Handler {
	passHash = strings.TrimSpace(passHash)
	return func(next http.Handler) http.Handler {
		if passHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || verifyOperator(user, passHash, u, p) != nil {
				w.Header().Set("WWW-Authenticate", realm)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), u)))
		})
	}
}

func verifyOperator(wantUser, hash, user, pass string) error {
	if subtle.ConstantTimeCompare([]byte(wantUser), []byte(user)) != 1 {
		// Still burn a bcrypt compare so a wrong user costs the same.
		_ = bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}

// HashPassword produces a value suitable for OPERATOR_PASS_HASH.
func HashPassword(pass string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pass), 12)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
