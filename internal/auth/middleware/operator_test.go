package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func echoOperator() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(OperatorFromContext(r.Context())))
	})
}

func TestOperatorGateDisabledWithoutHash(t *testing.T) {
	h := OperatorGate("operator", "")(echoOperator())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOperatorGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := OperatorGate("operator", string(hash))(echoOperator())

	cases := []struct {
		name       string
		user, pass string
		noAuth     bool
		want       int
	}{
		{name: "missing", noAuth: true, want: http.StatusUnauthorized},
		{name: "wrong password", user: "operator", pass: "nope", want: http.StatusUnauthorized},
		{name: "wrong user", user: "admin", pass: "s3cret", want: http.StatusUnauthorized},
		{name: "ok", user: "operator", pass: "s3cret", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if !tc.noAuth {
				req.SetBasicAuth(tc.user, tc.pass)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "operator", rec.Body.String())
			} else {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("pw")))
}
