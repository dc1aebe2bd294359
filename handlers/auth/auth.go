package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Authorizer answers whether a caller may perform admin operations. The demo
// keeps the original single credential comparison behind this interface so
// tests can swap in a trivial stub.
type Authorizer interface {
	Authorize(username, password string) bool
}

// AuthorizerFunc adapts a plain function to an Authorizer.
type AuthorizerFunc func(username, password string) bool

func (f AuthorizerFunc) Authorize(username, password string) bool {
	return f(username, password)
}

// StaticCredentials authorizes exactly one username/password pair. With no
// pair configured it authorizes nobody.
type StaticCredentials struct {
	Username string
	Password string
}

func (c StaticCredentials) Authorize(username, password string) bool {
	if c.Username == "" && c.Password == "" {
		return false
	}
	return username == c.Username && password == c.Password
}

var (
	jwtSecret  []byte
	authorizer Authorizer
)

// AppClaims represents the custom claims for the JWT.
type AppClaims struct {
	jwt.RegisteredClaims
	Login string `json:"login"`
	Admin bool   `json:"admin"`
}

func InitAuth() {
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Admin authentication will not work.")
	}

	creds := StaticCredentials{
		Username: os.Getenv("ADMIN_USER"),
		Password: os.Getenv("ADMIN_PASSWORD"),
	}
	if creds.Username == "" && creds.Password == "" {
		logrus.Warn("ADMIN_USER/ADMIN_PASSWORD are not set. Admin login is disabled.")
	}
	authorizer = creds
}

// SetAuthorizer overrides the credential check. Used by tests.
func SetAuthorizer(a Authorizer) {
	authorizer = a
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin checks the submitted credentials against the configured
// Authorizer and returns a signed admin token. Failure is a single blocking
// acknowledgment; there is no retry or lockout machinery.
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Invalid request body"})
		return
	}

	if authorizer == nil || !authorizer.Authorize(req.Username, req.Password) {
		logrus.WithField("username", req.Username).Warn("Admin login rejected")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "Invalid credentials"})
		return
	}

	token, err := createJWT(req.Username)
	if err != nil {
		logrus.WithError(err).Error("Failed to create JWT")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to create token"})
		return
	}

	render.JSON(w, r, map[string]string{"token": token})
}

func createJWT(login string) (string, error) {
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 7)), // 1 week
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Login: login,
		Admin: true,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
