package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"firmdesk/database"
	"firmdesk/errs"
	"firmdesk/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// mySigningKey should be a strong, randomly generated secret key,
// and it should be stored securely (e.g., in environment variables,
// a key management service, etc.), NOT hardcoded in your source code.
var mySigningKey = []byte("mySigningKey")

// SetSigningKey allows setting the key from outside the package.
func SetSigningKey(key []byte) {
	if len(key) > 0 {
		mySigningKey = key
	}
}

// CustomClaims is the identity attached to every authenticated request. The
// token is the sole authority; no session state is kept server-side.
type CustomClaims struct {
	UserID     uint   `json:"user_id"`
	TenantName string `json:"tenant_name"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT for the given user within a tenant.
func GenerateToken(user *models.User, tenant string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &CustomClaims{
		UserID:     user.ID,
		TenantName: tenant,
		Name:       user.Name,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "firmdesk",
			Subject:   "user-auth",
			Audience:  []string{"firmdesk-users"},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mySigningKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken validates the signature and decodes the claim set.
// Callers learn no more than the forbidden/expired distinction.
func ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return mySigningKey, nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errs.Forbiddenf("token is either expired or not active yet")
			}
		}
		return nil, errs.Forbiddenf("forbidden")
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errs.Forbiddenf("forbidden")
}

const claimsAttribute = "auth.claims"

// AuthFilter creates a go-restful FilterFunction for JWT authentication. A
// missing token is rejected with 401 before any downstream work; an invalid
// or expired one with 403.
func AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		authHeader := req.HeaderParameter("Authorization")
		if authHeader == "" {
			writeAuthError(resp, errs.Unauthorizedf("Authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeAuthError(resp, errs.Unauthorizedf("Invalid authorization header format"))
			return
		}
		tokenString := parts[1]

		claims, err := ParseAndValidateToken(tokenString)
		if err != nil {
			writeAuthError(resp, err)
			return
		}

		// Attach the authenticated identity for the remainder of request
		// handling.
		req.SetAttribute(claimsAttribute, claims)

		chain.ProcessFilter(req, resp)
	}
}

// ClaimsFromRequest extracts the identity attached by AuthFilter.
func ClaimsFromRequest(req *restful.Request) (*CustomClaims, bool) {
	attr := req.Attribute(claimsAttribute)
	if attr == nil {
		return nil, false
	}
	claims, ok := attr.(*CustomClaims)
	return claims, ok
}

// writeAuthError writes the uniform failure envelope, deriving the status
// code from the error's kind. Internal causes never reach the client here.
func writeAuthError(resp *restful.Response, err error) {
	status := errs.HTTPStatus(err)
	message := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	if status == http.StatusInternalServerError {
		message = "Internal Server Error"
	}
	_ = resp.WriteHeaderAndJson(status, map[string]interface{}{
		"status":  false,
		"message": message,
	}, restful.MIME_JSON)
}

// --- Login ---

// LoginCredentials defines the structure of the login request. The tenant
// selects which firm database the credentials are checked against; empty
// falls back to the default tenant.
type LoginCredentials struct {
	Username string `json:"username" description:"Username for login"`
	Password string `json:"password" description:"Password for login"`
	Tenant   string `json:"tenant" description:"Tenant (firm) name"`
}

// LoginRouteHandler handles POST /login against the tenant's user table.
func LoginRouteHandler(registry *database.Registry) restful.RouteFunction {
	return func(request *restful.Request, response *restful.Response) {
		creds := new(LoginCredentials)
		if err := request.ReadEntity(creds); err != nil {
			writeAuthError(response, errs.Validationf("Invalid request body: %v", err))
			return
		}

		if creds.Username == "" || creds.Password == "" {
			writeAuthError(response, errs.Validationf("Username and password are required"))
			return
		}

		tenant := creds.Tenant
		if tenant == "" {
			tenant = registry.DefaultTenant()
		}

		db, release, err := registry.Open(tenant)
		if err != nil {
			writeAuthError(response, err)
			return
		}
		defer release()

		var user models.User
		result := db.Where("username = ? AND status = ?", creds.Username, models.StatusActive).First(&user)
		if result.Error != nil {
			// Avoid revealing whether the user exists
			writeAuthError(response, errs.Unauthorizedf("Invalid credentials"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
			writeAuthError(response, errs.Unauthorizedf("Invalid credentials"))
			return
		}

		token, err := GenerateToken(&user, tenant)
		if err != nil {
			writeAuthError(response, errs.Internal("could not generate token", err))
			return
		}

		_ = response.WriteHeaderAndJson(http.StatusOK, map[string]interface{}{
			"status": true,
			"data":   map[string]string{"token": token},
		}, restful.MIME_JSON)
	}
}
