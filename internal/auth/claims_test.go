package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-jwt-signing-0123456789"

func TestGenerateAndParseAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("scanner-07", RoleOperator, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "scanner-07" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "scanner-07")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}

	p := claims.Principal()
	if p.Subject != "scanner-07" || !p.Can(PermImport) || p.Can(PermDeviceDelete) {
		t.Errorf("Principal() = %+v with unexpected permissions", p)
	}
}

func TestGenerateAccessToken_Validation(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		role    Role
		secret  string
		wantErr error
	}{
		{"blank subject", "  ", RoleViewer, testSecret, ErrTokenInvalid},
		{"unknown role", "alice", Role("owner"), testSecret, ErrInvalidRole},
		{"empty secret", "alice", RoleViewer, "", ErrTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateAccessToken(tt.subject, tt.role, tt.secret, time.Hour)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("alice", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	expectedExpiry := time.Now().Add(defaultTokenTTL)
	diff := claims.ExpiresAt.Time.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL should be ~12 hours, got expiry diff of %v", diff)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateAccessToken("alice", RoleAdmin, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	expired := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: RoleAdmin,
	}, jwt.SigningMethodHS256)

	unknownRole := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: Role("owner"),
	}, jwt.SigningMethodHS256)

	noSubject := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleViewer,
	}, jwt.SigningMethodHS256)

	wrongAlg := signClaims(t, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}, jwt.SigningMethodHS512)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "another-secret-another-secret-0000"},
		{"garbage", "not-a-valid-jwt", testSecret},
		{"empty", "", testSecret},
		{"malformed", "abc.def", testSecret},
		{"expired", expired, testSecret},
		{"unknown role", unknownRole, testSecret},
		{"missing subject", noSubject, testSecret},
		{"unexpected algorithm", wrongAlg, testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func signClaims(t *testing.T, claims CustomClaims, method jwt.SigningMethod) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}
