package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
)

func testKeys(t *testing.T) *Keys {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating rsa key: %v", err)
	}

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	})

	keys, err := NewKeys(privatePEM, publicPEM)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return keys
}

func TestGenerateAndValidateToken(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-42", []string{RoleUser})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := keys.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", claims.Subject)
	}
	if !claims.HasRole(RoleUser) {
		t.Fatalf("expected %s role in claims %+v", RoleUser, claims.Roles)
	}
	if claims.HasRole(RoleAdmin) {
		t.Fatalf("token must not carry %s", RoleAdmin)
	}
}

func TestValidateToken_Tampered(t *testing.T) {
	keys := testKeys(t)

	token, err := keys.GenerateToken("user-42", []string{RoleUser})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// Corrupt the signature segment.
	parts := strings.Split(token, ".")
	flipped := "A"
	if parts[2][0] == 'A' {
		flipped = "B"
	}
	parts[2] = flipped + parts[2][1:]
	if _, err := keys.ValidateToken(strings.Join(parts, ".")); err == nil {
		t.Fatal("tampered token must not validate")
	}
}

func TestValidateToken_WrongKey(t *testing.T) {
	signer := testKeys(t)
	verifier := testKeys(t)

	token, err := signer.GenerateToken("user-42", []string{RoleUser})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("token signed by a different key must not validate")
	}
}
