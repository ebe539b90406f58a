package auth

import (
	"strings"
	"testing"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !strings.HasPrefix(token, "clawdx_tk_") || len(token) != len("clawdx_tk_")+48 {
		t.Fatalf("unexpected token %q", token)
	}
	hash := HashToken(token)
	if !VerifyToken(token, hash) {
		t.Fatalf("token does not verify against its hash")
	}
	if VerifyToken(token+"x", hash) {
		t.Fatalf("altered token verified")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc ":  "abc",
		"Basic abc":     "",
		"Bearer":        "",
		"":              "",
		"Bearer   ":     "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestHashTokenIsHexSHA256(t *testing.T) {
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashToken("abc"); got != want {
		t.Fatalf("HashToken(abc) = %q, want %q", got, want)
	}
}
