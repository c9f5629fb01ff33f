package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newValidationOnlyAuthService() *AuthService {
	// No repo or OAuth config: these tests cover paths that must fail
	// before any dependency is touched.
	return NewAuthService(nil, "secret", time.Hour, nil, nil)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := newValidationOnlyAuthService()

	cases := []RegisterInput{
		{Username: "", Email: "a@b.com", Password: "longenough"},
		{Username: "alice", Email: "", Password: "longenough"},
		{Username: "alice", Email: "a@b.com", Password: ""},
		{Username: "alice", Email: "a@b.com", Password: "short"},
		{Username: "   ", Email: "a@b.com", Password: "longenough"},
	}
	for _, input := range cases {
		if _, err := svc.Register(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: want ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestLoginRejectsBadInput(t *testing.T) {
	svc := newValidationOnlyAuthService()

	for _, input := range []LoginInput{
		{Username: "", Password: "longenough"},
		{Username: "alice", Password: ""},
		{Username: "  ", Password: "  "},
	} {
		if _, err := svc.Login(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: want ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestGoogleFlowsDisabledWithoutConfig(t *testing.T) {
	svc := newValidationOnlyAuthService()

	if _, err := svc.GoogleAuthURL(context.Background()); !errors.Is(err, ErrOAuthDisabled) {
		t.Fatalf("want ErrOAuthDisabled, got %v", err)
	}
	if _, err := svc.GoogleCallback(context.Background(), "state", "code"); !errors.Is(err, ErrOAuthDisabled) {
		t.Fatalf("want ErrOAuthDisabled, got %v", err)
	}
}
