package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/finml/internal/domain"
	"github.com/boddenberg/finml/internal/service"
)

func TestRetrainAuth_RoundTrip(t *testing.T) {
	auth := service.NewRetrainAuth("s3cret")

	token, err := auth.IssueToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := auth.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("expected subject ops, got %q", claims.Subject)
	}
}

func TestRetrainAuth_Rejects(t *testing.T) {
	auth := service.NewRetrainAuth("s3cret")
	expired, _ := auth.IssueToken("ops", -time.Minute)
	foreign, _ := service.NewRetrainAuth("other").IssueToken("ops", time.Hour)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": foreign,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Validate(token)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestNewRetrainAuth_EmptySecret(t *testing.T) {
	if service.NewRetrainAuth("") != nil {
		t.Fatal("expected nil auth for an empty secret")
	}
}
