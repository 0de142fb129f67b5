package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://grch37.rest.ensembl.org/variation/homo_sapiens/rs6025"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.Wait(ctx, "https://rest.ensembl.org/variation/homo_sapiens/rs6025"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "https://grch37.rest.ensembl.org/variation/homo_sapiens/rs1"
	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context ends")
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "https://grch37.rest.ensembl.org/variation/homo_sapiens/rs6025"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 is spent; same host is refused, another host is not
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("https://rest.ensembl.org/info/ping") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("https://rest.ensembl.org/x") {
			t.Fatalf("request %d refused by unlimited limiter", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	host := "slow.example.org"

	limiter.SetHostRate(host, 0.1, 1)

	if !limiter.Allow("https://" + host + "/a") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("https://" + host + "/b") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("https://fast.example.org") {
		t.Errorf("other host should pass")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://grch37.rest.ensembl.org:443/variation")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "grch37.rest.ensembl.org:443" {
		t.Errorf("unexpected host %s", host)
	}

	for _, bad := range []string{"::invalid", "/relative/path"} {
		if _, err := hostOf(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
