package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("OPS_PORT", "9001")
	t.Setenv("MEDIA_MAX_DIM", "800")
	t.Setenv("FIXED_LATITUDE", "52.37")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("NETWORK_CLASS", "wifi")

	cfg := Load()
	if cfg.OpsPort != "9001" {
		t.Fatalf("OpsPort = %q", cfg.OpsPort)
	}
	if cfg.MediaMaxDim != 800 {
		t.Fatalf("MediaMaxDim = %d", cfg.MediaMaxDim)
	}
	if cfg.FixedLatitude != 52.37 {
		t.Fatalf("FixedLatitude = %v", cfg.FixedLatitude)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.Env != "dev" {
		t.Fatalf("Env default = %q", cfg.Env)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MEDIA_MAX_DIM", "not-a-number")
	t.Setenv("HTTP_TIMEOUT", "forever")
	t.Setenv("FIXED_LONGITUDE", "east")

	cfg := Load()
	if cfg.MediaMaxDim != 1280 {
		t.Fatalf("MediaMaxDim = %d", cfg.MediaMaxDim)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Fatalf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.FixedLongitude != 0 {
		t.Fatalf("FixedLongitude = %v", cfg.FixedLongitude)
	}
}

func TestFetchOrigins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"backend1":"https://a.example/api/","backend2":"https://b.example/api/"}`))
	}))
	defer srv.Close()

	origins, err := FetchOrigins(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if origins.Primary != "https://a.example/api/" || origins.Secondary != "https://b.example/api/" {
		t.Fatalf("origins = %+v", origins)
	}
}

func TestFetchOriginsIncompletePair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"backend1":"https://a.example/api/"}`))
	}))
	defer srv.Close()

	if _, err := FetchOrigins(context.Background(), srv.URL); err == nil {
		t.Fatal("incomplete pair must error so callers fall back")
	}
}

func TestFetchOriginsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := FetchOrigins(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 5xx")
	}
	if _, err := FetchOrigins(context.Background(), ""); err == nil {
		t.Fatal("expected error on empty url")
	}
}
