package session

import (
	"errors"
	"sync"
	"testing"
)

func TestBackendURLRequiresPair(t *testing.T) {
	s := New()
	if _, err := s.BackendURL(); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}

	// Half-configured pairs are still invalid.
	s.SetBackends("https://a.example/api/", "")
	if _, err := s.BackendURL(); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend for half pair, got %v", err)
	}

	s.SetBackends("https://a.example/api/", "https://b.example/api/")
	url, err := s.BackendURL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://a.example/api/" {
		t.Fatalf("got %q", url)
	}
}

func TestSwapBackends(t *testing.T) {
	s := New()
	s.SetBackends("https://a.example/api/", "https://b.example/api/")

	s.SwapBackends()
	url, _ := s.BackendURL()
	if url != "https://b.example/api/" {
		t.Fatalf("after swap got %q", url)
	}

	s.SwapBackends()
	url, _ = s.BackendURL()
	if url != "https://a.example/api/" {
		t.Fatalf("after double swap got %q", url)
	}
}

// Swapping can race an in-flight read; the read must see either the old or
// the new primary, never an empty or mixed pair. Run with -race.
func TestSwapRace(t *testing.T) {
	s := New()
	s.SetBackends("https://a.example/api/", "https://b.example/api/")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SwapBackends()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				url, err := s.BackendURL()
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if url != "https://a.example/api/" && url != "https://b.example/api/" {
					t.Errorf("torn read: %q", url)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestResetKeepsBackends(t *testing.T) {
	s := New()
	s.SetBackends("https://a.example/api/", "https://b.example/api/")
	s.SetUser("u-1", RoleSupervisor)
	s.SetTokens("acc", "ref")
	s.SetProject("p-1", "North Site")

	if !s.LoggedIn() || !s.IsSupervisor() {
		t.Fatal("session should be logged in as supervisor")
	}

	s.Reset()
	if s.LoggedIn() || s.UserID() != "" || s.UserRole() != RoleUnset || s.AccessToken() != "" {
		t.Fatal("reset did not clear identity")
	}
	if _, err := s.BackendURL(); err != nil {
		t.Fatalf("reset must not clear backend origins: %v", err)
	}
}
