package cli

import (
	"strings"
	"testing"

	"github.com/valter-silva-au/pm-console/internal/core"
	"github.com/valter-silva-au/pm-console/internal/observability"
)

func TestLogin_WithFlags(t *testing.T) {
	env := setupServices(t, "")

	out, _, err := run(t, loginCmd, map[string]string{"username": "mia", "password": "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "Logged in as mia (Manager)" {
		t.Errorf("output = %q", out)
	}
	if env.store.vals.Token != "tok-mia" || env.store.vals.Role != "Manager" || env.store.vals.UserID != "u9" {
		t.Errorf("stored session = %+v", env.store.vals)
	}

	events, err := env.audit.Read(observability.EventFilter{Type: core.EventLogin})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Data["user_id"] != "u9" {
		t.Errorf("login events = %+v", events)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := setupServices(t, "")

	_, _, err := run(t, loginCmd, map[string]string{"username": "mia", "password": "wrong"})
	if err == nil || err.Error() != "login failed: Invalid username or password" {
		t.Fatalf("err = %v", err)
	}
	if env.auth.IsLoggedIn() || env.store.vals.Token != "" {
		t.Error("a failed login must leave the session anonymous")
	}
}

func TestLogout(t *testing.T) {
	env := setupServices(t, "Manager")

	out, _, err := run(t, logoutCmd, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "Logged out" {
		t.Errorf("output = %q", out)
	}
	if env.auth.IsLoggedIn() || env.store.vals != (core.SessionValues{}) {
		t.Errorf("session still present: %+v", env.store.vals)
	}
	events, _ := env.audit.Read(observability.EventFilter{Type: core.EventLogout})
	if len(events) != 1 {
		t.Errorf("logout events = %+v", events)
	}
}

func TestLogout_Anonymous(t *testing.T) {
	env := setupServices(t, "")

	if _, _, err := run(t, logoutCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, _ := env.audit.Read(observability.EventFilter{})
	if len(events) != 0 {
		t.Errorf("no event expected for an anonymous logout, got %+v", events)
	}
}

func TestWhoami(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		flags   map[string]string
		want    []string
		wantErr string
	}{
		{name: "stored session", role: "Manager", want: []string{"User ID:  u1", "Role:     Manager"}},
		{name: "remote", role: "Manager", flags: map[string]string{"remote": "true"}, want: []string{"Username: uma", "User ID:  u1"}},
		{name: "anonymous", role: "", wantErr: "not logged in: run 'pmc login'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupServices(t, tt.role)

			out, _, err := run(t, whoamiCmd, tt.flags)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestWhoami_YAML(t *testing.T) {
	setupServices(t, "Admin")
	outputFlag = outputYAML

	out, _, err := run(t, whoamiCmd, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "user_id: u1") || !strings.Contains(out, "role: Admin") {
		t.Errorf("output:\n%s", out)
	}
}
