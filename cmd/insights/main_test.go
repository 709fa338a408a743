package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budgetinsights/internal/core"
)

func TestParseMonth(t *testing.T) {
	now := time.Date(2025, 3, 18, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    core.Date
		wantErr bool
	}{
		{in: "", want: core.NewDate(2025, 3, 18)},
		{in: "2024-11", want: core.NewDate(2024, 11, 1)},
		{in: "2024-13", wantErr: true},
		{in: "2024-11-05", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMonth(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMonth(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("insights %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "insights.db"))
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	file := filepath.Join(dir, "tx.csv")
	csv := "date,category,name,type,amount\n" +
		"2024-12-10,dining,Dining,expense,100.00\n" +
		"2025-01-10,dining,Dining,expense,150.00\n"
	if err := os.WriteFile(file, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	if out := run(t, "import", file, "--user", "u1"); !strings.Contains(out, "Imported 2 transactions into 1 categories") {
		t.Errorf("import output = %q", out)
	}

	out := run(t, "generate", "--user", "u1", "--month", "2025-01")
	if !strings.Contains(out, "dining/spending_increase") || !strings.Contains(out, "1 new insights for 2025-01") {
		t.Errorf("generate output = %q", out)
	}
	if out := run(t, "generate", "--user", "u1", "--month", "2025-01"); !strings.Contains(out, "0 new insights") {
		t.Errorf("second generate output = %q", out)
	}

	var recs []struct {
		ID        string
		Dismissed bool
	}
	if err := json.Unmarshal([]byte(run(t, "list", "--user", "u1", "--json")), &recs); err != nil {
		t.Fatalf("list --json: %v", err)
	}
	if len(recs) != 1 || recs[0].ID == "" {
		t.Fatalf("listed insights = %+v", recs)
	}

	if out := run(t, "dismiss", recs[0].ID, "--user", "u1"); !strings.Contains(out, "Dismissed") {
		t.Errorf("dismiss output = %q", out)
	}
	if out := run(t, "list", "--user", "u1"); strings.Contains(out, recs[0].ID) {
		t.Errorf("dismissed insight still listed: %q", out)
	}
	if out := run(t, "list", "--user", "u1", "--all"); !strings.Contains(out, "(dismissed)") {
		t.Errorf("list --all output = %q", out)
	}

	if out := run(t, "budget", "set", "200", "--user", "u1", "--category", "dining", "--month", "2025-01"); !strings.Contains(out, "from 2025-01") {
		t.Errorf("budget output = %q", out)
	}

	if out := run(t, "migrate", "version"); !strings.Contains(out, "schema version 1 (dirty: false)") {
		t.Errorf("migrate version output = %q", out)
	}
}
