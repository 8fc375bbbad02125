package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	"github.com/tanpawarit/ai-suite-runtime/agent/store"
	"github.com/tanpawarit/ai-suite-runtime/agent/store/memstore"
	logx "github.com/tanpawarit/ai-suite-runtime/pkg/logger"
)

func TestNewRootCmdHasSubcommands(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Fatalf("Version = %q", root.Version)
	}
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "run-triage", "run-resolution", "seed", "migrate", "outbox"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
	if root.PersistentFlags().Lookup("env") == nil {
		t.Fatal("missing --env flag")
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV_FILE", "")
	t.Setenv("RUNTIME_EMAIL_DESTINATION", "")
	t.Setenv("UPSTASH_REDIS_URL", "")

	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunMemoryStorePrintsResult(t *testing.T) {
	out, err := execute(t, "",
		"run", "--agent-id", "imel", "--store", "memory", "--tenant-id", "t1",
		"--input-json", `{"email_id":"e1","sender_email":"a@example.com","email_content":"Is the showroom open on Sunday?"}`,
	)
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}

	var res struct {
		RunID    string `json:"run_id"`
		AgentID  string `json:"agent_id"`
		TenantID string `json:"tenant_id"`
		Action   string `json:"action"`
		PostRun  string `json:"post_run"`
		State    struct {
			EmailID       string `json:"email_id"`
			DraftResponse string `json:"draft_response"`
		} `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.AgentID != "triage" || res.TenantID != "t1" || res.Action != "respond" || res.PostRun != "sent" {
		t.Fatalf("result = %+v", res)
	}
	if res.RunID == "" || res.State.EmailID != "e1" || res.State.DraftResponse == "" {
		t.Fatalf("state = %+v", res.State)
	}
}

// capture swaps *target for a pipe and returns a func that restores it and
// yields everything written.
func capture(t *testing.T, target **os.File) func() string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := *target
	*target = w

	done := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	return func() string {
		*target = orig
		_ = w.Close()
		data := <-done
		_ = r.Close()
		return string(data)
	}
}

func TestRunStdoutIsOnlyJSONWithGlobalLogger(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("RUNTIME_EMAIL_DESTINATION", "")
	t.Setenv("UPSTASH_REDIS_URL", "")

	prevLogger, prevCtxLogger := log.Logger, zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.DefaultContextLogger = prevCtxLogger
	})

	stopStdout := capture(t, &os.Stdout)
	stopStderr := capture(t, &os.Stderr)
	logx.Init()

	root := NewRootCmd("test")
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{
		"run-triage", "--store", "memory", "--tenant-id", "t1",
		"--sender", "a@example.com", "--content", "Is the showroom open on Sunday?", "--email-id", "e1",
	})
	err := root.ExecuteContext(log.Logger.WithContext(context.Background()))

	stderr := stopStderr()
	stdout := stopStdout()
	if err != nil {
		t.Fatalf("run-triage error = %v\nstderr: %s", err, stderr)
	}

	dec := json.NewDecoder(strings.NewReader(stdout))
	var res map[string]any
	if err := dec.Decode(&res); err != nil {
		t.Fatalf("decode stdout: %v\n%s", err, stdout)
	}
	if dec.More() {
		t.Fatalf("stdout has content after the result:\n%s", stdout)
	}
	if res["action"] != "respond" || res["tenant_id"] != "t1" {
		t.Fatalf("result = %v", res)
	}
	if !strings.Contains(stderr, "run completed") {
		t.Fatalf("run logs missing from stderr: %s", stderr)
	}
}

func TestRunReadsPayloadFromStdin(t *testing.T) {
	out, err := execute(t, `{"ticket_id":"missing"}`, "run", "--agent-id", "kall", "--store", "memory")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}
	if !strings.Contains(out, `"action": "no_ticket"`) {
		t.Fatalf("output = %s", out)
	}
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"missing agent flag", []string{"run", "--store", "memory", "--input-json", "{}"}, ExitUsage},
		{"unknown agent", []string{"run", "--agent-id", "billing", "--store", "memory", "--input-json", "{}"}, ExitUsage},
		{"bad json", []string{"run", "--agent-id", "triage", "--store", "memory", "--input-json", "{"}, ExitUsage},
		{"missing field", []string{"run-triage", "--store", "memory", "--content", "hi"}, ExitUsage},
		{"unknown flag", []string{"run", "--nope"}, ExitUsage},
		{"bad store", []string{"run-resolution", "--ticket-id", "x", "--store", "redis"}, ExitUsage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, "", tc.args...)
			if got := ExitCode(err); got != tc.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", err, got, tc.want)
			}
		})
	}

	if got := ExitCode(nil); got != ExitOK {
		t.Fatalf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(fmt.Errorf("wrap: %w", contractx.ErrPersistence)); got != ExitError {
		t.Fatalf("ExitCode(persistence) = %d", got)
	}
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tenant.yaml")
	body := `tenant_id: acme
name: Acme Ltd
profile:
  agent_display_name: Acme Helper
  tone: warm
  keywords: [fast, friendly]
  email_signature: "-- Acme"
  brand_kit:
    brand_name: Acme
brand_kit_text: Acme sells rockets.
knowledge:
  - doc_id: shipping
    content: |
      We ship worldwide.

      Returns within 30 days.
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	fx, err := loadFixtures(path, "")
	if err != nil {
		t.Fatalf("loadFixtures() error = %v", err)
	}
	want := contractx.TenantProfile{
		TenantID:    "acme",
		DisplayName: "Acme Helper",
		Tone:        "warm",
		Keywords:    []string{"fast", "friendly"},
		Signature:   "-- Acme",
		BrandKit:    map[string]any{"brand_name": "Acme"},
	}
	if diff := cmp.Diff(want, fx.Profile); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}

	fx, err = loadFixtures(path, "override")
	if err != nil || fx.TenantID != "override" || fx.Profile.TenantID != "override" {
		t.Fatalf("override = %+v, %v", fx, err)
	}

	if _, err := loadFixtures(filepath.Join(dir, "nope.yaml"), ""); err == nil {
		t.Fatal("missing file: error = nil")
	}
}

func TestSeedCmdKeepsFixtureTenant(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "seed.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", dbPath)
	t.Setenv("LLM_EMBEDDING_MODEL", "")

	fixtures := filepath.Join(dir, "acme.yaml")
	body := `tenant_id: acme
name: Acme Ltd
profile:
  agent_display_name: Acme Helper
`
	if err := os.WriteFile(fixtures, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "seed", "--fixtures", fixtures)
	if err != nil {
		t.Fatalf("seed error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "seeded tenant acme") {
		t.Fatalf("output = %s", out)
	}

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer st.Close()

	profile := st.LoadProfile(ctx, "acme")
	if profile == nil || profile.DisplayName != "Acme Helper" {
		t.Fatalf("acme profile = %+v", profile)
	}
	if p := st.LoadProfile(ctx, defaultTenantID); p != nil {
		t.Fatalf("%s seeded unexpectedly: %+v", defaultTenantID, p)
	}
}

func TestLoadFixturesDefaultTenant(t *testing.T) {
	fx, err := loadFixtures("", "")
	if err != nil || fx.TenantID != defaultTenantID || fx.Profile.TenantID != defaultTenantID {
		t.Fatalf("no fixtures = %+v, %v", fx, err)
	}

	path := filepath.Join(t.TempDir(), "anon.yaml")
	if err := os.WriteFile(path, []byte("name: Anonymous\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fx, err = loadFixtures(path, "")
	if err != nil || fx.TenantID != defaultTenantID || fx.Name != "Anonymous" {
		t.Fatalf("fixtures without tenant = %+v, %v", fx, err)
	}
}

type recordingSeed struct {
	tenants  []string
	profiles []contractx.TenantProfile
	chunks   []contractx.KBChunk
	failOn   string
}

func (r *recordingSeed) UpsertTenant(_ context.Context, tenantID, _ string) error {
	r.tenants = append(r.tenants, tenantID)
	return nil
}

func (r *recordingSeed) UpsertProfile(_ context.Context, p contractx.TenantProfile) error {
	r.profiles = append(r.profiles, p)
	return nil
}

func (r *recordingSeed) UpsertChunk(_ context.Context, _ string, c contractx.KBChunk) error {
	if r.failOn != "" && c.DocID == r.failOn {
		return memstore.ErrInjected
	}
	r.chunks = append(r.chunks, c)
	return nil
}

func TestSeedWritesTenantProfileAndChunks(t *testing.T) {
	dir := t.TempDir()
	kb := filepath.Join(dir, "faq.md")
	if err := os.WriteFile(kb, []byte("Opening hours 10-19.\n\nFree delivery in Bangkok."), 0o600); err != nil {
		t.Fatal(err)
	}

	fx := defaultFixtures("tenant_001")
	fx.Knowledge = []fixtureDoc{{DocID: "policy", Content: "No returns on custom sofas."}}

	target := &recordingSeed{}
	n, err := seed(context.Background(), target, fx, kb)
	if err != nil {
		t.Fatalf("seed() error = %v", err)
	}
	if diff := cmp.Diff([]string{"tenant_001"}, target.tenants); diff != "" {
		t.Fatalf("tenants mismatch (-want +got):\n%s", diff)
	}
	if len(target.profiles) != 1 || target.profiles[0].DisplayName != "MH Concierge" || target.profiles[0].TenantID != "tenant_001" {
		t.Fatalf("profiles = %+v", target.profiles)
	}
	if n != len(target.chunks) || n < 2 {
		t.Fatalf("chunks = %d (returned %d)", len(target.chunks), n)
	}
	if target.chunks[0].DocID != "policy" || target.chunks[len(target.chunks)-1].DocID != "faq" {
		t.Fatalf("chunk order = %+v", target.chunks)
	}

	_, err = seed(context.Background(), &recordingSeed{failOn: "policy"}, fx, "")
	if !errors.Is(err, memstore.ErrInjected) {
		t.Fatalf("seed() error = %v, want injected", err)
	}
}
