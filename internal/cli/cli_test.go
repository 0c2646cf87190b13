package cli

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle/remote"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
)

func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	text := fmt.Sprintf(`log_level: error
log_format: text
feed: {}
store:
  driver: sqlite
  dsn: %s
report:
  dir: %s
  plots: true
%s`, filepath.Join(dir, "runs.db"), filepath.Join(dir, "out"), extra)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunHistoryPlot(t *testing.T) {
	cfgPath, dir := writeConfig(t, "")

	out, err := execute(t, "run", "--config", cfgPath, "--session-id", "design-cli")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "design-cli") || !strings.Contains(out, string(sizing.StatusConverged)) {
		t.Fatalf("unexpected run output:\n%s", out)
	}
	charts, err := filepath.Glob(filepath.Join(dir, "out", "design-cli", "*.png"))
	if err != nil || len(charts) == 0 {
		t.Fatalf("expected charts to be written, got %v (%v)", charts, err)
	}

	out, err = execute(t, "history", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "design-cli") || !strings.Contains(out, "diameter=7.25") {
		t.Fatalf("unexpected history list:\n%s", out)
	}

	out, err = execute(t, "history", "show", "design-cli", "--stage", sizing.StageDual, "--config", cfgPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// session line, header, 6 dual iterations
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d:\n%s", len(lines), out)
	}

	plotDir := filepath.Join(dir, "replot")
	out, err = execute(t, "plot", "design-cli", "--out", plotDir, "--config", cfgPath)
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if got := strings.Count(out, ".png"); got != len(charts) {
		t.Fatalf("expected %d replotted charts, got %d:\n%s", len(charts), got, out)
	}

	if _, err := execute(t, "history", "show", "missing", "--config", cfgPath); err == nil {
		t.Fatalf("expected error for unknown session")
	}
	if _, err := execute(t, "run", "--config", cfgPath, "--session-id", "design-cli"); err == nil {
		t.Fatalf("expected duplicate session error")
	}
}

func TestHistoryListEmpty(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")
	out, err := execute(t, "history", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, msgNoSessions) {
		t.Fatalf("expected empty message, got:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	cfgPath, _ := writeConfig(t, "height_sweep: {}\nmake_up: {}\n")
	out, err := execute(t, "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	makeUp := fmt.Sprintf("%s: %s (2 inputs, 2 derived)", sizing.StageTopology, sizing.StepMakeUp)
	for _, want := range []string{sizing.StageSolventSweep, sizing.StageHeightSweep, makeUp, sizing.StageRecycle, "configuration ok"} {
		if !strings.Contains(out, want) {
			t.Fatalf("validate output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "validate", "--print", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate --print: %v", err)
	}
	if _, err := config.ParseConfigYAMLString(out); err != nil {
		t.Fatalf("printed config does not parse: %v\n%s", err, out)
	}

	bad, _ := writeConfig(t, "solvent_factor: -1\n")
	if _, err := execute(t, "validate", "--config", bad); err == nil {
		t.Fatalf("expected invalid config error")
	}
}

func TestRunStrictFlag(t *testing.T) {
	cfgPath, _ := writeConfig(t, "dual:\n  max_iterations: 2\n")
	if _, err := execute(t, "run", "--config", cfgPath, "--no-plots"); err != nil {
		t.Fatalf("lenient run should finish, got %v", err)
	}
	_, err := execute(t, "run", "--config", cfgPath, "--no-plots", "--strict")
	if !sizing.IsExhausted(err) {
		t.Fatalf("expected exhausted error in strict mode, got %v", err)
	}
}

func TestStopReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("dual: %w", sizing.ErrSearchExhausted), "exhausted"},
		{fmt.Errorf("dual: %w", sizing.ErrSearchStalled), "stalled"},
		{&sizing.StageError{Stage: sizing.StageDual, Err: oracle.ErrOracleTimeout}, "oracle"},
		{&sizing.StageError{Stage: sizing.StageDual, Err: oracle.ErrOracleUnavailable}, "oracle"},
		{fmt.Errorf("run: %w", context.Canceled), "cancelled"},
		{oracle.ErrOutputUnavailable, "failed"},
	}
	for _, tt := range tests {
		if got := stopReason(tt.err); got != tt.want {
			t.Fatalf("stopReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRunRemoteBackend(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfgPath, _ := writeConfig(t, fmt.Sprintf("oracle:\n  backend: remote\n  address: %s\n  eval_timeout: 1m\n", lis.Addr()))
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	model := oracle.NewAbsorberSurrogate(cfg.Paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(sizing.StepInputs(cfg)))
	srv := grpc.NewServer()
	remote.RegisterOracleServer(srv, remote.NewServer(model))
	go srv.Serve(lis)
	defer srv.Stop()

	out, err := execute(t, "run", "--config", cfgPath, "--no-plots", "--session-id", "design-remote")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "design-remote") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if model.Evaluations() == 0 {
		t.Fatalf("expected evaluations to reach the remote model")
	}
}

func TestRunRemoteUnreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	cfgPath, _ := writeConfig(t, fmt.Sprintf("oracle:\n  backend: remote\n  address: %s\n  connect: {attempts: 2, backoff: constant, base_ms: 1}\n", addr))
	_, err = execute(t, "run", "--config", cfgPath, "--no-plots")
	if err == nil || !strings.Contains(err.Error(), oracle.ErrOracleUnavailable.Error()) {
		t.Fatalf("expected unavailable oracle error, got %v", err)
	}
}
