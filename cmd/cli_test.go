package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/tensorloom-cli/internal/query"
	"github.com/KaramelBytes/tensorloom-cli/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so values do not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and stdin, returning stdout.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := runCmd(t, stdin, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir and writes the given files into it.
func isolate(t *testing.T, files map[string]string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for name, body := range files {
		p := filepath.Join(home, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return home
}

const outlierCSV = "a,b\n1,2\n3,4\n5,6\n100,200\n"

func TestCLI_AnalyzeMarkdown(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	out := mustRun(t, "", "analyze", filepath.Join(home, "data.csv"), "--anomaly-threshold", "1.5", "--forecast", "a", "--horizon", "2")
	for _, want := range []string{"[TENSOR SUMMARY]", "Shape: [4, 2]", "[CORRELATIONS]", "row 3: a, b", "[FORECAST]", "next 2:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCLI_AnalyzeJSONToFile(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	dest := filepath.Join(home, "out", "report.json")
	out := mustRun(t, "", "--seed", "3", "analyze", filepath.Join(home, "data.csv"), "--format", "json", "--clusters", "2", "-o", dest)
	if !strings.Contains(out, "✓ Wrote analysis") {
		t.Fatalf("unexpected output: %s", out)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep struct {
		Shape            []int   `json:"shape"`
		AnomalyThreshold float64 `json:"anomalyThreshold"`
		Clusters         struct {
			K     int   `json:"k"`
			Sizes []int `json:"sizes"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.AnomalyThreshold != 2.5 {
		t.Fatalf("expected report threshold 2.5 by default, got %v", rep.AnomalyThreshold)
	}
	if rep.Clusters.K != 2 || rep.Clusters.Sizes[0]+rep.Clusters.Sizes[1] != 4 {
		t.Fatalf("unexpected clusters: %+v", rep.Clusters)
	}
}

func TestCLI_AnalyzeRejectsBadFormat(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	if _, err := runCmd(t, "", "analyze", filepath.Join(home, "data.csv"), "--format", "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestCLI_AnalyzeBatchOrderedOutput(t *testing.T) {
	home := isolate(t, map[string]string{
		"d1/metrics.csv": outlierCSV,
		"d2/metrics.csv": "a,b\n1,1\n2,2\n",
		"z.csv":          "x\n1\n2\n3\n",
	})
	out := mustRun(t, "", "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), filepath.Join(home, "z.csv"), "--concurrency", "3")
	i1 := strings.Index(out, "[1/3] metrics.csv")
	i2 := strings.Index(out, "[2/3] metrics.csv")
	i3 := strings.Index(out, "[3/3] z.csv")
	if i1 < 0 || i2 < 0 || i3 < 0 || !(i1 < i2 && i2 < i3) {
		t.Fatalf("reports not in input order:\n%s", out)
	}

	outDir := filepath.Join(home, "reports")
	mustRun(t, "", "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "-q")
	for _, name := range []string{"metrics.report.md", "metrics__2.report.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestCLI_AnalyzeBatchNoMatches(t *testing.T) {
	home := isolate(t, nil)
	if _, err := runCmd(t, "", "analyze-batch", filepath.Join(home, "*.csv")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}

func TestCLI_AskOneShotJSON(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	out := mustRun(t, "", "ask", filepath.Join(home, "data.csv"), "--json", "forecast", "b", "for", "the", "next", "2")
	var res query.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.Intent != "predict" || res.Field != "b" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.VisualData == nil || res.VisualData.Type != query.VisualPrediction || len(res.VisualData.Prediction.Predicted) != 2 {
		t.Fatalf("unexpected visual data: %+v", res.VisualData)
	}
}

func TestCLI_AskInteractiveWithTranscript(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	transcript := filepath.Join(home, "session.json")
	stdin := "give me an overview\n\nforecast nothing\ncluster into 2 groups\nexit\nsummary\n"
	out := mustRun(t, stdin, "--seed", "9", "ask", filepath.Join(home, "data.csv"), "--transcript", transcript)
	if !strings.Contains(out, "[summary] The dataset has 4 rows") {
		t.Fatalf("missing summary answer:\n%s", out)
	}
	if !strings.Contains(out, "[cluster] Identified 2 clusters") {
		t.Fatalf("missing cluster answer:\n%s", out)
	}
	s, err := session.Load(transcript)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	// "forecast nothing" still forecasts the first field; "summary" after exit is never read.
	if len(s.History) != 3 {
		t.Fatalf("expected 3 answers in transcript, got %d", len(s.History))
	}
}

func TestCLI_AskReportsQueryErrorsAndContinues(t *testing.T) {
	home := isolate(t, map[string]string{"names.csv": "name\nalice\nbob\n"})
	out := mustRun(t, "summary\noverview\n", "ask", filepath.Join(home, "names.csv"))
	if strings.Count(out, "✗") != 2 {
		t.Fatalf("expected two reported failures:\n%s", out)
	}
}

func TestCLI_AskUnknownNarrator(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	if _, err := runCmd(t, "", "ask", filepath.Join(home, "data.csv"), "--narrator", "nope", "summary"); err == nil {
		t.Fatalf("expected error for unknown narrator")
	}
}

func TestCLI_InspectYAML(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": "x,y,label\n\"1,000\",2,a\n3,4,b\n"})
	out := mustRun(t, "", "inspect", filepath.Join(home, "data.csv"), "--format", "yaml")
	for _, want := range []string{"shape:", "- 2", "dataType: float64", "fields:", "- y"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if _, err := runCmd(t, "", "inspect", filepath.Join(home, "data.csv"), "--format", "markdown"); err == nil {
		t.Fatalf("expected error for markdown inspect")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolate(t, nil)
	mustRun(t, "", "config", "set", "cluster_k", "5")
	mustRun(t, "", "config", "set", "api_key", "sk-1234567890")
	out := mustRun(t, "", "config", "show")
	if !strings.Contains(out, "cluster_k: 5") {
		t.Fatalf("expected persisted cluster_k:\n%s", out)
	}
	if !strings.Contains(out, "api_key: sk-****890") || strings.Contains(out, "1234567890") {
		t.Fatalf("api key not masked:\n%s", out)
	}
	if _, err := runCmd(t, "", "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestCLI_AskResumeContinuesTranscript(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	transcript := filepath.Join(home, "session.json")
	mustRun(t, "", "ask", filepath.Join(home, "data.csv"), "--transcript", transcript, "forecast", "a")

	out := mustRun(t, "", "ask", "--resume", transcript, "what", "about", "b")
	if !strings.Contains(out, "[predict] Forecast for b") {
		t.Fatalf("expected follow-up forecast on b:\n%s", out)
	}
	s, err := session.Load(transcript)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(s.History) != 2 || s.History[1].Field != "b" {
		t.Fatalf("transcript not updated in place: %+v", s.History)
	}

	if _, err := runCmd(t, "", "ask"); err == nil {
		t.Fatalf("expected error without a file or --resume")
	}
	if _, err := runCmd(t, "", "ask", "--resume", filepath.Join(home, "missing.json"), "summary"); err == nil {
		t.Fatalf("expected error for a missing transcript")
	}
}

func TestCLI_AskHugeNumbersDoNotStopTheLoop(t *testing.T) {
	home := isolate(t, map[string]string{"data.csv": outlierCSV})
	stdin := "predict a for the next 99999999999999\nmake 99999999999999 clusters\nsummary\n"
	out := mustRun(t, stdin, "ask", filepath.Join(home, "data.csv"))
	if !strings.Contains(out, "✗ predict: forecast horizon out of range") {
		t.Fatalf("expected horizon error:\n%s", out)
	}
	if !strings.Contains(out, "[cluster] Identified 4 clusters") {
		t.Fatalf("expected cluster count lowered to the row count:\n%s", out)
	}
	if !strings.Contains(out, "[summary] The dataset has 4 rows") {
		t.Fatalf("loop should continue after a failed question:\n%s", out)
	}
}
