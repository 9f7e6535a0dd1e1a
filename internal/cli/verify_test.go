package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/qaverify/internal/apperr"
	"github.com/ppiankov/qaverify/internal/checkpoint"
	"github.com/ppiankov/qaverify/internal/model"
	"github.com/ppiankov/qaverify/internal/throttle"
	"github.com/ppiankov/qaverify/internal/util"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWikipedia serves search, summary, robots.txt and an Ollama endpoint
func fakeWikipedia(t *testing.T, robots string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		title := "Paris"
		if strings.Contains(r.URL.Query().Get("srsearch"), "Atlantis") {
			_, _ = w.Write([]byte(`{"query":{"search":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"query":{"search":[{"title":"` + title + `","pageid":1}]}}`))
	})
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"Paris","extract":"Paris is the capital of France.",` +
			`"content_urls":{"desktop":{"page":"https://en.wikipedia.org/wiki/Paris"}}}`))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if robots == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(robots))
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1"}]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "llama3.1",
			"response": `{"verdict":"UNSUPPORTED","confidence":0.8,"quote":"Paris is the capital of France."}`,
			"done":     true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server) *model.Config {
	t.Helper()
	dir := t.TempDir()

	input := filepath.Join(dir, "questions.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"id,question,Num answers,Answers\n"+
			"q1,What is the capital of France?,2,Paris; Lyon\n"+
			"q2,Where is Atlantis?,1,Atlantis\n"+
			"q3,Unanswered?,0,\n"), 0644))

	cfg := model.DefaultConfig()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "outputs", "results.csv")
	cfg.Evidence.Delay = 0
	cfg.Evidence.SearchURL = srv.URL + "/w/api.php"
	cfg.Evidence.SummaryURL = srv.URL + "/api/rest_v1/page/summary/"
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.HTTP.Timeout = 5 * time.Second
	return cfg
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestVerify_HeuristicEndToEnd(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)

	require.NoError(t, verify(context.Background(), cfg, discardLogger()))

	rows := readOutput(t, cfg.Output)
	require.Len(t, rows, 5)
	assert.Equal(t, model.BaseColumns, rows[0])

	byAnswer := make(map[string][]string)
	for _, r := range rows[1:] {
		byAnswer[r[3]] = r
	}
	assert.Equal(t, "supported", byAnswer["Paris"][4])
	assert.Equal(t, "0.700", byAnswer["Paris"][5])
	assert.Equal(t, "https://en.wikipedia.org/wiki/Paris", byAnswer["Paris"][6])
	assert.Equal(t, "unknown", byAnswer["Lyon"][4])
	assert.Equal(t, "0.300", byAnswer["Lyon"][5])
	assert.Equal(t, "unknown", byAnswer["Atlantis"][4])
	assert.Equal(t, "0.000", byAnswer["Atlantis"][5])
	assert.Equal(t, "", byAnswer[""][6])

	// second run is a no-op
	before, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	require.NoError(t, verify(context.Background(), cfg, discardLogger()))
	after, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerify_OracleEndToEnd(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)
	cfg.Judge.Strategy = model.JudgeOracle
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.1"
	cfg.LLM.BaseURL = srv.URL
	require.NoError(t, checkConfig(cfg))

	require.NoError(t, verify(context.Background(), cfg, discardLogger()))

	rows := readOutput(t, cfg.Output)
	require.Len(t, rows, 5)
	assert.Equal(t, model.Columns(true), rows[0])
	assert.Equal(t, "unsupported", rows[1][4])
	assert.Equal(t, "0.800", rows[1][5])
	assert.Contains(t, rows[1][8], "UNSUPPORTED")
}

func TestVerify_LockedOutput(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)

	holder := checkpoint.NewStore(cfg.Output, false)
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	err := verify(context.Background(), cfg, discardLogger())
	require.ErrorIs(t, err, checkpoint.ErrLocked)
	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerify_MissingInputColumn(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)
	require.NoError(t, os.WriteFile(cfg.Input, []byte("id,question\nq1,x\n"), 0644))

	err := verify(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Answers")
}

func TestVerify_RobotsCrawlDelay(t *testing.T) {
	srv := fakeWikipedia(t, "User-agent: *\nCrawl-delay: 2\n")
	cfg := testConfig(t, srv)

	delay, err := robotsDelay(context.Background(), util.NewRobotsChecker(cfg.HTTP.UserAgent, srv.Client()),
		cfg.Evidence, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, delay)
}

func TestVerify_RobotsDisallowIsOnlyLogged(t *testing.T) {
	srv := fakeWikipedia(t, "User-agent: *\nDisallow: /w/\nDisallow: /api/\nCrawl-delay: 1\n")
	cfg := testConfig(t, srv)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	delay, err := robotsDelay(context.Background(), util.NewRobotsChecker(cfg.HTTP.UserAgent, srv.Client()),
		cfg.Evidence, logger)
	require.NoError(t, err)
	assert.Equal(t, time.Second, delay)
	assert.Contains(t, logs.String(), "robots.txt disallows")
	assert.Contains(t, logs.String(), "/w/api.php")
}

func TestVerify_OraclePreflight(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)
	cfg.Judge.Strategy = model.JudgeOracle
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.1"
	cfg.LLM.BaseURL = srv.URL
	cfg.LLM.Preflight = true

	require.NoError(t, verify(context.Background(), cfg, discardLogger()))
	assert.Len(t, readOutput(t, cfg.Output), 5)
}

func TestVerify_OraclePreflightUnreachable(t *testing.T) {
	srv := fakeWikipedia(t, "")
	cfg := testConfig(t, srv)
	cfg.Judge.Strategy = model.JudgeOracle
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Model = "llama3.1"
	cfg.LLM.BaseURL = srv.URL + "/nowhere"
	cfg.LLM.Preflight = true

	err := verify(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.True(t, apperr.IsConfiguration(err))
	assert.Contains(t, err.Error(), "not reachable")

	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr), "no output before the oracle is confirmed")
}

func TestNewJudge_UsesProviderDefaultModel(t *testing.T) {
	var sentModel string
	anthropic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		sentModel = body.Model
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":    "message",
			"model":   body.Model,
			"content": []map[string]string{{"type": "text", "text": `{"verdict":"SUPPORTED","confidence":0.9}`}},
		})
	}))
	defer anthropic.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"input: in.csv\njudge:\n  strategy: oracle\nllm:\n  provider: anthropic\n  base_url: "+anthropic.URL+"\n"), 0644))
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	oldCfg, oldEnv := cfgFile, envFile
	cfgFile, envFile = path, ""
	defer func() { cfgFile, envFile = oldCfg, oldEnv }()

	initConfig()
	cfg, err := loadConfig()
	require.NoError(t, err)
	require.NoError(t, checkConfig(cfg))
	assert.Empty(t, cfg.LLM.Model)

	j, err := newJudge(context.Background(), cfg, throttle.NewLimiter(0, 1))
	require.NoError(t, err)

	got, err := j.Judge(context.Background(), "What is the capital of France?", "Paris",
		model.Evidence{URL: "https://en.wikipedia.org/wiki/Paris", Text: "Paris is the capital of France."})
	require.NoError(t, err)
	assert.Equal(t, model.VerdictSupported, got.Verdict)
	assert.Equal(t, "claude-3-5-haiku-20241022", sentModel)
}

func TestVerify_RobotsKeepsLargerConfiguredDelay(t *testing.T) {
	srv := fakeWikipedia(t, "User-agent: *\nCrawl-delay: 1\n")
	cfg := testConfig(t, srv)
	cfg.Evidence.Delay = 3 * time.Second

	delay, err := robotsDelay(context.Background(), util.NewRobotsChecker(cfg.HTTP.UserAgent, srv.Client()),
		cfg.Evidence, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, delay)
}
