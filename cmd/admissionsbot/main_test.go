package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI serves embeddings and chat completions. Embeddings are one-hot on
// whether the text mentions a deadline; the chat reply echoes the prompt's data.
func fakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
				Model string   `json:"model"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			data := make([]map[string]any, len(req.Input))
			for i, in := range req.Input {
				v := []float64{0.1, 0}
				if strings.Contains(strings.ToLower(in), "deadline") {
					v[1] = 1
				}
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": v}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list", "data": data, "model": req.Model,
				"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
			})
		case "/chat/completions":
			var req struct {
				Model    string `json:"model"`
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			reply := "no data"
			if len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, "August 15") {
				reply = "The deadline is August 15."
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "chatcmpl-1", "object": "chat.completion", "created": 0, "model": req.Model,
				"choices": []map[string]any{{
					"index": 0, "finish_reason": "stop",
					"message": map[string]any{"role": "assistant", "content": reply},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func writeFixtures(t *testing.T, baseURL string) (cfgPath, faqPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`embedder:
  type: openai
  openai:
    base_url: %[1]s
vector_store:
  type: memory
chat:
  base_url: %[1]s
log:
  output: discard
`, baseURL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	faqPath = filepath.Join(dir, "faqs.json")
	faqs := `{"faqs":[
  {"question":"When is the deadline?","answer":"The application deadline for Fall is August 15.","category":"admissions"},
  {"question":"Is there a hostel?","answer":"Hostel rooms are limited.","category":"campus"}
]}`
	require.NoError(t, os.WriteFile(faqPath, []byte(faqs), 0o644))
	return cfgPath, faqPath
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestFAQsReportsIndexAndNamespace(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfgPath, faqPath := writeFixtures(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "ingest", "faqs", faqPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 documents\n")
	assert.Contains(t, out, "Documents upserted to index 'irfan-gpt-index' in namespace 'umt-faqs-namespace'\n")
}

func TestIngestCustomNamespace(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfgPath, faqPath := writeFixtures(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "ingest", "faqs", "--namespace", "scratch", faqPath)
	require.NoError(t, err)
	assert.Contains(t, out, "in namespace 'scratch'")
}

func TestIngestMissingFileFails(t *testing.T) {
	cfgPath, _ := writeFixtures(t, "http://127.0.0.1:1")
	_, err := run(t, "", "--config", cfgPath, "ingest", "programs", filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestAskPromptsAndAnswers(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfgPath, faqPath := writeFixtures(t, srv.URL)

	out, err := run(t, "What is the deadline?\n", "--config", cfgPath, "ask", "--load-faqs", faqPath)
	require.NoError(t, err)
	assert.Equal(t, "Enter your question: Response: The deadline is August 15.\n", out)
}

func TestAskWithQuestionFlag(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfgPath, faqPath := writeFixtures(t, srv.URL)

	out, err := run(t, "", "--config", cfgPath, "ask", "--load-faqs", faqPath, "-q", "deadline?")
	require.NoError(t, err)
	assert.Equal(t, "Response: The deadline is August 15.\n", out)
}

func TestAskWithoutKeyFails(t *testing.T) {
	srv := fakeOpenAI(t)
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "")
	cfgPath, _ := writeFixtures(t, srv.URL)

	_, err := run(t, "", "--config", cfgPath, "ask", "-q", "deadline?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")
}
