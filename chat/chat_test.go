package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medivault-backend/analyzer"
	"medivault-backend/files"
	"medivault-backend/login"
	"medivault-backend/records"
)

// mockAI implements AIClient for testing prompt generation without calling the model.
type mockAI struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockAI) Complete(ctx context.Context, system, user string) (string, error) {
	m.lastSystem, m.lastUser = system, user
	return m.reply, m.err
}

func (m *mockAI) StreamMessage(ctx context.Context, system, user string) (<-chan string, error) {
	m.lastSystem, m.lastUser = system, user
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan string, 2)
	ch <- "Your trend "
	ch <- "looks stable."
	close(ch)
	return ch, nil
}

type memRecords struct {
	recs []records.Record
	err  error
}

func (m *memRecords) Get(ctx context.Context, id string) (*records.Record, error) {
	for _, r := range m.recs {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, m.err
}

func (m *memRecords) Recent(ctx context.Context, owner string, n int) ([]records.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []records.Record
	for _, r := range m.recs {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadDate.After(out[j].UploadDate) })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

type stubExtractor struct {
	text     string
	err      error
	lastPath string
}

func (s *stubExtractor) ExtractText(ctx context.Context, path, mediaType string) (string, error) {
	s.lastPath = path
	return s.text, s.err
}

func summaryWith(disease, med string) analyzer.Summary {
	s := analyzer.Summary{}
	if disease != "" {
		s["diseases"] = []any{map[string]any{"name": disease}}
	}
	if med != "" {
		s["medicines"] = []any{map[string]any{"name": med}}
	}
	return s
}

func TestBuildMemory(t *testing.T) {
	if got := BuildMemory(nil); got != "No previous medical records found." {
		t.Fatalf("empty memory: %q", got)
	}
	day := time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC)
	got := BuildMemory([]records.Record{
		{UploadDate: day, AISummary: summaryWith("Hypertension", "Amlodipine")},
		{UploadDate: day.AddDate(0, 0, 1), AISummary: analyzer.Summary{}},
		{UploadDate: day.AddDate(0, 0, 2), AISummary: analyzer.Summary{"clinicalAnalysis": "Stable."}},
	})
	want := "PATIENT HISTORY (Derived from uploaded files):\n" +
		"[Record 1 - 2025-12-20]: Found Hypertension. Meds: Amlodipine.\n" +
		"[Record 3 - 2025-12-22]: Found None. Meds: None.\n"
	if got != want {
		t.Fatalf("memory mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestAnswerContext_UsesTenMostRecentOldestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var recs []records.Record
	for i := 0; i < 12; i++ {
		recs = append(recs, records.Record{
			ID: string(rune('a' + i)), Owner: "a@x.com", UploadDate: base.AddDate(0, 0, i),
			AISummary: summaryWith("D"+string(rune('A'+i)), ""),
		})
	}
	recs = append(recs, records.Record{ID: "z", Owner: "b@x.com", UploadDate: base, AISummary: summaryWith("Other", "")})
	ai := &mockAI{reply: "Based on your history..."}
	a := NewAssistant(ai, &memRecords{recs: recs}, &stubExtractor{}, t.TempDir())

	if got := a.AnswerContext(context.Background(), "How am I doing?", "a@x.com"); got != "Based on your history..." {
		t.Fatalf("reply %q", got)
	}
	if strings.Count(ai.lastSystem, "[Record ") != 10 {
		t.Fatalf("expected 10 records in memory:\n%s", ai.lastSystem)
	}
	if strings.Contains(ai.lastSystem, "Found DA.") || strings.Contains(ai.lastSystem, "Found DB.") || strings.Contains(ai.lastSystem, "Other") {
		t.Fatalf("wrong records included:\n%s", ai.lastSystem)
	}
	if strings.Index(ai.lastSystem, "Found DC.") > strings.Index(ai.lastSystem, "Found DL.") {
		t.Fatalf("memory not oldest first:\n%s", ai.lastSystem)
	}
	if !strings.Contains(ai.lastSystem, "[Record 1 - 2025-01-03]: Found DC.") {
		t.Fatalf("first line wrong:\n%s", ai.lastSystem)
	}
	if ai.lastUser != "How am I doing?" {
		t.Fatalf("user turn %q", ai.lastUser)
	}
}

func TestAnswerContext_NoOwnerAndFailures(t *testing.T) {
	ai := &mockAI{reply: "Drink water."}
	a := NewAssistant(ai, &memRecords{}, &stubExtractor{}, t.TempDir())
	a.AnswerContext(context.Background(), "hi", "")
	if !strings.Contains(ai.lastSystem, "No previous medical records found.") {
		t.Fatalf("expected empty memory:\n%s", ai.lastSystem)
	}

	a.AI = &mockAI{err: errors.New("429")}
	if got := a.AnswerContext(context.Background(), "hi", "a@x.com"); got != "I'm having trouble accessing your history right now." {
		t.Fatalf("model failure reply %q", got)
	}
	a.AI = ai
	a.Records = &memRecords{err: errors.New("db down")}
	if got := a.AnswerContext(context.Background(), "hi", "a@x.com"); got != "I'm having trouble accessing your history right now." {
		t.Fatalf("history failure reply %q", got)
	}
}

func TestAnswerRecord_PathResolutionAndPrompt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1700000000000-cbc.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := records.Record{
		ID: "r1", Owner: "a@x.com", FileName: "cbc.pdf", FileType: "application/pdf",
		// Legacy row: no stored name, the URL carries it.
		FileURL: "http://localhost:5001/uploads/1700000000000-cbc.pdf",
	}
	ex := &stubExtractor{text: strings.Repeat("Hemoglobin low. ", 2000)}
	ai := &mockAI{reply: "Root cause: iron deficiency."}
	a := NewAssistant(ai, &memRecords{recs: []records.Record{rec}}, ex, dir)

	got := answerDocument(a, context.Background(), "r1", "Why am I tired?")
	if got != "Root cause: iron deficiency." {
		t.Fatalf("reply %q", got)
	}
	if ex.lastPath != filepath.Join(dir, "1700000000000-cbc.pdf") {
		t.Fatalf("resolved %q", ex.lastPath)
	}
	if !strings.Contains(ai.lastSystem, "Root Cause") || !strings.Contains(ai.lastSystem, "Next Steps") {
		t.Fatalf("system prompt: %q", ai.lastSystem)
	}
	if !strings.HasSuffix(ai.lastUser, "Question: Why am I tired?") {
		t.Fatalf("question missing: %q", ai.lastUser[len(ai.lastUser)-60:])
	}
	if body := strings.TrimPrefix(strings.Split(ai.lastUser, "\n\nQuestion:")[0], "Report:\n"); len([]rune(body)) != MaxDocumentChars {
		t.Fatalf("context not truncated to %d, got %d", MaxDocumentChars, len([]rune(body)))
	}
}

func TestAnswerRecord_Degrades(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "s.pdf"), []byte("%PDF"), 0o644)
	recs := &memRecords{recs: []records.Record{
		{ID: "gone", FileName: "missing.pdf", StoredFileName: "missing.pdf"},
		{ID: "scan", StoredFileName: "s.pdf", FileType: "application/pdf"},
	}}
	ctx := context.Background()

	a := NewAssistant(&mockAI{reply: "x"}, recs, &stubExtractor{err: files.ErrScannedPDF}, dir)
	if got := answerDocument(a, ctx, "nope", "q"); got != replyRecordNotFound {
		t.Errorf("unknown record: %q", got)
	}
	if got := answerDocument(a, ctx, "gone", "q"); got != replyFileMissing {
		t.Errorf("missing file: %q", got)
	}
	if got := answerDocument(a, ctx, "scan", "q"); got != replyUnreadable {
		t.Errorf("scanned: %q", got)
	}
	a.Extractor = &stubExtractor{text: "readable text"}
	a.AI = &mockAI{err: errors.New("timeout")}
	if got := answerDocument(a, ctx, "scan", "q"); got != replyDocumentFailed {
		t.Errorf("model failure: %q", got)
	}
}

// answerDocument runs the lookup and answer steps the document handler runs.
func answerDocument(a *Assistant, ctx context.Context, id, question string) string {
	rec, reply := a.FindRecord(ctx, id)
	if rec == nil {
		return reply
	}
	return a.AnswerRecord(ctx, rec, question)
}

func TestFindRecord_StoreError(t *testing.T) {
	a := NewAssistant(&mockAI{}, &memRecords{err: errors.New("db down")}, &stubExtractor{}, t.TempDir())
	rec, reply := a.FindRecord(context.Background(), "r1")
	if rec != nil || reply != replyDocumentFailed {
		t.Fatalf("got %v %q", rec, reply)
	}
}

func newRouter(a *Assistant) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(a).RegisterRoutes(r.Group("/api"))
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoints(t *testing.T) {
	ai := &mockAI{reply: "Hello!"}
	r := newRouter(NewAssistant(ai, &memRecords{}, &stubExtractor{}, t.TempDir()))

	rec := postJSON(r, "/api/chat", `{"message":"hi","userEmail":"a@x.com"}`)
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || rec.Code != http.StatusOK || resp.Reply != "Hello!" {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body.String())
	}
	if rec := postJSON(r, "/api/chat", `{"message":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty message: expected 400, got %d", rec.Code)
	}

	ai.err = errors.New("down")
	rec = postJSON(r, "/api/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "trouble accessing your history") {
		t.Fatalf("failure must still be 200 with apology: %d %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(r, "/api/chat-document", `{"recordId":"missing","question":"q"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "couldn't find that record") {
		t.Fatalf("document chat: %d %s", rec.Code, rec.Body.String())
	}
	if rec := postJSON(r, "/api/chat-document", `{"recordId":"r1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing question: expected 400, got %d", rec.Code)
	}
}

func TestChatStream(t *testing.T) {
	r := newRouter(NewAssistant(&mockAI{}, &memRecords{}, &stubExtractor{}, t.TempDir()))
	rec := postJSON(r, "/api/chat/stream", `{"message":"trend?"}`)
	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "data: Your trend \n\n") || !strings.Contains(body, "data: looks stable.\n\n") || !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Fatalf("unexpected stream:\n%s", body)
	}
}

func TestChatDocument_PatientCannotReadOthersRecord(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("%PDF"), 0o644)
	recs := &memRecords{recs: []records.Record{{ID: "rb", Owner: "b@x.com", StoredFileName: "b.pdf", FileType: "application/pdf"}}}
	ai := &mockAI{reply: "Your hemoglobin is low."}
	a := NewAssistant(ai, recs, &stubExtractor{text: "Hemoglobin 9 g/dL"}, dir)

	tokens := login.NewTokens("secret", time.Hour)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(a).RegisterRoutes(r.Group("/api", login.Identity(tokens, false)))

	ask := func(email, role string) *httptest.ResponseRecorder {
		tok, _, err := tokens.Issue(email, role)
		if err != nil {
			t.Fatal(err)
		}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat-document", strings.NewReader(`{"recordId":"rb","question":"Am I ok?"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := ask("a@x.com", "patient"); rec.Code != http.StatusForbidden {
		t.Fatalf("other patient: expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	if ai.lastUser != "" {
		t.Fatal("model must not see a refused record")
	}
	if rec := ask("b@x.com", "patient"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "hemoglobin is low") {
		t.Fatalf("owner: %d %s", rec.Code, rec.Body.String())
	}
	if rec := ask("dr@x.com", "doctor"); rec.Code != http.StatusOK {
		t.Fatalf("doctor: %d", rec.Code)
	}
}
