package share

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"medivault-backend/accounts"
	"medivault-backend/analyzer"
	"medivault-backend/records"
)

type memLinks struct {
	mu    sync.Mutex
	links map[string]Link
}

func (m *memLinks) Create(ctx context.Context, l *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.Token] = *l
	return nil
}

func (m *memLinks) GetByToken(ctx context.Context, token string) (*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[token]; ok {
		return &l, nil
	}
	return nil, nil
}

type memAccounts struct{ list []*accounts.Account }

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	for _, a := range m.list {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*accounts.Account, error) {
	for _, a := range m.list {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

type memRecords struct{ recs []records.Record }

func (m *memRecords) List(ctx context.Context, owner string) ([]records.Record, error) {
	var out []records.Record
	for _, r := range m.recs {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	r        *gin.Engine
	patient  *accounts.Account
	clock    time.Time
	accounts *memAccounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{clock: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	f.patient = &accounts.Account{ID: "p1", Email: "p@x.com", Name: "Kavya Suma", Role: accounts.RolePatient, BloodGroup: "B+", Allergies: "None"}
	f.accounts = &memAccounts{list: []*accounts.Account{
		f.patient,
		{ID: "d1", Email: "d@x.com", Name: "Dr. Ananya", Role: accounts.RoleDoctor},
	}}
	recs := &memRecords{recs: []records.Record{
		{ID: "r1", Owner: "p@x.com", FileName: "cbc.pdf", FileURL: "http://localhost:5001/uploads/cbc.pdf", AISummary: analyzer.Summary{}},
		{ID: "r2", Owner: "other@x.com", FileName: "x.pdf", AISummary: analyzer.Summary{}},
	}}
	f.svc = NewService(&memLinks{links: map[string]Link{}}, f.accounts, recs, 0)
	f.svc.Now = func() time.Time { return f.clock }

	f.r = gin.New()
	h := NewHandler(f.svc, "localhost:5001")
	h.RegisterRoutes(f.r.Group("/api"))
	h.RegisterPublicRoutes(f.r.Group("/api"))
	return f
}

func (f *fixture) issue(t *testing.T, email string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/share", strings.NewReader(`{"patientEmail":"`+email+`"}`))
	req.Header.Set("Content-Type", "application/json")
	f.r.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) redeem(token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/share/"+token, nil)
	req.Host = "10.0.0.7:5001"
	f.r.ServeHTTP(rec, req)
	return rec
}

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestIssueAndRedeem(t *testing.T) {
	f := newFixture(t)
	rec := f.issue(t, "p@x.com")
	if rec.Code != http.StatusOK {
		t.Fatalf("issue: %d %s", rec.Code, rec.Body.String())
	}
	var issued struct {
		Success   bool      `json:"success"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
		t.Fatal(err)
	}
	if !issued.Success || !hex32.MatchString(issued.Token) {
		t.Fatalf("bad token %q", issued.Token)
	}
	if want := f.clock.Add(15 * time.Minute); !issued.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt %s, want %s", issued.ExpiresAt, want)
	}

	// Profile edits after issuance must show up at redemption.
	f.patient.Allergies = "Penicillin"
	f.clock = f.clock.Add(5 * time.Minute)

	rec = f.redeem(issued.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: %d %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Success       bool             `json:"success"`
		PatientName   string           `json:"patientName"`
		PatientValues PatientValues    `json:"patientValues"`
		Records       []records.Record `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.PatientName != "Kavya Suma" || got.PatientValues.Allergies != "Penicillin" || got.PatientValues.BloodGroup != "B+" {
		t.Fatalf("unexpected patient data %+v", got)
	}
	if len(got.Records) != 1 || got.Records[0].ID != "r1" {
		t.Fatalf("records: %+v", got.Records)
	}
	if got.Records[0].FileURL != "http://10.0.0.7:5001/uploads/cbc.pdf" {
		t.Fatalf("file url not rewritten: %s", got.Records[0].FileURL)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	f := newFixture(t)
	rec := f.redeem("0123456789abcdef0123456789abcdef")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "Invalid link") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "patientName") {
		t.Fatalf("patient data leaked")
	}
}

func TestRedeemExpired(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.Issue(context.Background(), "p@x.com")
	if err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(15*time.Minute + time.Second)
	rec := f.redeem(l.Token)
	if rec.Code != http.StatusGone || !strings.Contains(rec.Body.String(), "expired") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestIssueUnknownOrNonPatient(t *testing.T) {
	f := newFixture(t)
	if rec := f.issue(t, "nobody@x.com"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown patient: %d", rec.Code)
	}
	if rec := f.issue(t, "d@x.com"); rec.Code != http.StatusNotFound {
		t.Fatalf("doctor account: %d", rec.Code)
	}
	if rec := f.issue(t, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty email: %d", rec.Code)
	}
}

func TestRedeemPatientGone(t *testing.T) {
	f := newFixture(t)
	l, _ := f.svc.Issue(context.Background(), "p@x.com")
	f.accounts.list = f.accounts.list[1:]
	if rec := f.redeem(l.Token); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil || !hex32.MatchString(tok) || seen[tok] {
			t.Fatalf("bad token %q err=%v", tok, err)
		}
		seen[tok] = true
	}
}
