package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"receiptbook/internal/core"
	"receiptbook/internal/services"
	"receiptbook/internal/session"
	"receiptbook/internal/sheets/memory"
)

type stubExtractor struct {
	raw *core.RawExtraction
	err error
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte, _ string) (*core.RawExtraction, error) {
	return s.raw, s.err
}

func newTestServer(t *testing.T, extractor services.Extractor) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	sessions := session.NewManager(time.Hour)

	receipts := services.NewReceiptService(extractor, store, nil)
	dashboard := services.NewDashboardService(store, nil)
	accounts := services.NewAccountService(store, store, sessions, nil, nil, nil, "admin")

	return NewServer(":0", receipts, dashboard, accounts, sessions), store
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, s *Server, username, password string) string {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/auth/register", "", registerRequest{Username: username, Password: password})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/auth/login", "", loginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected session token")
	}
	return resp.Token
}

func TestRegisterLoginSaveDashboard(t *testing.T) {
	s, _ := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	qty, amt := int64(2), int64(45)
	rec := doJSON(t, s, http.MethodPost, "/receipts", token, saveRequest{Drafts: []core.DraftRow{
		{Date: "2024-03-18", Name: "Milk", Quantity: &qty, Category: "Food", Amount: &amt},
		{Date: "2024-03-18", Name: "", Quantity: &qty, Category: "Food", Amount: &amt},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	var saved saveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	if saved.Saved != 1 || len(saved.Rejected) != 1 {
		t.Errorf("save = %+v, want 1 saved 1 rejected", saved)
	}

	rec = doJSON(t, s, http.MethodGet, "/dashboard", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rec.Code, rec.Body.String())
	}

	var dash dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dash.Total != 45 {
		t.Errorf("total = %d, want 45", dash.Total)
	}
	if dash.MonthlySums["2024-03"] != 45 {
		t.Errorf("monthly sum = %d, want 45", dash.MonthlySums["2024-03"])
	}
	if len(dash.Items) != 1 {
		t.Errorf("items = %d, want 1", len(dash.Items))
	}
}

func TestSaveNonNumericAmountRejectsOnlyThatRow(t *testing.T) {
	s, store := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	body := json.RawMessage(`{"drafts":[
		{"date":"2024-03-18","name":"Milk","quantity":2,"category":"Food","amount":45},
		{"date":"2024-03-18","name":"Gum","quantity":1,"category":"Food","amount":"abc"}
	]}`)
	rec := doJSON(t, s, http.MethodPost, "/receipts", token, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	var saved saveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode save response: %v", err)
	}
	if saved.Saved != 1 || len(saved.Rejected) != 1 {
		t.Fatalf("save = %+v, want 1 saved 1 rejected", saved)
	}
	if saved.Rejected[0].Name != "Gum" {
		t.Errorf("rejected row = %+v, want the non-numeric amount row", saved.Rejected[0])
	}
	if store.RowCount() != 1 {
		t.Errorf("store rows = %d, want 1", store.RowCount())
	}
}

func TestDashboardRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/dashboard", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	s, _ := newTestServer(t, nil)
	registerAndLogin(t, s, "mario", "secret")

	rec := doJSON(t, s, http.MethodPost, "/auth/login", "", loginRequest{Username: "mario", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s, _ := newTestServer(t, nil)
	registerAndLogin(t, s, "mario", "secret")

	rec := doJSON(t, s, http.MethodPost, "/auth/register", "", registerRequest{Username: "MARIO", Password: "x"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubExtractor{raw: &core.RawExtraction{
		InvoiceDate: "2024-03-18",
		Items: []core.RawItem{
			{Name: "Milk", Quantity: float64(1), Category: "Food", Amount: float64(45)},
		},
	}})
	token := registerAndLogin(t, s, "mario", "secret")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("receipt", "receipt.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(part, "fake image bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/receipts/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("extract status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp extractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode extract response: %v", err)
	}
	if len(resp.Drafts) != 1 || resp.Drafts[0].Name != "Milk" {
		t.Errorf("drafts = %+v, want one Milk draft", resp.Drafts)
	}
}

func TestExtractFailureFallsBackToPlaceholderDraft(t *testing.T) {
	s, _ := newTestServer(t, &stubExtractor{err: core.ErrExtractionFailed})
	token := registerAndLogin(t, s, "mario", "secret")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("receipt", "receipt.png")
	fmt.Fprint(part, "fake image bytes")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/receipts/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a placeholder draft", rec.Code)
	}

	var resp extractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode extract response: %v", err)
	}
	if len(resp.Drafts) != 1 {
		t.Fatalf("drafts = %d, want 1 placeholder", len(resp.Drafts))
	}
	d := resp.Drafts[0]
	if d.Name != "" || d.Category != core.PlaceholderCategory {
		t.Errorf("unexpected placeholder draft %+v", d)
	}
	if d.Amount == nil || *d.Amount != 0 {
		t.Errorf("placeholder amount = %v, want 0", d.Amount)
	}
}

func TestCategoriesRejectsBadMonth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	rec := doJSON(t, s, http.MethodGet, "/dashboard/categories?month=March", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPurgeAccountEndpoint(t *testing.T) {
	s, store := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	qty, amt := int64(1), int64(45)
	rec := doJSON(t, s, http.MethodPost, "/receipts", token, saveRequest{Drafts: []core.DraftRow{
		{Date: "2024-03-18", Name: "Milk", Quantity: &qty, Category: "Food", Amount: &amt},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/account", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.RowCount() != 0 {
		t.Errorf("rows = %d, want 0 after purge", store.RowCount())
	}

	// the session died with the account
	rec = doJSON(t, s, http.MethodGet, "/dashboard", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 after purge", rec.Code)
	}
}

// loginAdmin seeds the reserved admin credential directly, since
// registration refuses the admin name, and logs it in.
func loginAdmin(t *testing.T, s *Server, store *memory.Store) string {
	t.Helper()

	err := store.AppendUser(context.Background(), core.User{
		Username:       "admin",
		HashedPassword: services.HashPassword("adminpw"),
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	rec := doJSON(t, s, http.MethodPost, "/auth/login", "", loginRequest{Username: "admin", Password: "adminpw"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestPruneRequiresAdmin(t *testing.T) {
	s, store := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	rec := doJSON(t, s, http.MethodPost, "/maintenance/prune", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin prune status = %d, want 403", rec.Code)
	}

	adminToken := loginAdmin(t, s, store)
	rec = doJSON(t, s, http.MethodPost, "/maintenance/prune", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin prune status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminPurgeNamedUser(t *testing.T) {
	s, store := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	qty, amt := int64(1), int64(45)
	rec := doJSON(t, s, http.MethodPost, "/receipts", token, saveRequest{Drafts: []core.DraftRow{
		{Date: "2024-03-18", Name: "Milk", Quantity: &qty, Category: "Food", Amount: &amt},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	adminToken := loginAdmin(t, s, store)

	// Only the admin may purge another account.
	rec = doJSON(t, s, http.MethodPost, "/admin/purge", token, adminPurgeRequest{Username: "mario"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin purge status = %d, want 403", rec.Code)
	}

	// The admin account itself is not purgeable.
	rec = doJSON(t, s, http.MethodPost, "/admin/purge", adminToken, adminPurgeRequest{Username: "Admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("admin self-purge status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/admin/purge", adminToken, adminPurgeRequest{Username: "mario"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin purge status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.RowCount() != 0 {
		t.Errorf("rows = %d, want 0 after admin purge", store.RowCount())
	}

	rec = doJSON(t, s, http.MethodGet, "/dashboard", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("purged user's session status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/admin/purge", adminToken, adminPurgeRequest{Username: "mario"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("repeat purge status = %d, want 404", rec.Code)
	}
}

func TestStoreOfflineMapsToServiceUnavailable(t *testing.T) {
	s, store := newTestServer(t, nil)
	token := registerAndLogin(t, s, "mario", "secret")

	store.SetOffline(true)

	rec := doJSON(t, s, http.MethodGet, "/dashboard", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "ok") && !strings.Contains(rec.Body.String(), "ready") {
			t.Errorf("%s body = %q", path, rec.Body.String())
		}
	}
}
