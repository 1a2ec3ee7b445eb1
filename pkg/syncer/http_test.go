package syncer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gochippr/backend/pkg/config"
	"github.com/gochippr/backend/pkg/provider"
)

func newSyncTestServer(engine *Engine) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, engine, zap.NewNop())
	return r
}

func TestSyncHTTP_MissingUserHeader_ReturnsUnauthorized(t *testing.T) {
	engine := NewEngine(&MockProviderClient{}, newMemStore(), zap.NewNop(), config.SyncConfig{})
	handler := newSyncTestServer(engine)

	req := httptest.NewRequest(http.MethodPost, "/provider/sync", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	var got struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	if got.Error != "X-User-ID header required" {
		t.Fatalf("unexpected error message %q", got.Error)
	}
}

func TestSyncHTTP_MalformedUserHeader_ReturnsUnauthorized(t *testing.T) {
	engine := NewEngine(&MockProviderClient{}, newMemStore(), zap.NewNop(), config.SyncConfig{})
	handler := newSyncTestServer(engine)

	req := httptest.NewRequest(http.MethodPost, "/provider/sync", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestSyncHTTP_ReportsSummariesAndErrors(t *testing.T) {
	userID := uuid.New()
	broken := newTestItem(userID, "item-broken")
	healthy := newTestItem(userID, "item-healthy")
	store := newMemStore(broken, healthy)

	client := &MockProviderClient{
		ListAccountsFunc: func(ctx context.Context, uid uuid.UUID, itemID string) ([]provider.Account, error) {
			if itemID == "item-broken" {
				return nil, &provider.APIError{Code: "ITEM_LOGIN_REQUIRED", Message: "relink required"}
			}
			return testAccounts()[:1], nil
		},
		FetchDeltaPageFunc: func(ctx context.Context, uid uuid.UUID, itemID string, cursor *string) (*provider.DeltaPage, error) {
			return &provider.DeltaPage{
				Added:      []provider.Transaction{{TransactionID: "t1", AccountID: "acc-1", Amount: 3.50}},
				NextCursor: "c1",
			}, nil
		},
	}

	engine := NewEngine(client, store, zap.NewNop(), config.SyncConfig{})
	handler := newSyncTestServer(engine)

	req := httptest.NewRequest(http.MethodPost, "/provider/sync", nil)
	req.Header.Set("X-User-ID", userID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var got SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}

	if len(got.Items) != 2 {
		t.Fatalf("expected 2 item summaries, got %d", len(got.Items))
	}
	if got.Items[0].ErrorCode != ErrCodeAccountsGetFailed {
		t.Errorf("expected first item to fail with %s, got %q", ErrCodeAccountsGetFailed, got.Items[0].ErrorCode)
	}
	if got.Items[1].TxAdded != 1 {
		t.Errorf("expected second item to add 1 transaction, got %d", got.Items[1].TxAdded)
	}

	if len(got.Errors) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(got.Errors))
	}
	if got.Errors[0].ItemExternalID != "item-broken" || got.Errors[0].Code != ErrCodeAccountsGetFailed {
		t.Errorf("unexpected error entry %+v", got.Errors[0])
	}
	if got.FinishedAt.Before(got.StartedAt) {
		t.Error("finished_at precedes started_at")
	}
}

func TestSyncHTTP_NoItems_ReturnsEmptyLists(t *testing.T) {
	engine := NewEngine(&MockProviderClient{}, newMemStore(), zap.NewNop(), config.SyncConfig{})
	handler := newSyncTestServer(engine)

	req := httptest.NewRequest(http.MethodPost, "/provider/sync", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got SyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	if len(got.Items) != 0 || len(got.Errors) != 0 {
		t.Errorf("expected empty lists, got %d items %d errors", len(got.Items), len(got.Errors))
	}
}
