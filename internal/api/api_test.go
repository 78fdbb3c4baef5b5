package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/domain"
	"github.com/greenridge/replen/internal/service"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		App: config.AppConfig{ReportWindowDays: 28, PODestination: domain.LocationJasper, Workers: 1},
		Rules: domain.RuleSet{
			Cannabis:  domain.StatusRules{HotVelocity: 2.0, ReorderPoint: 2.5, TargetWOS: 4.0, DeadWOS: 26, DeadOnHand: 5, GoodVelocityMultiplier: 0.25},
			Accessory: domain.StatusRules{HotVelocity: 0.5, ReorderPoint: 4.0, TargetWOS: 8.0, DeadWOS: 52, DeadOnHand: 3, GoodVelocityMultiplier: 0.25},
		},
		Columns: config.ColumnMap{
			SKU:          "SKU",
			InventorySKU: "SKU",
			Description:  "Product Name",
			QtySold:      "Quantity",
			Location:     "Location",
			LastSale:     "Last Sale",
		},
	}
	services := &Services{
		Analysis: service.NewAnalysisService(cfg, nil),
		History:  service.NewHistoryService(nil, config.HistoryConfig{WindowWeeks: 4}, config.ColumnMap{}, nil),
	}
	return NewRouter(services, nil)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestLatestWithoutRun(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("latest status = %d, want 404 before any run", w.Code)
	}
}

func TestRunRejectsIncompleteBody(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/run", strings.NewReader(`{"sales":"/tmp/sales.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("run status = %d, want 400 without inventory path", w.Code)
	}
}

// writeRunFixtures lays down a one-SKU inventory and sales extract and
// returns the run request body for them.
func writeRunFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	inventory := filepath.Join(dir, "inventory.csv")
	if err := os.WriteFile(inventory, []byte("SKU,Product Name,Hill Sales Floor\nCNB-1,Blue Dream 3.5g,3\n"), 0o644); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	sales := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(sales, []byte("SKU,Location,Quantity\nCNB-1,Hill,56\n"), 0o644); err != nil {
		t.Fatalf("write sales: %v", err)
	}
	return fmt.Sprintf(`{"inventory":%q,"sales":%q`, inventory, sales)
}

func TestRunAsyncAccepted(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	body := writeRunFixtures(t) + `,"async":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("async run status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"running":true`) {
		t.Errorf("unexpected async run body: %s", w.Body.String())
	}
}

func TestLatestStatusFilter(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/run", strings.NewReader(writeRunFixtures(t)+`}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, want 200: %s", w.Code, w.Body.String())
	}

	// 14/week against 3 on hand reads Reorder, so the matching filter keeps
	// the row and any other tag drops it.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest?status=reorder", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("filtered latest status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "CNB-1") {
		t.Errorf("reorder filter dropped the reorder row: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest?status=cold", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("filtered latest status = %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "CNB-1") {
		t.Errorf("cold filter kept a reorder row: %s", w.Body.String())
	}
}

func TestLatestRejectsUnknownStatusFilter(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/latest?status=bogus", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("latest status = %d, want 400 for an unknown tag", w.Code)
	}
}

func TestVelocityRequiresParams(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/velocity?sku=CNB-1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("velocity status = %d, want 400 without location", w.Code)
	}
}

func TestVelocityWithoutBank(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history/velocity?sku=CNB-1&location=Hill", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("velocity status = %d, want 404 with no memory bank", w.Code)
	}
}

func TestAnalysisStatusIdle(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"running":false`) {
		t.Errorf("unexpected status body: %s", w.Body.String())
	}
}
