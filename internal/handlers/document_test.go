package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	planrepo "github.com/planforge/planforge-backend/internal/data/repos/plan"
	"github.com/planforge/planforge-backend/internal/data/repos/testutil"
	"github.com/planforge/planforge-backend/internal/handlers"
	"github.com/planforge/planforge-backend/internal/middleware"
	"github.com/planforge/planforge-backend/internal/realtime"
	"github.com/planforge/planforge-backend/internal/server"
	"github.com/planforge/planforge-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	hub := realtime.NewSSEHub(log)

	docs := services.NewDocumentService(
		log,
		planrepo.NewPlanDocumentRepo(db, log),
		planrepo.NewPlanSectionRepo(db, log),
		&services.HubEmitter{Hub: hub},
		time.Hour,
	)
	t.Cleanup(docs.Shutdown)

	return server.NewRouter(server.RouterConfig{
		OwnerMiddleware: middleware.NewOwnerMiddleware(log),
		DocumentHandler: handlers.NewDocumentHandler(docs),
		SSEHandler:      handlers.NewSSEHandler(log, hub, docs),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheckIsPublic(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
}

func TestMissingOwnerRejected(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/api/document", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without owner header, got %d", rec.Code)
	}
}

func TestDocumentEditFlow(t *testing.T) {
	router := newTestRouter(t)
	owner := "owner-http-flow"

	rec := doJSON(t, router, http.MethodGet, "/api/document", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get document: %d %s", rec.Code, rec.Body.String())
	}
	var getResp struct {
		Document struct {
			ID       string `json:"id"`
			Sections []struct {
				ID      string `json:"id"`
				Content string `json:"content"`
			} `json:"sections"`
		} `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &getResp); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	if len(getResp.Document.Sections) == 0 {
		t.Fatalf("document should carry the full catalog")
	}

	// Save without the lock is a conflict.
	rec = doJSON(t, router, http.MethodPut, "/api/document/sections/executive_summary", owner,
		map[string]string{"content": "x"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("save without lock: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/document/sections/executive_summary/edit", owner,
		map[string]string{"current_content": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("begin edit: %d %s", rec.Code, rec.Body.String())
	}

	content := "We bake sourdough loaves in small batches every morning and deliver them " +
		"to forty neighborhood cafes across the city before they open."
	rec = doJSON(t, router, http.MethodPut, "/api/document/sections/executive_summary", owner,
		map[string]string{"content": content})
	if rec.Code != http.StatusOK {
		t.Fatalf("save edit: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"origin":"manual"`) {
		t.Fatalf("saved section should be manual: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/document/sections/not_a_section/edit", owner,
		map[string]string{"current_content": ""})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown section: %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/document", owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("discard: %d %s", rec.Code, rec.Body.String())
	}
}

func TestIngestEndpoint(t *testing.T) {
	router := newTestRouter(t)
	owner := "owner-http-ingest"

	body := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "Help me write the summary."},
			{"role": "assistant", "content": "## Executive Summary\n" +
				"We help small bakeries manage inventory. Our solution reduces waste by 30%. " +
				"Would you like me to continue?"},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/document/ingest", owner, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "We help small bakeries manage inventory.") {
		t.Fatalf("extracted content missing from view: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Would you like") {
		t.Fatalf("filler should have been cleaned away: %s", rec.Body.String())
	}
}
