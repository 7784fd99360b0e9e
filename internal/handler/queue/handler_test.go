package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/eta"
	"github.com/medisync/clinic-queue/internal/model"
	queuepkg "github.com/medisync/clinic-queue/internal/queue"
	"github.com/medisync/clinic-queue/internal/scheduler"
)

type stubGeo struct{}

func (stubGeo) DistanceAndTime(ctx context.Context, origin, dest model.Location) (eta.Route, error) {
	return eta.Route{TravelMins: 10}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultQueueConfig()
	geoCfg := config.GeoConfig{Timeout: time.Second, CacheTTL: time.Minute, DefaultTravelMins: 20}

	store := queuepkg.NewStore(queuepkg.NewScorer(cfg))
	state := queuepkg.NewState(0, time.Now())
	engine := eta.NewEngine(stubGeo{}, geoCfg, cfg, zerolog.Nop())

	sched := scheduler.New(cfg, scheduler.Deps{
		Store:  store,
		State:  state,
		Engine: engine,
	}, zerolog.Nop())

	r := gin.New()
	NewHandler(sched).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/book", gin.H{
		"name":     "Asha",
		"contact":  "+911234567890",
		"symptoms": "fever and cough",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    model.BookingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Token)
	assert.Equal(t, 1, resp.Data.Position)
}

func TestBookEndpointRejectsIncompletePayload(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/queue/book", gin.H{"name": "Asha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPositionEndpointUnknownToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/patients/404/position", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/patients/abc/position", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueSnapshotEndpoint(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/queue/book", gin.H{
		"name":     "Asha",
		"contact":  "+911234567890",
		"symptoms": "severe chest pain",
	})
	doJSON(t, r, http.MethodPost, "/api/v1/queue/book", gin.H{
		"name":     "Ravi",
		"contact":  "+911234567891",
		"symptoms": "routine checkup",
	})

	w := doJSON(t, r, http.MethodGet, "/api/v1/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.QueueSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Total())
	assert.Equal(t, 1, resp.Data.EmergencyCount)
	// The urgent booking outranks the routine one.
	assert.Equal(t, 1, resp.Data.Entries[0].Token)
}

func TestLifecycleEndpoints(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/queue/book", gin.H{
		"name":     "Asha",
		"contact":  "+911234567890",
		"symptoms": "fever",
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/patients/1/start", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A second start conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/v1/patients/1/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/patients/1/complete", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Completing an already-completed patient is a conflict, not a miss.
	w = doJSON(t, r, http.MethodPost, "/api/v1/patients/1/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
