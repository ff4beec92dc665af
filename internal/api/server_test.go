package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/store"
)

func seedStore(t *testing.T, evs []model.Event) *store.Store {
	t.Helper()
	st := store.New(t.TempDir())
	require.NoError(t, st.Ensure())
	if evs != nil {
		require.NoError(t, st.SaveEvents(evs))
	}
	return st
}

func event(pod string, sent bool) model.Event {
	return model.Event{
		Detection: model.Detection{
			Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Namespace: "ns1",
			Pod:       pod,
			Container: "c1",
			Restarts:  3,
			Reason:    model.ReasonCrashLoop,
		},
		EmailSent: sent,
	}
}

func TestHandleEvents(t *testing.T) {
	st := seedStore(t, []model.Event{event("p1", true), event("p2", false)})
	s := NewServer(logger.Nop(), st, ":0", nil)

	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	// stored order preserved: most-recent-last
	assert.Equal(t, "p1", got[0].Pod)
	assert.Equal(t, "p2", got[1].Pod)
}

func TestHandleEventsEmptyLog(t *testing.T) {
	st := seedStore(t, nil)
	s := NewServer(logger.Nop(), st, ":0", nil)

	rec := httptest.NewRecorder()
	s.handleEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestDashboardNewestFirst(t *testing.T) {
	st := seedStore(t, []model.Event{event("older", true), event("newer", false)})
	s := NewServer(logger.Nop(), st, ":0", []string{"prod"})

	rec := httptest.NewRecorder()
	s.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "prod")
	assert.Contains(t, body, "2024-05-01T12:00:00Z")
	// newer row rendered before older
	assert.Less(t, strings.Index(body, "newer"), strings.Index(body, "older"))
}
