package api

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/metrics"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/model"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/store"
)

// Server is the read-only status surface. It never caches: every request
// re-loads the persisted documents, relying on the store's atomic replace
// for consistency with the concurrently running monitor loop.
type Server struct {
	log        *logger.Logger
	store      *store.Store
	addr       string
	namespaces []string
}

func NewServer(log *logger.Logger, st *store.Store, addr string, namespaces []string) *Server {
	return &Server{log: log, store: st, addr: addr, namespaces: namespaces}
}

func (s *Server) Run(ctx context.Context) error {
	r := chi.NewRouter()
	r.Get("/", s.handleDashboard)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET"},
		}))
		r.Get("/events", s.handleEvents)
	})

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.log.HTTPLogger(r),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	s.log.Info().Str("addr", s.addr).Msg("http server listening")
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleEvents returns the persisted log as-is: most-recent-last.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	evs := s.store.LoadEvents()
	if evs == nil {
		evs = []model.Event{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(evs)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	evs := s.store.LoadEvents()
	// newest first for display
	rev := make([]model.Event, 0, len(evs))
	for i := len(evs) - 1; i >= 0; i-- {
		rev = append(rev, evs[i])
	}
	nsLabel := "ALL"
	if len(s.namespaces) > 0 {
		nsLabel = strings.Join(s.namespaces, ",")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := dashboardTmpl.Execute(w, dashboardData{
		Events:     rev,
		Refreshed:  time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Namespaces: nsLabel,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("render dashboard failed")
	}
}

type dashboardData struct {
	Events     []model.Event
	Refreshed  string
	Namespaces string
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ts": func(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05Z") },
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>K8s CrashLoopBackOff Dashboard</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 24px; }
    .card { padding: 16px; border: 1px solid #ddd; border-radius: 12px; margin-bottom: 16px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { border-bottom: 1px solid #eee; padding: 10px; text-align: left; }
    th { background: #fafafa; }
    .pill { display:inline-block; padding: 4px 10px; border-radius: 999px; background:#ffecec; }
  </style>
</head>
<body>
  <h2>CrashLoopBackOff Dashboard</h2>
  <div class="card">
    <b>Last refresh:</b> {{ .Refreshed }} <br/>
    <b>Namespaces:</b> {{ .Namespaces }}
  </div>
  <div class="card">
    <h3>Latest Alerts (last 200)</h3>
    <table>
      <tr><th>Time (UTC)</th><th>Namespace</th><th>Pod</th><th>Container</th><th>Restarts</th><th>Email</th></tr>
      {{ range .Events }}
      <tr>
        <td>{{ ts .Time }}</td>
        <td><span class="pill">{{ .Namespace }}</span></td>
        <td>{{ .Pod }}</td>
        <td>{{ .Container }}</td>
        <td>{{ .Restarts }}</td>
        <td>{{ if .EmailSent }}sent{{ else }}failed{{ end }}</td>
      </tr>
      {{ end }}
    </table>
  </div>
</body>
</html>
`))
