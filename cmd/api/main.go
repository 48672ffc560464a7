package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"staffing-grid/internal/calendar"
	"staffing-grid/internal/config"
	"staffing-grid/internal/erp"
	"staffing-grid/internal/events"
	"staffing-grid/internal/grid"
	"staffing-grid/internal/middleware"
	"staffing-grid/internal/models"
	"staffing-grid/internal/store"
	"staffing-grid/internal/timesheet"
)

// Store is everything the presentation layer needs from storage: the
// timesheet service's persistence surface plus the grid/annotation reads.
type Store interface {
	timesheet.Persistence
	ListEmployees(ctx context.Context, orgID string) ([]*models.Employee, error)
	ListProjects(ctx context.Context, orgID string) ([]*models.Project, error)
	ListProjectColors(ctx context.Context, orgID string) ([]models.ProjectColor, error)
	UpsertProjectColor(ctx context.Context, c models.ProjectColor) error
	ListFreeLines(ctx context.Context, orgID string, from, to time.Time) ([]*models.FreeLine, []*models.FreeBubble, error)
	InsertFreeLine(ctx context.Context, l *models.FreeLine) error
	InsertFreeBubble(ctx context.Context, b *models.FreeBubble) error
	DeleteFreeBubble(ctx context.Context, id string) error
	ListCalendarDays(ctx context.Context, from, to time.Time) (map[string]models.CalendarDay, error)
}

type server struct {
	cfg  config.Config
	db   Store
	svc  *timesheet.Service
	sync timesheet.ExternalSync

	// One active window per server: the session grid the drag/drop handlers
	// mutate optimistically. Rebuilt when stale or when the window changes.
	mu    sync.Mutex
	weeks []calendar.Week
	grid  *grid.Grid
	ann   *grid.AnnotationStore
	coord *grid.Coordinator
	stale bool

	evMu   sync.Mutex
	recent []events.Event
}

// Publish collects outcome events for the notification endpoint and mirrors
// them to the server log.
func (s *server) Publish(e events.Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if e.Kind == events.KindFailure {
		log.Printf("outcome failure [%s]: %s", e.Category, e.Message)
	} else {
		log.Printf("outcome: %s", e.Message)
	}
	s.recent = append(s.recent, e)
	if len(s.recent) > 100 {
		s.recent = s.recent[len(s.recent)-100:]
	}
}

func (s *server) drainEvents() []events.Event {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	out := s.recent
	s.recent = nil
	return out
}

func main() {
	cfgPath := os.Getenv("CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db Store
	if cfg.DatabaseURL != "" {
		conn, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer conn.Close()
		db = store.NewPostgresStore(conn)
		log.Printf("using postgres store")
	} else {
		mem := NewInMemoryStore()
		seedDemoData(mem, cfg.OrgID)
		db = mem
		log.Printf("no database configured; using in-memory demo store")
	}

	var erpSync timesheet.ExternalSync
	if cfg.ERP.BaseURL != "" {
		erpSync = erp.NewClient(cfg.ERP.BaseURL, cfg.ERP.Token)
		log.Printf("external sync against %s", cfg.ERP.BaseURL)
	} else {
		erpSync = NewInMemorySync()
		log.Printf("no ERP configured; using in-memory sync")
	}

	srv := newServer(cfg, db, erpSync)

	mux := http.NewServeMux()
	srv.routes(mux)

	log.Printf("staffing grid API on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func newServer(cfg config.Config, db Store, erpSync timesheet.ExternalSync) *server {
	srv := &server{cfg: cfg, db: db, sync: erpSync}
	srv.svc = timesheet.NewService(db, erpSync, srv)
	srv.svc.SetThrottle(cfg.ERP.SendBatchSize, cfg.SendBatchGap())
	return srv
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/grid", s.handleGrid)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/week/verify", s.handleVerifyWeek)
	mux.HandleFunc("/api/projects/details", s.handleProjectDetails)

	mux.HandleFunc("/api/assignments", middleware.CSRF(s.handleCreateAssignment))
	mux.HandleFunc("/api/assignments/drop", middleware.CSRF(s.handleDrop))
	mux.HandleFunc("/api/entries", middleware.CSRF(s.handleRecordHours))
	mux.HandleFunc("/api/entries/update", middleware.CSRF(s.handleUpdateEntry))
	mux.HandleFunc("/api/entries/submit", middleware.CSRF(s.handleSubmit))
	mux.HandleFunc("/api/entries/approve", middleware.CSRF(s.handleApprove))
	mux.HandleFunc("/api/entries/recall", middleware.CSRF(s.handleRecall))
	mux.HandleFunc("/api/entries/unapprove", middleware.CSRF(s.handleUnapprove))
	mux.HandleFunc("/api/week/approve", middleware.CSRF(s.handleApproveWeek))
	mux.HandleFunc("/api/week/send", middleware.CSRF(s.handleSendWeek))
	mux.HandleFunc("/api/colors", middleware.CSRF(s.handleUpsertColor))
	mux.HandleFunc("/api/bubbles", middleware.CSRF(s.handleCreateBubble))
	mux.HandleFunc("/api/bubbles/drop", middleware.CSRF(s.handleBubbleDrop))
}
