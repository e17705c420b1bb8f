package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inkos/inkd/internal/config"
	"github.com/inkos/inkd/internal/handler"
	aihandler "github.com/inkos/inkd/internal/handler/ai"
	chathandler "github.com/inkos/inkd/internal/handler/chat"
	jobshandler "github.com/inkos/inkd/internal/handler/jobs"
	logbookhandler "github.com/inkos/inkd/internal/handler/logbook"
	noteshandler "github.com/inkos/inkd/internal/handler/notes"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/svc"
)

// ServerOptions holds optional dependencies for the server
type ServerOptions struct {
	SvcCtx *svc.ServiceContext // Pre-initialized service context
	Quiet  bool                // Suppress startup messages for clean CLI output
}

// Run starts the inkd server. It blocks until the context is cancelled or an
// error occurs.
func Run(ctx context.Context, c config.Config, opts ...ServerOptions) error {
	var o ServerOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	return run(ctx, c, o)
}

func run(ctx context.Context, c config.Config, opts ServerOptions) error {
	if err := checkPortAvailable(c.Port); err != nil {
		return fmt.Errorf("port %d is already in use", c.Port)
	}

	svcCtx := opts.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}

	// Jobs left running by a previous process are requeued before workers start
	recovered, err := svcCtx.DB.RecoverOrphanJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover orphan jobs: %w", err)
	}
	if recovered > 0 {
		logging.Infof("requeued %d orphaned job(s)", recovered)
	}

	if err := svcCtx.Catalog.Watch(); err != nil {
		logging.Warnf("model catalog watcher unavailable: %v", err)
	}

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	svcCtx.Jobs.Start(poolCtx)
	defer svcCtx.Jobs.Stop()

	if err := svcCtx.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer svcCtx.Scheduler.Stop()

	r := chi.NewRouter()
	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", handler.PingHandler(svcCtx))
		r.Get("/db/status", handler.DBStatusHandler(svcCtx))

		registerChatRoutes(r, svcCtx)
		registerAIRoutes(r, svcCtx)
		registerWorkspaceRoutes(r, svcCtx)
	})

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", c.Port),
		Handler:     r,
		IdleTimeout: 120 * time.Second,
	}

	if !opts.Quiet {
		fmt.Printf("inkd listening on http://localhost:%d\n", c.Port)
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("http server: %v", err)
		}
	}()

	<-ctx.Done()

	if !opts.Quiet {
		fmt.Println("\nShutting down...")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func registerChatRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/chat/conversations", chathandler.ListConversationsHandler(svcCtx))
	r.Post("/chat/conversations", chathandler.CreateConversationHandler(svcCtx))
	r.Get("/chat/conversations/{id}", chathandler.GetConversationHandler(svcCtx))
	r.Get("/chat/conversations/{id}/messages", chathandler.GetMessagesHandler(svcCtx))
	r.Post("/chat/conversations/{id}/messages", chathandler.AppendMessageHandler(svcCtx))
	r.Post("/chat/conversations/{id}/rollover", chathandler.RolloverHandler(svcCtx))
	r.Put("/chat/conversations/{id}/model", chathandler.SetModelHandler(svcCtx))
}

func registerAIRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Get("/ai/providers", aihandler.ListProvidersHandler(svcCtx))
	r.Get("/ai/settings", aihandler.GetSettingsHandler(svcCtx))
	r.Put("/ai/settings", aihandler.UpdateSettingsHandler(svcCtx))
	r.Post("/ai/summarize", aihandler.SummarizeHandler(svcCtx))
	r.Get("/ai/summaries/{id}", aihandler.GetSummaryByIDHandler(svcCtx))
	r.Get("/ai/summaries/{targetType}/{targetId}", aihandler.GetSummaryHandler(svcCtx))
	r.Get("/ai/events", aihandler.ListEventsHandler(svcCtx))
}

func registerWorkspaceRoutes(r chi.Router, svcCtx *svc.ServiceContext) {
	r.Post("/jobs", jobshandler.EnqueueJobHandler(svcCtx))
	r.Post("/jobs/digest", jobshandler.RunDigestHandler(svcCtx))
	r.Get("/jobs/{id}", jobshandler.GetJobHandler(svcCtx))

	r.Get("/notes", noteshandler.ListNotesHandler(svcCtx))
	r.Post("/notes", noteshandler.CreateNoteHandler(svcCtx))
	r.Get("/notes/{id}", noteshandler.GetNoteHandler(svcCtx))

	r.Get("/logbook", logbookhandler.ListLogbookHandler(svcCtx))
	r.Get("/logbook/{date}", logbookhandler.GetLogbookHandler(svcCtx))
	r.Get("/timeline/{date}", logbookhandler.GetTimelineHandler(svcCtx))
}

// checkPortAvailable checks if a port is available for binding
func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return ln.Close()
}
