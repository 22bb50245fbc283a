package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vidresume/internal/logging"
	"vidresume/internal/logs"
	"vidresume/internal/pipeline"
	"vidresume/internal/store"
)

// Server exposes a coordinator over HTTP.
type Server struct {
	coord   *pipeline.Coordinator
	store   *store.Store
	logger  *slog.Logger
	started time.Time
	ctx     context.Context

	server   *http.Server
	listener net.Listener
}

// NewServer builds a server for coord. Stages started over HTTP run under
// ctx.
func NewServer(ctx context.Context, coord *pipeline.Coordinator, st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		coord:   coord,
		store:   st,
		logger:  logger,
		started: time.Now(),
		ctx:     ctx,
	}
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router returns the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/logs", s.handleLogs)
	r.Get("/videos", s.handleVideos)
	r.Get("/runs/{id}", s.handleRun)
	r.Route("/stages/{name}", func(r chi.Router) {
		r.Post("/start", s.handleStageAction("start"))
		r.Post("/restart", s.handleStageAction("restart"))
		r.Post("/deactivate", s.handleStageAction("deactivate"))
	})
	return r
}

// Start listens on bind and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		UptimeS: int64(time.Since(s.started).Seconds()),
		PID:     os.Getpid(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.coord.Config()
	video := cfg.General.VideoPath
	resp := StatusResponse{
		VideoPath:  video,
		OutputPath: cfg.General.OutputPath,
		ResumeMode: cfg.General.ResumeMode,
		Stages:     []StageStatus{},
		Runs:       []RunRecord{},
	}
	for _, snap := range s.coord.Status() {
		resp.Stages = append(resp.Stages, FromSnapshot(snap))
	}
	if s.store != nil && video != "" {
		runs, err := s.store.LatestRuns(r.Context(), video)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		for _, run := range runs {
			resp.Runs = append(resp.Runs, FromRun(run))
		}
		resp.Resume, err = s.store.Resume(r.Context(), video)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		WriteJSON(w, http.StatusOK, VideosResponse{Videos: []string{}})
		return
	}
	videos, err := s.store.Videos(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if videos == nil {
		videos = []string{}
	}
	WriteJSON(w, http.StatusOK, VideosResponse{Videos: videos})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.store == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("run %q not found", id), "NOT_FOUND")
		return
	}
	WriteJSON(w, http.StatusOK, FromRun(*run))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := logs.TailOptions{Offset: -1, Limit: 200, Stage: query.Get("stage")}
	if raw := query.Get("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "lines must be a non-negative integer", "BAD_REQUEST")
			return
		}
		opts.Limit = n
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "offset must be an integer", "BAD_REQUEST")
			return
		}
		opts.Offset = offset
	}
	result, err := logs.Tail(r.Context(), s.coord.Config().LogPath(), opts)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return
	}
	if result.Lines == nil {
		result.Lines = []string{}
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleStageAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		stage, err := s.coord.Stage(name)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		switch action {
		case "start":
			if err := stage.Start(s.ctx); err != nil {
				if errors.Is(err, pipeline.ErrAlreadyRunning) {
					WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
					return
				}
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
		case "restart":
			stage.Restart()
		case "deactivate":
			stage.Deactivate()
		}
		s.logger.Info("stage control request",
			logging.String(logging.FieldEventType, "stage_control"),
			logging.String(logging.FieldStage, name),
			logging.String("action", action),
		)
		WriteJSON(w, http.StatusAccepted, StageActionResponse{
			Stage:  name,
			Action: action,
			Status: FromSnapshot(stage.Snapshot()),
		})
	}
}
