// Package server 提供海报预览与批量生成的 HTTP 接口。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ByLCY/postergen/engine"
	"github.com/ByLCY/postergen/export"
	"github.com/ByLCY/postergen/paint"
	"github.com/ByLCY/postergen/poster"
	"github.com/ByLCY/postergen/store"
)

const maxBodyBytes = 32 << 20

// Server 把 Compositor 与模板仓库暴露为 HTTP 接口。
type Server struct {
	compositor *engine.Compositor
	store      *store.Store
	logger     *log.Logger
	router     chi.Router
}

// Option 配置 Server。
type Option func(*Server)

// WithLogger 设置日志输出。
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// New 创建服务。st 可以为空，此时只能在请求中直接携带模板。
func New(c *engine.Compositor, st *store.Store, opts ...Option) *Server {
	s := &Server{compositor: c, store: st, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/render", s.handleRender)
		r.Post("/batch", s.handleBatch)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Get("/presets", s.handlePresets)
	})
	s.router = r
	return s
}

// ServeHTTP 实现 http.Handler。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe 监听 addr，ctx 结束时优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("服务已启动", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("正在关闭服务")
		return srv.Shutdown(shutdownCtx)
	}
}

// renderRequest 是 /v1/render 与 /v1/batch 的请求体。template 与 templateId 二选一。
type renderRequest struct {
	Template   *poster.Template `json:"template,omitempty"`
	TemplateID string           `json:"templateId,omitempty"`
	Row        poster.Row       `json:"row"`
	Rows       []poster.Row     `json:"rows,omitempty"`
	Mappings   *poster.Mappings `json:"mappings,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, tpl, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	res := s.compositor.RenderOne(r.Context(), tpl, req.Row, req.Mappings)
	if !res.Success {
		writeError(w, http.StatusUnprocessableEntity, errors.New(res.Error))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(res.Blob)
}

// handleBatch 默认返回 JSON 进度；?format=zip 时直接返回压缩包。
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	req, tpl, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	progress := s.compositor.RenderBatchProgress(r.Context(), tpl, req.Rows, req.Mappings, nil)
	if r.URL.Query().Get("format") != "zip" {
		writeJSON(w, http.StatusOK, progress)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tpl.Name+".zip"))
	if _, err := export.WriteZip(w, progress.Results, export.Options{}); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			w.Header().Del("Content-Disposition")
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		s.logger.Error("写出压缩包失败", "err", err)
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []templateSummary{})
		return
	}
	list, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]templateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, templateSummary{
			ID: t.ID, Name: t.Name, Description: t.Description,
			Width: t.Width, Height: t.Height, Elements: len(t.Elements), UpdatedAt: t.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type templateSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Elements    int       `json:"elements"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paint.Presets(paint.PresetKind(r.URL.Query().Get("kind"))))
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (renderRequest, *poster.Template, bool) {
	var req renderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("请求体解析失败: %w", err))
		return req, nil, false
	}
	tpl := req.Template
	if tpl == nil {
		if req.TemplateID == "" {
			writeError(w, http.StatusBadRequest, errors.New("需要提供 template 或 templateId"))
			return req, nil, false
		}
		var err error
		if tpl, err = s.lookup(req.TemplateID); err != nil {
			writeError(w, statusOf(err), err)
			return req, nil, false
		}
	}
	return req, tpl, true
}

func (s *Server) lookup(id string) (*poster.Template, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return s.store.Get(id)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTemplate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// logRequests 用 charmbracelet/log 记录每个请求。
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("请求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
