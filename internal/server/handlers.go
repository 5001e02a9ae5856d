package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ppiankov/hevcstat/internal/cache"
	"github.com/ppiankov/hevcstat/internal/dataset"
	"github.com/ppiankov/hevcstat/internal/model"
	"github.com/ppiankov/hevcstat/internal/news"
	"github.com/ppiankov/hevcstat/internal/report"
	"github.com/ppiankov/hevcstat/internal/stats"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statsResponse struct {
	Summary model.Summary          `json:"summary"`
	Rows    []model.AggregationRow `json:"rows"`
}

type patentsResponse struct {
	Total   int                   `json:"total"`
	Patents []*model.PatentRecord `json:"patents"`
}

type healthResponse struct {
	Status   string    `json:"status"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Version  string    `json:"version,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

// limitFrom parses the optional limit parameter; 0 means no limit
func limitFrom(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func orAll(v string) string {
	if v == "" {
		return model.All
	}
	return v
}

// aggregate returns the cached aggregation for dim under q. Keys carry the
// table generation so a result computed during a reload is never served
// for the newer table.
func (s *Server) aggregate(dim model.Dimension, q model.Query) statsResponse {
	table, gen := s.store.Snapshot()
	key := cache.Key("stats", strconv.FormatUint(gen, 10), string(dim), orAll(q.Profile), orAll(q.Country), orAll(q.Licensor), orAll(q.Inventor))
	if data, ok := s.results.Get(key); ok {
		var resp statsResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return resp
		}
	}

	subset := stats.Filter(table, q)
	resp := statsResponse{
		Summary: stats.Summarize(subset, dim),
		Rows:    stats.Aggregate(subset, dim),
	}
	if data, err := json.Marshal(resp); err == nil {
		_ = s.results.Set(key, data, 0)
	}
	return resp
}

func (s *Server) statsRequest(w http.ResponseWriter, r *http.Request) (model.Dimension, statsResponse, bool) {
	dim, ok := model.ParseDimension(chi.URLParam(r, "dimension"))
	if !ok {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("unknown dimension %q", chi.URLParam(r, "dimension")))
		return "", statsResponse{}, false
	}
	limit, err := limitFrom(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return "", statsResponse{}, false
	}

	resp := s.aggregate(dim, queryFrom(r))
	if limit > 0 {
		resp.Rows = stats.Top(resp.Rows, limit)
	}
	return dim, resp, true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	_, resp, ok := s.statsRequest(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleStatsCSV(w http.ResponseWriter, r *http.Request) {
	dim, resp, ok := s.statsRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(dim)+".csv"))
	if err := stats.WriteCSV(w, dim, resp.Rows); err != nil {
		s.logger.Error("write csv", zap.Error(err))
	}
}

func (s *Server) patents(w http.ResponseWriter, r *http.Request) (model.Table, int, bool) {
	limit, err := limitFrom(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return nil, 0, false
	}
	subset := stats.Filter(s.store.Table(), queryFrom(r))
	total := len(subset)
	if limit > 0 && len(subset) > limit {
		subset = subset[:limit]
	}
	return subset, total, true
}

func (s *Server) handlePatents(w http.ResponseWriter, r *http.Request) {
	subset, total, ok := s.patents(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, patentsResponse{Total: total, Patents: subset})
}

func (s *Server) handlePatentsCSV(w http.ResponseWriter, r *http.Request) {
	subset, _, ok := s.patents(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="patents.csv"`)
	if err := dataset.WriteTableCSV(w, subset); err != nil {
		s.logger.Error("write csv", zap.Error(err))
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.store.Options())
}

func (s *Server) latestNews(ctx context.Context, query string) ([]news.Entry, int, error) {
	if s.news == nil {
		return nil, http.StatusNotFound, errors.New("news feed not configured")
	}
	if query == "" {
		query = s.opts.NewsQuery
	}
	entries, err := s.news.Latest(ctx, query)
	switch {
	case err == nil:
		return entries, http.StatusOK, nil
	case errors.Is(err, news.ErrUpstreamStatus):
		return nil, http.StatusBadGateway, err
	default:
		return nil, http.StatusServiceUnavailable, err
	}
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	entries, status, err := s.latestNews(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.logger.Warn("news unavailable", zap.Error(err))
		s.fail(w, r, status, err)
		return
	}
	render.JSON(w, r, entries)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	top, err := limitFrom(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	md := report.Markdown(s.store.Table(), queryFrom(r), report.Options{Top: top, GeneratedAt: time.Now()})
	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(md))
		return
	}

	body, err := report.HTML(md)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(report.Document("HEVC Advance patent statistics", body))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:   "ok",
		Records:  len(s.store.Table()),
		LoadedAt: s.store.LoadedAt(),
		Version:  s.opts.Version,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	n, err := s.Reload()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("reload: %w", err))
		return
	}
	render.JSON(w, r, map[string]int{"records": n})
}
