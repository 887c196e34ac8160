package collect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/httputil"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/metrics"
)

type request struct {
	Dataset string `json:"dataset"`
	Data    []Item `json:"data"`
}

func NewHandler(cfg *Config, collector collector.Collector) (http.Handler, error) {
	s := &handler{
		collector: collector,
		cfg:       cfg,
	}
	return s, nil
}

type handler struct {
	collector collector.Collector
	cfg       *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	defer r.Body.Close()
	if !httputil.DecodeJSON(ctx, w, r, &req) {
		return
	}

	if req.Dataset == "" {
		httputil.RespBadRequest(ctx, w, `{"error": "dataset name is required"}`)
		return
	}
	if len(req.Data) > h.cfg.MaxDataItemsLen {
		httputil.RespBadRequest(ctx, w, `{"error": "data items is too large, max allowed len is %d"}`, h.cfg.MaxDataItemsLen)
		return
	}

	records, err := Records(req.Dataset, req.Data, time.Now())
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
		return
	}
	if err := h.collector.Collect(records...); err != nil {
		if errors.Is(err, collector.ErrClosed) {
			http.Error(w, `{"error": "service is shutting down"}`, http.StatusServiceUnavailable)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "collect: %v"}`, err)
		return
	}
	metrics.RecordCollected(ctx, req.Dataset, len(records))
	logger.Infof("Collected %d vectors for dataset %s", len(records), req.Dataset)

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status": "ok", "collected": %d}`, len(records))
}
