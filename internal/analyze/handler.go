package analyze

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/httputil"
	"github.com/go-sod/cod/internal/logging"
	"github.com/go-sod/cod/internal/report"
	"github.com/go-sod/cod/pkg/dataset"
	"github.com/go-sod/cod/pkg/kmeans"
	"github.com/go-sod/cod/pkg/outlier"
)

type target struct {
	Dataset string `json:"dataset"`
}

func (t target) name() string {
	return t.Dataset
}

type named interface {
	name() string
}

type clusterRequest struct {
	target
	ClusterParams
}

type bestKRequest struct {
	target
	BestKParams
}

type outliersRequest struct {
	target
	OutlierParams
}

type reportRequest struct {
	target
}

func NewHandler(cfg *Config, loader collector.Loader, opts ...Option) (*Handler, error) {
	if loader == nil {
		return nil, errors.New("analyze: dataset loader is required")
	}
	return &Handler{
		cfg:     cfg,
		loader:  loader,
		service: New(&cfg.Report, opts...),
	}, nil
}

// Handler serves the analysis endpoints over the collected datasets.
type Handler struct {
	cfg     *Config
	loader  collector.Loader
	service *Service
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/cluster", serve(h, func(ctx context.Context, w io.Writer, ds *dataset.Dataset, req clusterRequest) error {
		return h.service.Cluster(ctx, w, ds, req.ClusterParams)
	}))
	mux.Handle("/bestk", serve(h, func(ctx context.Context, w io.Writer, ds *dataset.Dataset, req bestKRequest) error {
		return h.service.BestK(ctx, w, ds, req.BestKParams)
	}))
	mux.Handle("/outliers", serve(h, func(ctx context.Context, w io.Writer, ds *dataset.Dataset, req outliersRequest) error {
		return h.service.Outliers(ctx, w, ds, req.OutlierParams)
	}))
	mux.Handle("/report", serve(h, func(ctx context.Context, w io.Writer, ds *dataset.Dataset, _ reportRequest) error {
		return h.service.Report(ctx, w, ds)
	}))
}

// serve decodes a request of type T, loads its dataset and answers with the
// text run writes.
func serve[T named](h *Handler, run func(context.Context, io.Writer, *dataset.Dataset, T) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
		defer cancel()
		defer r.Body.Close()

		var req T
		if !httputil.DecodeJSON(ctx, w, r, &req) {
			return
		}
		name := req.name()
		if name == "" {
			httputil.RespBadRequest(ctx, w, `{"error": "dataset name is required"}`)
			return
		}

		ds, err := h.loader.Load(ctx, name)
		if err != nil {
			respErr(ctx, w, err)
			return
		}
		var buf bytes.Buffer
		if err := run(ctx, &buf, ds, req); err != nil {
			respErr(ctx, w, err)
			return
		}
		logging.FromContext(ctx).Debugf("%s on dataset %s done", r.URL.Path, name)
		httputil.RespText(w, buf.Bytes())
	})
}

func respErr(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrIncomparableVectors):
		httputil.RespUnprocessable(ctx, w, `{"error": "%v"}`, err)
	case errors.Is(err, collector.ErrUnknownDataset):
		httputil.RespNotFound(ctx, w, `{"error": "%v"}`, err)
	case errors.Is(err, kmeans.ErrInvalidK),
		errors.Is(err, kmeans.ErrInvalidSeeds),
		errors.Is(err, kmeans.ErrInvalidRange),
		errors.Is(err, kmeans.ErrUnknownStrategy),
		errors.Is(err, outlier.ErrInvalidThreshold),
		errors.Is(err, report.ErrInvalidConfig),
		errors.Is(err, report.ErrInvalidSeedPlan),
		errors.Is(err, ErrUnknownMethod),
		errors.Is(err, dataset.ErrEmpty):
		httputil.RespBadRequest(ctx, w, `{"error": "%v"}`, err)
	default:
		httputil.RespInternalError(ctx, w, `{"error": "analysis failed: %v"}`, err)
	}
}
