package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/docshed/internal/errors"
	"github.com/3leaps/docshed/internal/server/middleware"
	"github.com/3leaps/docshed/pkg/jobqueue"
	"github.com/3leaps/docshed/pkg/registry"
	"github.com/3leaps/docshed/pkg/resolve"
)

// PollIntervalMillis is the advisory delay clients should wait between
// polls after a queued trigger response.
const PollIntervalMillis = 2000

// TriggerResponse is the body for POST /api/generate/{pkg}.
type TriggerResponse struct {
	Status       string `json:"status"`
	JobID        string `json:"jobId,omitempty"`
	PollInterval int    `json:"pollInterval,omitempty"`
}

// PollResponse is the body for GET /api/jobs/{id}.
type PollResponse struct {
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Trigger resolves a package reference and, on a miss, submits a generation
// job without waiting for it.
func Trigger(resolver *resolve.Resolver, queue *jobqueue.Queue, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, spec, _, err := parsePackagePath(chi.URLParam(r, "*"))
		if err != nil {
			respondParseError(w, r, err)
			return
		}
		force := parseForce(r)

		out, err := resolver.Resolve(r.Context(), resolve.Request{Name: name, Spec: spec, Force: force})
		if err != nil {
			respondResolveError(w, r, logger, err)
			return
		}

		if out.Hit {
			respondJSON(w, http.StatusOK, TriggerResponse{Status: "success"})
			return
		}

		record, created, err := queue.Submit(jobqueue.Submission{
			Name:     out.Package.Name,
			Version:  out.Package.Version,
			Manifest: out.Package.Manifest,
		})
		if err != nil {
			logger.Error("job submission failed",
				zap.String("package", out.Package.Key()),
				zap.Error(err))
			apperrors.RespondWithError(w, http.StatusServiceUnavailable,
				apperrors.CodeServiceUnavailable, "cannot accept generation work",
				middleware.GetRequestID(r.Context()))
			return
		}

		logger.Info("generation triggered",
			zap.String("job_id", record.ID),
			zap.Bool("created", created),
			zap.Bool("force", force))

		respondJSON(w, http.StatusAccepted, TriggerResponse{
			Status:       "queued",
			JobID:        record.ID,
			PollInterval: PollIntervalMillis,
		})
	}
}

// Poll reports the state of a submitted job.
func Poll(queue *jobqueue.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "*")
		if unescaped, err := url.PathUnescape(jobID); err == nil {
			jobID = unescaped
		}
		record, err := queue.Status(jobID)
		if err != nil {
			if errors.Is(err, jobqueue.ErrJobNotFound) {
				apperrors.RespondWithError(w, http.StatusNotFound,
					apperrors.CodeJobNotFound, "unknown job id: "+jobID,
					middleware.GetRequestID(r.Context()))
				return
			}
			apperrors.RespondWithError(w, http.StatusInternalServerError,
				apperrors.CodeInternal, "cannot read job state",
				middleware.GetRequestID(r.Context()))
			return
		}

		switch record.State {
		case jobqueue.StateCompleted:
			respondJSON(w, http.StatusOK, PollResponse{Status: "success"})
		case jobqueue.StateFailed:
			respondJSON(w, http.StatusOK, PollResponse{Status: "failed", ErrorCode: record.FailureReason})
		default:
			respondJSON(w, http.StatusOK, PollResponse{Status: "queued"})
		}
	}
}

func parseForce(r *http.Request) bool {
	switch r.URL.Query().Get("force") {
	case "1", "true", "yes":
		return true
	}
	return false
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondParseError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	if errors.Is(err, ErrNoPackage) {
		apperrors.RespondWithError(w, http.StatusBadRequest,
			apperrors.CodeNoPackageSpecified, "no package specified", requestID)
		return
	}
	apperrors.RespondWithError(w, http.StatusNotFound,
		apperrors.CodePackageNotFound, "cannot parse package path", requestID)
}

// respondResolveError maps resolver failures to the error taxonomy:
// registry misses are client errors, registry outages are upstream errors,
// anything else is normalized to an internal error.
func respondResolveError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case registry.IsNotFound(err):
		apperrors.RespondWithError(w, http.StatusNotFound,
			apperrors.CodeRegistryResolution, err.Error(), requestID)
	case errors.Is(err, registry.ErrRegistryUnavailable):
		apperrors.RespondWithError(w, http.StatusBadGateway,
			apperrors.CodeRegistryResolution, err.Error(), requestID)
	default:
		logger.Error("unexpected resolution failure", zap.Error(err), zap.String("request_id", requestID))
		apperrors.RespondWithError(w, http.StatusInternalServerError,
			apperrors.CodeInternal, "unexpected error during resolution", requestID)
	}
}
