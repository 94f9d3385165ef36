package handlers

import (
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/docshed/internal/errors"
	"github.com/3leaps/docshed/internal/server/middleware"
	"github.com/3leaps/docshed/pkg/artifact"
	"github.com/3leaps/docshed/pkg/jobqueue"
	"github.com/3leaps/docshed/pkg/preload"
	"github.com/3leaps/docshed/pkg/resolve"
)

const (
	// htmlCacheControl keeps HTML responses revalidating hourly so freshly
	// regenerated artifacts are picked up without purges.
	htmlCacheControl = "public, max-age=3600"

	// assetCacheControl applies to everything under an artifact that is not
	// an HTML document.
	assetCacheControl = "public, max-age=28800"
)

// DocsDeps are the collaborators behind the documentation page handler.
type DocsDeps struct {
	Resolver  *resolve.Resolver
	Queue     *jobqueue.Queue
	Layout    *artifact.Layout
	Extractor *preload.Extractor
	Logger    *zap.Logger
}

// Docs serves generated documentation pages.
//
// A request for a version whose artifact is missing blocks until the
// generation job finishes, so the first reader of a new version gets the
// page rather than a retry loop. Requests with a non-canonical specifier
// redirect to the resolved exact version so every page has one URL.
func Docs(deps DocsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawPath := chi.URLParam(r, "*")
		name, spec, fragment, err := parsePackagePath(rawPath)
		if err != nil {
			respondParseError(w, r, err)
			return
		}
		force := parseForce(r)

		out, err := deps.Resolver.Resolve(r.Context(), resolve.Request{Name: name, Spec: spec, Force: force})
		if err != nil {
			respondResolveError(w, r, deps.Logger, err)
			return
		}
		pkg := out.Package

		if !out.Hit {
			record, created, err := deps.Queue.Submit(jobqueue.Submission{
				Name:     pkg.Name,
				Version:  pkg.Version,
				Manifest: pkg.Manifest,
			})
			if err != nil {
				apperrors.RespondWithError(w, http.StatusServiceUnavailable,
					apperrors.CodeServiceUnavailable, "cannot accept generation work",
					middleware.GetRequestID(r.Context()))
				return
			}
			deps.Logger.Info("blocking on generation",
				zap.String("job_id", record.ID),
				zap.Bool("created", created))

			final, err := deps.Queue.Wait(r.Context(), record.ID)
			if err != nil {
				apperrors.RespondWithError(w, http.StatusInternalServerError,
					apperrors.CodeInternal, "interrupted while waiting for generation",
					middleware.GetRequestID(r.Context()))
				return
			}
			if final.State == jobqueue.StateFailed {
				apperrors.RespondWithError(w, http.StatusInternalServerError,
					apperrors.CodeGenerationFailed, final.FailureReason,
					middleware.GetRequestID(r.Context()))
				return
			}
		}

		// Redirect non-canonical references (range specifiers, bare names,
		// registry-normalized names, missing fragments) to the one stable
		// URL for this document. Resolving the canonical path again yields
		// the same path, so the redirect never loops.
		canonical := artifact.RequestPath(pkg.Name, pkg.Version, fragment)
		if r.URL.Path != canonical {
			http.Redirect(w, r, canonical, http.StatusFound)
			return
		}

		filePath, err := deps.Layout.FragmentPath(pkg.Name, pkg.Version, fragment)
		if err != nil {
			apperrors.RespondWithError(w, http.StatusNotFound,
				apperrors.CodeNotFound, "invalid document path",
				middleware.GetRequestID(r.Context()))
			return
		}

		// ServeContent rather than ServeFile: ServeFile redirects paths
		// ending in /index.html, which would fight the canonical redirect.
		f, err := os.Open(filePath)
		if err != nil {
			apperrors.RespondWithError(w, http.StatusNotFound,
				apperrors.CodeNotFound, "document not found",
				middleware.GetRequestID(r.Context()))
			return
		}
		defer func() { _ = f.Close() }()

		st, err := f.Stat()
		if err != nil || st.IsDir() {
			apperrors.RespondWithError(w, http.StatusNotFound,
				apperrors.CodeNotFound, "document not found",
				middleware.GetRequestID(r.Context()))
			return
		}

		if isHTMLDocument(fragment) {
			w.Header().Set("Cache-Control", htmlCacheControl)
			if deps.Extractor != nil {
				descriptors, err := deps.Extractor.Extract(filePath)
				if err != nil {
					deps.Logger.Warn("preload extraction failed",
						zap.String("path", filePath), zap.Error(err))
				} else if header := preload.LinkHeader(descriptors); header != "" {
					w.Header().Set("Link", header)
				}
			}
		} else {
			w.Header().Set("Cache-Control", assetCacheControl)
		}

		http.ServeContent(w, r, st.Name(), st.ModTime(), f)
	}
}

func isHTMLDocument(fragment string) bool {
	if fragment == "" {
		return true
	}
	return strings.EqualFold(path.Ext(fragment), ".html")
}
