package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/logging"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
	"github.com/MattGoodwin0/newsletter-aggregator/internal/pipeline"
)

type validateRequest struct {
	URL string `json:"url"`
}

type generateRequest struct {
	Feeds    []string `json:"feeds"`
	DaysBack int      `json:"days_back"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON with a \"url\" field")
		return
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "a feed URL is required")
		return
	}
	if err := s.checker.CheckURL(url); err != nil {
		s.writeError(w, http.StatusBadRequest, models.DetailOf(err))
		return
	}

	report := s.validator.Validate(r.Context(), models.NewFeedSource(url))
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.acceptGenerate(w, r)
	if !ok {
		return
	}

	result, err := s.orch.Run(r.Context(), req, pipeline.Options{})
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	if result.Summary.TotalArticles == 0 {
		s.writeError(w, http.StatusNotFound, "no articles found in the requested window")
		return
	}

	okFeeds, failedFeeds := splitOutcomes(result.Summary)
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="weekly-digest.html"`)
	w.Header().Set("X-Run-Id", result.Summary.RunID)
	w.Header().Set("X-Digest-Feeds-Ok", strconv.Itoa(okFeeds))
	w.Header().Set("X-Digest-Feeds-Failed", strconv.Itoa(failedFeeds))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Artifact); err != nil {
		s.logger.Warn("failed to write artifact", logging.WithField("error", err.Error()))
	}
}

// handleGenerateStream runs the same pipeline but reports real stage
// transitions and per-feed outcomes as Server-Sent Events, finishing
// with the artifact in a terminal done event.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.acceptGenerate(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Observers run on the orchestrating goroutine, so writes to the
	// stream need no extra locking.
	opts := pipeline.Options{
		OnStage: func(ev pipeline.StageEvent) {
			writeEvent(w, "stage", ev)
			flusher.Flush()
		},
		OnFeed: func(fs models.FeedSummary) {
			writeEvent(w, "feed", fs)
			flusher.Flush()
		},
	}

	result, err := s.orch.Run(r.Context(), req, opts)
	if err != nil {
		var runErr *pipeline.RunError
		if errors.As(err, &runErr) {
			writeEvent(w, "error", map[string]interface{}{
				"error":   runErr.Failure.Detail,
				"kind":    string(runErr.Failure.Kind),
				"summary": runErr.Summary,
			})
		} else {
			writeEvent(w, "error", map[string]string{"error": models.DetailOf(err)})
		}
		flusher.Flush()
		return
	}

	writeEvent(w, "done", map[string]interface{}{
		"summary":      result.Summary,
		"content_type": result.ContentType,
		"artifact":     base64.StdEncoding.EncodeToString(result.Artifact),
	})
	flusher.Flush()
}

// acceptGenerate parses and validates a generation request, applying
// the per-client throttle. Responses for rejected requests are already
// written when ok is false.
func (s *Server) acceptGenerate(w http.ResponseWriter, r *http.Request) (models.DigestRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return models.DigestRequest{}, false
	}

	if s.apiLimiter != nil && !s.apiLimiter.Allow(clientIP(r)) {
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down and try again")
		return models.DigestRequest{}, false
	}

	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body must be JSON with \"feeds\" and \"days_back\" fields")
		return models.DigestRequest{}, false
	}

	if req.DaysBack < 1 || req.DaysBack > s.limits.MaxDaysBack {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("days_back must be between 1 and %d", s.limits.MaxDaysBack))
		return models.DigestRequest{}, false
	}

	trimmed := make([]string, 0, len(req.Feeds))
	for _, f := range req.Feeds {
		if f = strings.TrimSpace(f); f != "" {
			trimmed = append(trimmed, f)
		}
	}
	if err := s.checker.CheckFeedURLs(trimmed, s.limits.MaxFeeds); err != nil {
		s.writeError(w, http.StatusBadRequest, models.DetailOf(err))
		return models.DigestRequest{}, false
	}

	// Deduplicate preserving caller order; URL is the feed identity
	seen := make(map[string]bool, len(trimmed))
	feeds := make([]models.FeedSource, 0, len(trimmed))
	for _, f := range trimmed {
		if seen[f] {
			continue
		}
		seen[f] = true
		feeds = append(feeds, models.NewFeedSource(f))
	}

	return models.DigestRequest{Feeds: feeds, DaysBack: req.DaysBack}, true
}

// writeRunError maps run-level failures to HTTP statuses: invalid input
// is the caller's fault, total fetch failure is an upstream problem,
// render failure is ours.
func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var runErr *pipeline.RunError
	if errors.As(err, &runErr) {
		status := http.StatusBadGateway
		if runErr.Failure.Kind == models.FailureRender {
			status = http.StatusInternalServerError
		}
		s.writeJSON(w, status, map[string]interface{}{
			"error":   runErr.Failure.Detail,
			"summary": runErr.Summary,
		})
		return
	}

	var failure *models.Failure
	if errors.As(err, &failure) && failure.Kind == models.FailureInvalidRequest {
		s.writeError(w, http.StatusBadRequest, failure.Detail)
		return
	}

	s.writeError(w, http.StatusInternalServerError, models.DetailOf(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func splitOutcomes(summary models.RunSummary) (okFeeds, failedFeeds int) {
	for _, f := range summary.Feeds {
		if f.OK {
			okFeeds++
		} else {
			failedFeeds++
		}
	}
	return okFeeds, failedFeeds
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
