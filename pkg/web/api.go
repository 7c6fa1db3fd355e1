package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Alr2303/irsharp/pkg/archive"
	"github.com/Alr2303/irsharp/pkg/logger"
	"github.com/Alr2303/irsharp/pkg/metrics"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// API handles REST API endpoints
type API struct {
	logger   *logger.Logger
	captures *archive.CaptureRepository
	metrics  *metrics.Collector
}

// NewAPI creates a new API instance
func NewAPI(log *logger.Logger) *API {
	return &API{
		logger: log,
	}
}

// SetCaptureRepository wires the archive so /api/captures returns data.
// Without it the endpoint serves an empty result.
func (a *API) SetCaptureRepository(repo *archive.CaptureRepository) {
	a.captures = repo
}

// SetCollector wires the metrics collector backing /api/stats.
func (a *API) SetCollector(c *metrics.Collector) {
	a.metrics = c
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	info := GetVersionInfo()
	response := map[string]interface{}{
		"status":     "running",
		"service":    "irsharpd",
		"version":    info.Version,
		"commit":     info.Commit,
		"build_time": info.BuildTime,
	}

	json.NewEncoder(w).Encode(response)
}

// HandleCaptures handles the /api/captures endpoint. Query parameters:
// page, per_page, and an optional protocol filter.
func (a *API) HandleCaptures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(r, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	response := map[string]interface{}{
		"captures": []archive.Capture{},
		"total":    int64(0),
		"page":     page,
		"per_page": perPage,
	}

	if a.captures != nil {
		if protocol := r.URL.Query().Get("protocol"); protocol != "" {
			captures, err := a.captures.GetByProtocol(protocol, perPage)
			if err != nil {
				a.logger.Error("Failed to query captures by protocol", logger.Error(err))
				http.Error(w, "archive query failed", http.StatusInternalServerError)
				return
			}
			response["captures"] = captures
			response["total"] = int64(len(captures))
			response["page"] = 1
		} else {
			captures, total, err := a.captures.GetRecentPaginated(page, perPage)
			if err != nil {
				a.logger.Error("Failed to query captures", logger.Error(err))
				http.Error(w, "archive query failed", http.StatusInternalServerError)
				return
			}
			response["captures"] = captures
			response["total"] = total
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// HandleStats handles the /api/stats endpoint
func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{}

	if a.metrics != nil {
		response["captures_received"] = a.metrics.GetCaptures()
		response["pulses_received"] = a.metrics.GetPulsesReceived()
		response["decodes"] = a.metrics.DecodeCounts()
		response["decode_failures"] = a.metrics.DecodeFailureCounts()
		response["transmits"] = a.metrics.TransmitCounts()
		response["transmit_failures"] = a.metrics.GetTransmitFailures()
		response["captures_archived"] = a.metrics.GetArchived()
		response["transceiver_up"] = a.metrics.IsTransceiverUp()
	}

	if a.captures != nil {
		counts, err := a.captures.CountByProtocol()
		if err != nil {
			a.logger.Error("Failed to count archived captures", logger.Error(err))
		} else {
			response["archive"] = counts
		}
	}

	json.NewEncoder(w).Encode(response)
}

// queryInt parses an integer query parameter, falling back on the default
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
