package http

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-sync-go/internal/handler/http/response"
)

type SyncHandler interface {
	Status(w http.ResponseWriter, r *http.Request)
	Run(w http.ResponseWriter, r *http.Request)
	LastReport(w http.ResponseWriter, r *http.Request)
	ListUnfetched(w http.ResponseWriter, r *http.Request)
	LegacySync(w http.ResponseWriter, r *http.Request)
	LegacyFetchAdjusted(w http.ResponseWriter, r *http.Request)
}

type syncHandlerImpl struct {
	syncService attendance.SyncService
}

func NewSyncHandler(syncService attendance.SyncService) SyncHandler {
	return &syncHandlerImpl{
		syncService: syncService,
	}
}

// Status implements SyncHandler.
func (h *syncHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, map[string]string{
		"status":  "Running",
		"message": "Employee Transaction API System Active",
	})
}

// Run implements SyncHandler.
func (h *syncHandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncService.RunSyncCycle(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Transactions sync completed", report)
}

// LastReport implements SyncHandler.
func (h *syncHandlerImpl) LastReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.syncService.LastReport()
	if !ok {
		response.NotFound(w, "No sync cycle has run yet")
		return
	}
	response.Success(w, report)
}

// ListUnfetched implements SyncHandler.
func (h *syncHandlerImpl) ListUnfetched(w http.ResponseWriter, r *http.Request) {
	rows, err := h.syncService.ListUnfetchedAdjusted(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMeta(w, rows, &response.Meta{TotalItems: int64(len(rows))})
}

// LegacySync implements SyncHandler. It keeps the body shape older consumers parse:
// {"status": "success", ...} or {"status": "error", "detail": ...}.
func (h *syncHandlerImpl) LegacySync(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncService.RunSyncCycle(r.Context())
	if err != nil {
		response.Raw(w, legacyStatus(err), map[string]any{"status": "error", "detail": err.Error()})
		return
	}
	response.Raw(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Transactions sync completed (check logs).",
		"report":  report,
	})
}

// LegacyFetchAdjusted implements SyncHandler.
func (h *syncHandlerImpl) LegacyFetchAdjusted(w http.ResponseWriter, r *http.Request) {
	rows, err := h.syncService.ListUnfetchedAdjusted(r.Context())
	if err != nil {
		response.Raw(w, legacyStatus(err), map[string]any{"status": "error", "detail": err.Error()})
		return
	}
	response.Raw(w, http.StatusOK, map[string]any{"rows": rows})
}

func legacyStatus(err error) int {
	switch {
	case errors.Is(err, attendance.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, attendance.ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
