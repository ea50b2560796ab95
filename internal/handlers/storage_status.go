package handlers

import "net/http"

type availabilityReporter interface {
	IsAvailable() bool
}

type StorageStatusHandler struct {
	store availabilityReporter
}

func NewStorageStatusHandler(store availabilityReporter) *StorageStatusHandler {
	return &StorageStatusHandler{store: store}
}

// Status reports which medium served the last operation. Informational
// only: the UI shows a banner, nothing changes behavior.
func (h *StorageStatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	backend := "local"
	if h.store.IsAvailable() {
		backend = "remote"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available": h.store.IsAvailable(),
		"backend":   backend,
	})
}
