package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mainframe-ci/ispw-generate/internal/dispatcher"
	"github.com/mainframe-ci/ispw-generate/internal/inputs"
	"github.com/mainframe-ci/ispw-generate/internal/metrics"
	"github.com/mainframe-ci/ispw-generate/internal/storage"
	"github.com/mainframe-ci/ispw-generate/pkg/types"
)

type Handler struct {
	store      storage.Store
	dispatcher *dispatcher.Dispatcher
}

func NewHandler(store storage.Store, d *dispatcher.Dispatcher) *Handler {
	return &Handler{
		store:      store,
		dispatcher: d,
	}
}

func (h *Handler) QueueRun(c *fiber.Ctx) error {
	var req types.QueueRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid request body"})
	}

	params := &types.BuildParams{
		ContainerID: req.ContainerID,
		ReleaseID:   req.ReleaseID,
		TaskLevel:   req.TaskLevel,
		TaskIDs:     req.TaskIDs,
	}

	if diags, ok := inputs.Validate(params, inputs.RequiredBuildFields); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
			Error:   "Invalid build parameters",
			Details: diags,
		})
	}

	record := &storage.RunRecord{
		ID:            uuid.NewString(),
		Status:        types.StatusQueued,
		CesURL:        req.CesURL,
		Srid:          req.Srid,
		Token:         req.Token,
		ContainerID:   req.ContainerID,
		ReleaseID:     req.ReleaseID,
		TaskLevel:     req.TaskLevel,
		TaskIDs:       req.TaskIDs,
		RuntimeConfig: req.RuntimeConfig,
		ChangeType:    req.ChangeType,
		ExecStat:      req.ExecStat,
		AutoDeploy:    req.AutoDeploy,
		CreatedAt:     time.Now(),
	}

	if err := h.store.CreateRun(c.Context(), record); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to queue run"})
	}
	metrics.IncRunsCreated()

	return c.Status(fiber.StatusCreated).JSON(types.QueueRunResponse{
		ID:     record.ID,
		Status: record.Status,
	})
}

func (h *Handler) GetRun(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Run ID is required"})
	}

	record, err := h.store.GetRun(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to get run"})
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(types.ErrorResponse{Error: "Run not found"})
	}

	return c.JSON(recordToRun(record))
}

func (h *Handler) ListRuns(c *fiber.Ctx) error {
	filter := storage.RunFilter{
		Limit: c.QueryInt("limit", 100),
	}

	if statusParam := c.Query("status"); statusParam != "" {
		status := types.RunStatus(statusParam)
		switch status {
		case types.StatusQueued, types.StatusProcessing, types.StatusCompleted, types.StatusFailed:
			filter.Status = &status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid status filter"})
		}
	}

	if cursorParam := c.Query("cursor"); cursorParam != "" {
		cursor, err := time.Parse(time.RFC3339Nano, cursorParam)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid cursor"})
		}
		filter.Cursor = &cursor
	}

	records, total, err := h.store.ListRuns(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to list runs"})
	}

	resp := types.ListRunsResponse{
		Runs:  make([]types.Run, 0, len(records)),
		Total: total,
		Limit: filter.Limit,
	}
	for _, record := range records {
		resp.Runs = append(resp.Runs, recordToRun(record))
	}

	if len(records) == filter.Limit && len(records) > 0 {
		cursor := records[len(records)-1].CreatedAt.Format(time.RFC3339Nano)
		resp.NextCursor = &cursor
	}

	return c.JSON(resp)
}

func (h *Handler) TriggerDispatch(c *fiber.Ctx) error {
	stats, err := h.store.GetStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to get stats"})
	}

	dispatchID := uuid.NewString()
	h.dispatcher.Go(dispatchID)

	return c.Status(fiber.StatusAccepted).JSON(types.DispatchResponse{
		DispatchID:  dispatchID,
		QueuedCount: stats.Queued,
		Status:      "dispatching",
	})
}

func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.GetStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to get stats"})
	}
	return c.JSON(stats)
}
