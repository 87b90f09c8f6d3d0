// handlers/monitoring.go
package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"player-monitor-system/middleware"
	"player-monitor-system/models"
	"player-monitor-system/services"
)

// MonitorRunner starts pipeline runs.
type MonitorRunner interface {
	RunBatchPoll(ctx context.Context) (models.RunSummary, error)
	RunTargetedCheck(ctx context.Context, usernames []string) (models.RunSummary, error)
}

type JobHistory interface {
	ListRecent(ctx context.Context, limit int) ([]models.MonitoringJob, error)
	Get(ctx context.Context, id string) (*models.MonitoringJob, error)
}

type MonitoringHandler struct {
	Runner   MonitorRunner
	Jobs     JobHistory
	validate *validator.Validate
}

type checkRequest struct {
	Usernames []string `validate:"max=200,dive,required,max=64"`
}

func NewMonitoringHandler(runner MonitorRunner, jobs JobHistory) *MonitoringHandler {
	return &MonitoringHandler{Runner: runner, Jobs: jobs, validate: validator.New()}
}

func SetupMonitoringRoutes(app *fiber.App, h *MonitoringHandler, triggerToken string) {
	// 🔐 operator-only
	monitoring := app.Group("/monitoring", middleware.TriggerAuthMiddleware(triggerToken))

	monitoring.Post("/batch-poll", h.BatchPoll)
	monitoring.Post("/check", h.Check)
	monitoring.Get("/jobs", h.ListJobs)
	monitoring.Get("/jobs/:id", h.GetJob)
}

func (h *MonitoringHandler) BatchPoll(c *fiber.Ctx) error {
	summary, err := h.Runner.RunBatchPoll(c.UserContext())
	return respondRun(c, summary, err)
}

// Check runs a targeted check. Without a usernames field every monitored
// player is checked.
func (h *MonitoringHandler) Check(c *fiber.Ctx) error {
	usernames, err := parseUsernames(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "usernames must be a list of strings",
			"cause": err.Error(),
		})
	}
	if err := h.validate.Struct(checkRequest{Usernames: usernames}); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid usernames",
			"cause": err.Error(),
		})
	}

	summary, err := h.Runner.RunTargetedCheck(c.UserContext(), usernames)
	return respondRun(c, summary, err)
}

// parseUsernames returns nil when the body or the field is absent or null.
func parseUsernames(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	raw, ok := fields["usernames"]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	usernames := []string{}
	if err := json.Unmarshal(raw, &usernames); err != nil {
		return nil, err
	}
	return usernames, nil
}

func respondRun(c *fiber.Ctx, summary models.RunSummary, err error) error {
	switch {
	case err == nil:
		return c.JSON(summary)
	case errors.Is(err, services.ErrRunInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a monitoring run is already in progress",
		})
	case summary.Status == models.JobStatusFailed:
		return c.Status(fiber.StatusInternalServerError).JSON(summary)
	default:
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "could not start monitoring run",
			"cause": err.Error(),
		})
	}
}

func (h *MonitoringHandler) ListJobs(c *fiber.Ctx) error {
	limit := services.DefaultJobListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}

	jobs, err := h.Jobs.ListRecent(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load jobs",
			"cause": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func (h *MonitoringHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.Jobs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load job",
			"cause": err.Error(),
		})
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(job)
}
