package handler

import (
	"context"
	"errors"
	"net/http"

	"fintrack/internal/infra/lock"
	"fintrack/internal/scheduler"
	recurring "fintrack/internal/usecase/recurring_usecase"

	"github.com/labstack/echo/v4"
)

// リース付きで1回分を実行する（scheduler.Runner）
type RecurringPassRunner interface {
	RunRecurringPass(ctx context.Context) (recurring.ProcessSummary, error)
	RunCleanup(ctx context.Context) (scheduler.CleanupResult, error)
}

type RecurringProcessor interface {
	ProcessRecurringById(ctx context.Context, recurringID string) (bool, error)
}

// 運用向け。スケジューラを待たずに手動で実行する。
type AdminHandler struct {
	runner     RecurringPassRunner
	recurrings RecurringProcessor
	dev        bool
}

func NewAdminHandler(runner RecurringPassRunner, recurrings RecurringProcessor, dev bool) *AdminHandler {
	return &AdminHandler{runner: runner, recurrings: recurrings, dev: dev}
}

func (h *AdminHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/recurrings/process", h.ProcessAll)
	g.POST("/recurrings/:id/process", h.ProcessOne)
	g.POST("/maintenance/cleanup", h.Cleanup)
}

func (h *AdminHandler) ProcessAll(c echo.Context) error {
	sum, err := h.runner.RunRecurringPass(c.Request().Context())
	if errors.Is(err, lock.ErrNotAcquired) {
		return writeError(c, http.StatusConflict, "Ya hay una ejecución en curso")
	}
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *AdminHandler) ProcessOne(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeError(c, http.StatusBadRequest, "id inválido")
	}

	created, err := h.recurrings.ProcessRecurringById(c.Request().Context(), id)
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, map[string]bool{"created": created})
}

func (h *AdminHandler) Cleanup(c echo.Context) error {
	res, err := h.runner.RunCleanup(c.Request().Context())
	if errors.Is(err, lock.ErrNotAcquired) {
		return writeError(c, http.StatusConflict, "Ya hay una ejecución en curso")
	}
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, res)
}
