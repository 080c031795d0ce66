package handler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fadilmartias/cv-evaluator/internal/dto"
	"github.com/fadilmartias/cv-evaluator/internal/executor"
	"github.com/fadilmartias/cv-evaluator/internal/middleware"
	"github.com/fadilmartias/cv-evaluator/internal/registry"
	"github.com/fadilmartias/cv-evaluator/internal/response"
	"github.com/fadilmartias/cv-evaluator/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxUploadSize = 5 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
}

type EvaluateHandler struct {
	registry  *registry.Registry
	executor  *executor.Executor
	uploadDir string
}

func NewEvaluateHandler(reg *registry.Registry, exec *executor.Executor, uploadDir string) *EvaluateHandler {
	return &EvaluateHandler{registry: reg, executor: exec, uploadDir: uploadDir}
}

func (h *EvaluateHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/evaluate", middleware.RateLimiter(1, 4*time.Second), h.Evaluate)
	app.Get("/result/:id", h.Result)
	app.Get("/tasks", h.Tasks)
}

// Evaluate accepts the CV and project report uploads, creates a queued
// task and schedules it. The response returns immediately; clients poll
// /result/:id for the outcome.
func (h *EvaluateHandler) Evaluate(c *fiber.Ctx) error {
	cvHandle, err := h.saveUpload(c, "cv")
	if err != nil {
		return err
	}
	reportHandle, err := h.saveUpload(c, "project_report")
	if err != nil {
		return err
	}

	task, err := h.registry.Create(c.Context(), registry.CreateInput{
		CVHandle:       cvHandle,
		ReportHandle:   reportHandle,
		JobDescription: c.FormValue("job_description"),
	})
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to create evaluation task",
		}, err)
	}

	h.executor.Submit(task.ID)

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Code:    fiber.StatusAccepted,
		Message: "Evaluation task created",
		Data:    fiber.Map{"id": task.ID, "status": task.Status},
	})
}

func (h *EvaluateHandler) Result(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid task id",
		}, err)
	}

	task, err := h.registry.Get(c.Context(), id)
	if errors.Is(err, registry.ErrNotFound) {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "task not found",
		})
	}
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to load task",
		}, err)
	}

	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get evaluation result",
		Data:    dto.FromTask(task),
	})
}

func (h *EvaluateHandler) Tasks(c *fiber.Ctx) error {
	tasks, err := h.registry.List(c.Context())
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list tasks",
		}, err)
	}

	items := make([]dto.EvaluationTaskDTO, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.FromTask(&tasks[i]))
	}

	page, pagination := response.Paginate(items, c.QueryInt("page", 1), c.QueryInt("page_size", 20))
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success list evaluation tasks",
		Data:       page,
		Pagination: pagination,
	})
}

func (h *EvaluateHandler) saveUpload(c *fiber.Ctx, fieldName string) (string, error) {
	file, err := c.FormFile(fieldName)
	if err != nil {
		return "", util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("%s file is required", fieldName),
		}, err)
	}

	if file.Size > maxUploadSize {
		return "", util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("%s file size is too large (max 5MB)", fieldName),
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: fmt.Sprintf("unsupported %s file type (allowed: PDF, DOCX, TXT)", fieldName),
		})
	}

	savePath := filepath.Join(h.uploadDir, fieldName, fmt.Sprintf("%s%s", uuid.NewString(), ext))
	if err := c.SaveFile(file, savePath); err != nil {
		return "", util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: fmt.Sprintf("cannot save %s file", fieldName),
		}, err)
	}

	return savePath, nil
}
