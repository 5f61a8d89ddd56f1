package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskhub/internal/api/middleware"
	"taskhub/internal/model"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

// looseBool 兼容历史前端的 completed 取值：JSON 布尔按原义，
// 字符串只有 "yes"（忽略大小写）算 true，其余一律为 false。
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = looseBool(t)
	case string:
		*b = looseBool(strings.EqualFold(t, "yes"))
	default:
		*b = false
	}
	return nil
}

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   looseBool  `json:"completed"`
}

// updateTaskRequest 部分更新的请求参数，nil 表示不改动。
type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *looseBool `json:"completed"`
}

func failTask(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// parseTaskID 解析路径参数中的任务 ID。
func parseTaskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		failTask(c, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return uint(id), true
}

// handleListTasks 返回当前用户的任务列表，新建在前。
//
// GET /api/Task/Task
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.ListByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		failTask(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

// handleCreateTask 创建任务，归属强制为当前用户。
//
// POST /api/Task/Task
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failTask(c, http.StatusBadRequest, "title is required")
		return
	}

	priority := model.Priority(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = model.PriorityLow
	}
	if !priority.Valid() {
		failTask(c, http.StatusBadRequest, "priority must be Low, Medium or High")
		return
	}

	task := model.Task{
		UserID:      middleware.UserID(c),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		Completed:   bool(req.Completed),
	}
	if task.Title == "" {
		failTask(c, http.StatusBadRequest, "title is required")
		return
	}

	if err := s.tasks.Create(c.Request.Context(), &task); err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		failTask(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "task created", "task": task})
}

// handleGetTask 返回当前用户名下的单个任务。
// 非属主的任务与不存在的任务返回完全一致的 404。
//
// GET /api/Task/:id/Task
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := s.tasks.GetByID(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			failTask(c, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("get task failed", slog.String("error", err.Error()))
		failTask(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// handleUpdateTask 对当前用户名下的任务做部分更新。
//
// PUT /api/Task/:id/Task
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failTask(c, http.StatusBadRequest, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			failTask(c, http.StatusBadRequest, "title must not be empty")
			return
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		priority := model.Priority(strings.TrimSpace(*req.Priority))
		if !priority.Valid() {
			failTask(c, http.StatusBadRequest, "priority must be Low, Medium or High")
			return
		}
		updates["priority"] = priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Completed != nil {
		updates["completed"] = bool(*req.Completed)
	}

	if len(updates) == 0 {
		failTask(c, http.StatusBadRequest, "no updates")
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), middleware.UserID(c), id, updates)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			failTask(c, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("update task failed", slog.String("error", err.Error()))
		failTask(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// handleDeleteTask 删除当前用户名下的任务。
//
// DELETE /api/Task/:id/Task
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			failTask(c, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		failTask(c, http.StatusInternalServerError, "server error, please try again later")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "task deleted"})
}
