package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lintel.app/tracker/internal/http/dto"
	"lintel.app/tracker/internal/issue"
	"lintel.app/tracker/internal/service"
	"lintel.app/tracker/internal/store"
)

type IssueHandler struct {
	issueService service.IssueService
}

func NewIssueHandler(issueService service.IssueService) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
	}
}

// Create registers a new issue record
func (h *IssueHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: project_key is required"})
		return
	}

	severity, ok := severityFromRequest(c, req.Severity)
	if !ok {
		return
	}

	record, err := h.issueService.Create(ctx, service.CreateIssueParams{
		ProjectKey:    req.ProjectKey,
		ComponentKey:  req.ComponentKey,
		RuleKey:       req.RuleKey,
		Status:        req.Status,
		Severity:      severity,
		Message:       req.Message,
		Line:          req.Line,
		Gap:           req.Gap,
		EffortMinutes: req.EffortMinutes,
		Tags:          req.Tags,
		CodeVariants:  req.CodeVariants,
	})
	if err != nil {
		var vErr *issue.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to create issue", "error", err, "project_key", req.ProjectKey)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create issue"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToIssueResponse(record))
}

// GetByKey returns a single issue with its comments and change ledger
func (h *IssueHandler) GetByKey(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	record, err := h.issueService.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch issue", "error", err, "issue_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch issue"})
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueResponse(record))
}

// Update applies a partial update to an issue. Authorship of the resulting
// change comes from the X-User-UUID, X-External-User and X-Webhook-Source
// headers; validation failures surface as 400 with the validator's message.
func (h *IssueHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	var req dto.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	severity, ok := severityFromRequest(c, req.Severity)
	if !ok {
		return
	}

	record, err := h.issueService.ApplyChanges(ctx, key, changeContextFromHeaders(c), service.FieldUpdates{
		Status:        req.Status,
		Severity:      severity,
		Message:       req.Message,
		Line:          req.Line,
		Gap:           req.Gap,
		EffortMinutes: req.EffortMinutes,
		Tags:          req.Tags,
		CodeVariants:  req.CodeVariants,

		IsOnChangedLine:                 req.IsOnChangedLine,
		IsNewCodeReferenceIssue:         req.IsNewCodeReferenceIssue,
		IsNoLongerNewCodeReferenceIssue: req.IsNoLongerNewCodeReferenceIssue,
		QuickFixAvailable:               req.QuickFixAvailable,

		AnticipatedTransitionUUID: req.AnticipatedTransitionUUID,
		CloseDate:                 req.CloseDate,
	})
	if err != nil {
		var vErr *issue.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
		default:
			slog.ErrorContext(ctx, "failed to update issue", "error", err, "issue_key", key)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update issue"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueResponse(record))
}

// ListChanges returns the issue's change ledger, oldest first
func (h *IssueHandler) ListChanges(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	record, err := h.issueService.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch issue changes", "error", err, "issue_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch issue changes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"changes": dto.ToChangeResponses(record.Changes())})
}

// AddComment appends a markdown comment to an issue
func (h *IssueHandler) AddComment(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: markdown_text is required"})
		return
	}

	record, err := h.issueService.AddComment(ctx, key, req.UserUUID, req.MarkdownText)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to add comment", "error", err, "issue_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add comment"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToIssueResponse(record))
}

// ListByProject lists every issue of a project
func (h *IssueHandler) ListByProject(c *gin.Context) {
	ctx := c.Request.Context()
	projectKey := c.Param("projectKey")

	records, err := h.issueService.ListByProject(ctx, projectKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list issues", "error", err, "project_key", projectKey)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list issues"})
		return
	}

	issues := make([]*dto.IssueResponse, len(records))
	for i, record := range records {
		issues[i] = dto.ToIssueResponse(record)
	}

	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// Delete removes an issue record
func (h *IssueHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.Param("key")

	if err := h.issueService.Delete(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete issue", "error", err, "issue_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete issue"})
		return
	}

	c.Status(http.StatusNoContent)
}

// severityFromRequest rejects unknown severities before they reach the
// service, echoing the record's own validation message.
func severityFromRequest(c *gin.Context, raw *string) (*issue.Severity, bool) {
	if raw == nil {
		return nil, true
	}
	sev := issue.Severity(*raw)
	if !sev.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a valid severity: " + *raw})
		return nil, false
	}
	return &sev, true
}

func changeContextFromHeaders(c *gin.Context) issue.ChangeContext {
	changeCtx := issue.ChangeContext{Date: time.Now()}
	if v := c.GetHeader("X-User-UUID"); v != "" {
		changeCtx.UserUUID = &v
	}
	if v := c.GetHeader("X-External-User"); v != "" {
		changeCtx.ExternalUser = &v
	}
	if v := c.GetHeader("X-Webhook-Source"); v != "" {
		changeCtx.WebhookSource = &v
	}
	return changeCtx
}
