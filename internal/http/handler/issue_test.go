package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lintel.app/tracker/internal/http/handler"
	"lintel.app/tracker/internal/issue"
	"lintel.app/tracker/internal/service"
	"lintel.app/tracker/internal/store"
)

var _ = Describe("IssueHandler", func() {
	var (
		router *gin.Engine
		svc    *mockIssueService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockIssueService{}
		h := handler.NewIssueHandler(svc)

		router.POST("/api/v1/issues", h.Create)
		router.GET("/api/v1/issues/:key", h.GetByKey)
		router.PATCH("/api/v1/issues/:key", h.Update)
		router.DELETE("/api/v1/issues/:key", h.Delete)
		router.GET("/api/v1/issues/:key/changes", h.ListChanges)
		router.POST("/api/v1/issues/:key/comments", h.AddComment)
		router.GET("/api/v1/projects/:projectKey/issues", h.ListByProject)
	})

	sampleRecord := func(key string) *issue.Issue {
		record := issue.New()
		record.SetKey(key)
		record.SetProjectKey("proj")
		record.SetRuleKey("go:S1067")
		status := "OPEN"
		Expect(record.SetStatus(&status)).To(Succeed())
		sev := issue.SeverityMajor
		Expect(record.SetSeverity(&sev)).To(Succeed())
		return record
	}

	Describe("Create", func() {
		It("returns 201 with the created issue", func() {
			svc.createFn = func(_ context.Context, params service.CreateIssueParams) (*issue.Issue, error) {
				Expect(params.ProjectKey).To(Equal("proj"))
				Expect(params.Severity).To(HaveValue(Equal(issue.SeverityMajor)))
				return sampleRecord("ISSUE-1"), nil
			}

			body, _ := json.Marshal(map[string]any{
				"project_key": "proj",
				"rule_key":    "go:S1067",
				"status":      "OPEN",
				"severity":    "MAJOR",
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["key"]).To(Equal("ISSUE-1"))
			Expect(resp["severity"]).To(Equal("MAJOR"))
		})

		It("returns 400 when project_key is missing", func() {
			body, _ := json.Marshal(map[string]any{"rule_key": "go:S1067"})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 with the validation message on a bad severity", func() {
			body, _ := json.Marshal(map[string]any{
				"project_key": "proj",
				"severity":    "FOO",
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error"]).To(Equal("Not a valid severity: FOO"))
		})
	})

	Describe("GetByKey", func() {
		It("returns 200 with the issue", func() {
			svc.getFn = func(_ context.Context, key string) (*issue.Issue, error) {
				Expect(key).To(Equal("ISSUE-1"))
				return sampleRecord("ISSUE-1"), nil
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/issues/ISSUE-1", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["key"]).To(Equal("ISSUE-1"))
			Expect(resp["project_key"]).To(Equal("proj"))
		})

		It("returns 404 for a missing issue", func() {
			svc.getFn = func(_ context.Context, _ string) (*issue.Issue, error) {
				return nil, store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/issues/missing", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Update", func() {
		It("forwards header authorship and returns the updated issue", func() {
			var captured issue.ChangeContext
			svc.applyChangesFn = func(_ context.Context, key string, changeCtx issue.ChangeContext, updates service.FieldUpdates) (*issue.Issue, error) {
				Expect(key).To(Equal("ISSUE-1"))
				Expect(updates.Status).To(HaveValue(Equal("CONFIRMED")))
				captured = changeCtx
				record := sampleRecord("ISSUE-1")
				confirmed := "CONFIRMED"
				Expect(record.SetStatus(&confirmed)).To(Succeed())
				return record, nil
			}

			body, _ := json.Marshal(map[string]any{"status": "CONFIRMED"})

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/issues/ISSUE-1", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-External-User", "toto")
			req.Header.Set("X-Webhook-Source", "github")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(captured.ExternalUser).To(HaveValue(Equal("toto")))
			Expect(captured.WebhookSource).To(HaveValue(Equal("github")))
			Expect(captured.Date).NotTo(BeZero())

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["status"]).To(Equal("CONFIRMED"))
		})

		It("returns 400 with the exact message on a validation failure", func() {
			svc.applyChangesFn = func(_ context.Context, _ string, _ issue.ChangeContext, _ service.FieldUpdates) (*issue.Issue, error) {
				record := issue.New()
				return nil, record.SetLine(intPtr(0))
			}

			body, _ := json.Marshal(map[string]any{"line": 0})

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/issues/ISSUE-1", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["error"]).To(Equal("Line must be null or greater than zero (got 0)"))
		})

		It("returns 404 when the issue does not exist", func() {
			svc.applyChangesFn = func(_ context.Context, _ string, _ issue.ChangeContext, _ service.FieldUpdates) (*issue.Issue, error) {
				return nil, store.ErrNotFound
			}

			body, _ := json.Marshal(map[string]any{"status": "CONFIRMED"})

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/issues/missing", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("ListChanges", func() {
		It("returns the change ledger with authorship", func() {
			svc.getFn = func(_ context.Context, _ string) (*issue.Issue, error) {
				record := sampleRecord("ISSUE-1")
				external := "toto"
				record.SetFieldChange(issue.ChangeContext{ExternalUser: &external}, "severity", "MAJOR", "CRITICAL")
				return record, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/issues/ISSUE-1/changes", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Changes []struct {
					ExternalUser *string `json:"external_user"`
					Diffs        []struct {
						Field    string `json:"field"`
						OldValue any    `json:"old_value"`
						NewValue any    `json:"new_value"`
					} `json:"diffs"`
				} `json:"changes"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Changes).To(HaveLen(1))
			Expect(resp.Changes[0].ExternalUser).To(HaveValue(Equal("toto")))
			Expect(resp.Changes[0].Diffs).To(HaveLen(1))
			Expect(resp.Changes[0].Diffs[0].Field).To(Equal("severity"))
			Expect(resp.Changes[0].Diffs[0].NewValue).To(Equal("CRITICAL"))
		})
	})

	Describe("AddComment", func() {
		It("returns 201 with the comment attached", func() {
			svc.addCommentFn = func(_ context.Context, key string, userUUID *string, markdownText string) (*issue.Issue, error) {
				Expect(markdownText).To(Equal("needs a second look"))
				record := sampleRecord(key)
				record.AddComment(issue.Comment{
					Key:          "COMMENT-1",
					IssueKey:     key,
					UserUUID:     userUUID,
					MarkdownText: markdownText,
				})
				return record, nil
			}

			body, _ := json.Marshal(map[string]any{
				"user_uuid":     "uuid-1",
				"markdown_text": "needs a second look",
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/issues/ISSUE-1/comments", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Comments []struct {
					Key          string `json:"key"`
					MarkdownText string `json:"markdown_text"`
				} `json:"comments"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Comments).To(HaveLen(1))
			Expect(resp.Comments[0].MarkdownText).To(Equal("needs a second look"))
		})

		It("returns 400 when markdown_text is missing", func() {
			body, _ := json.Marshal(map[string]any{"user_uuid": "uuid-1"})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/issues/ISSUE-1/comments", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("ListByProject", func() {
		It("returns every issue of the project", func() {
			svc.listByProjectFn = func(_ context.Context, projectKey string) ([]*issue.Issue, error) {
				Expect(projectKey).To(Equal("proj"))
				return []*issue.Issue{sampleRecord("ISSUE-1"), sampleRecord("ISSUE-2")}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/proj/issues", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Issues []struct {
					Key string `json:"key"`
				} `json:"issues"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Issues).To(HaveLen(2))
			Expect(resp.Issues[0].Key).To(Equal("ISSUE-1"))
		})
	})

	Describe("Delete", func() {
		It("returns 204 on success", func() {
			deleted := ""
			svc.deleteFn = func(_ context.Context, key string) error {
				deleted = key
				return nil
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/issues/ISSUE-1", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(deleted).To(Equal("ISSUE-1"))
		})

		It("returns 404 when the issue does not exist", func() {
			svc.deleteFn = func(_ context.Context, _ string) error {
				return store.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/issues/missing", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})

func intPtr(i int) *int { return &i }
