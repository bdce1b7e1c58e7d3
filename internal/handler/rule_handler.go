package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/pkg/errcode"
	"github.com/docrankhq/docrank/internal/pkg/response"
	"github.com/docrankhq/docrank/internal/service"
)

type RuleHandler struct {
	rules     *service.RuleService
	retrieval *service.RetrievalService
}

func NewRuleHandler(rules *service.RuleService, retrieval *service.RetrievalService) *RuleHandler {
	return &RuleHandler{rules: rules, retrieval: retrieval}
}

type ruleRequest struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Weight     float64           `json:"weight"`
	Predicates []model.Predicate `json:"predicates"`
	Question   string            `json:"question"`
	Active     *bool             `json:"active"`
}

func (r *ruleRequest) toModel() *model.Rule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.Rule{
		Name:       r.Name,
		Type:       r.Type,
		Weight:     r.Weight,
		Predicates: r.Predicates,
		Question:   r.Question,
		Active:     active,
	}
}

func (h *RuleHandler) Create(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	rule := req.toModel()
	if err := h.rules.Create(c.Request.Context(), getUserID(c), rule); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rule)
}

func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": rules})
}

func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	rule := req.toModel()
	rule.ID = c.Param("id")
	if err := h.rules.Update(c.Request.Context(), getUserID(c), rule); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rule)
}

func (h *RuleHandler) Delete(c *gin.Context) {
	if err := h.rules.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

type rankRequest struct {
	FileIDs []string `json:"file_ids"`
	RuleIDs []string `json:"rule_ids"`
}

// Rank is the synchronous rule-authoring surface: it evaluates the caller's
// basic rules against explicit files without search or streaming.
func (h *RuleHandler) Rank(c *gin.Context) {
	var req rankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	userID := getUserID(c)
	rules, err := h.rules.ListActive(c.Request.Context(), userID, model.RuleTypeBasic)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(req.RuleIDs) > 0 {
		wanted := make(map[string]bool, len(req.RuleIDs))
		for _, id := range req.RuleIDs {
			wanted[id] = true
		}
		filtered := rules[:0]
		for _, rule := range rules {
			if wanted[rule.ID] {
				filtered = append(filtered, rule)
			}
		}
		rules = filtered
	}
	rankings, err := h.retrieval.RankFiles(c.Request.Context(), userID, rules, req.FileIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": rankings})
}
