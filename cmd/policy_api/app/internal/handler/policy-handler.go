package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/cmd/policy_api/app/internal/services"
	"github.com/albertniderhofer/S3PolicyManager/middlewares"
	"github.com/albertniderhofer/S3PolicyManager/pkg/apperr"
	"github.com/albertniderhofer/S3PolicyManager/pkg/authctx"
	"github.com/albertniderhofer/S3PolicyManager/pkg/kafka"
	"github.com/albertniderhofer/S3PolicyManager/pkg/models"
	"github.com/albertniderhofer/S3PolicyManager/pkg/repositories"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

type PolicyHandler struct {
	service *services.PolicyService
	log     *zap.Logger
}

func NewPolicyHandler(db *gorm.DB, producer *kafka.Producer, topic string, log *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		service: services.NewPolicyService(db, producer, topic, log),
		log:     log,
	}
}

type createPolicyRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Enabled     *bool               `json:"enabled"`
	Rules       []models.PolicyRule `json:"rules" binding:"required"`
}

type updatePolicyRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Enabled     *bool               `json:"enabled"`
	Rules       []models.PolicyRule `json:"rules"`
}

func (h *PolicyHandler) CreatePolicy(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	var req createPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(string(apperr.KindValidation), err.Error()))
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	policy, err := h.service.CreatePolicy(c.Request.Context(), ec, repositories.PolicyDraft{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabled,
		Rules:       req.Rules,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, types.Success(policy))
}

func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(string(apperr.KindValidation), "invalid policy id"))
		return
	}
	policy, err := h.service.GetPolicy(ec, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.Success(policy))
}

func (h *PolicyHandler) ListPolicies(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	opts := repositories.ListOptions{Status: c.Query("status")}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	policies, err := h.service.ListPolicies(ec, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.Success(policies))
}

func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(string(apperr.KindValidation), "invalid policy id"))
		return
	}
	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(string(apperr.KindValidation), err.Error()))
		return
	}
	policy, err := h.service.UpdatePolicy(c.Request.Context(), ec, id, repositories.PolicyPatch{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Rules:       req.Rules,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.Success(policy))
}

func (h *PolicyHandler) DeletePolicy(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.Failure(string(apperr.KindValidation), "invalid policy id"))
		return
	}
	if err := h.service.DeletePolicy(c.Request.Context(), ec, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.Success(gin.H{"policyId": id.String(), "status": models.StatusDeleted}))
}

func execContext(c *gin.Context) (*authctx.ExecutionContext, bool) {
	ec, ok := middlewares.ExecutionContextFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			types.Failure(string(apperr.KindUnauthorized), "missing execution context"))
		return nil, false
	}
	return ec, true
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), types.Failure(string(apperr.KindOf(err)), apperr.PublicMessage(err)))
}
