package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/albertniderhofer/S3PolicyManager/cmd/policy_api/app/internal/services"
	"github.com/albertniderhofer/S3PolicyManager/pkg/types"
)

type RulesHandler struct {
	service *services.RuleIndexService
	log     *zap.Logger
}

func NewRulesHandler(db *gorm.DB, log *zap.Logger) *RulesHandler {
	return &RulesHandler{service: services.NewRuleIndexService(db), log: log}
}

// LookupRules serves GET /user-policies: the denormalized rule index,
// optionally filtered by `user` and/or `domain` query parameters.
func (h *RulesHandler) LookupRules(c *gin.Context) {
	ec, ok := execContext(c)
	if !ok {
		return
	}
	entries, err := h.service.LookupRules(ec, c.Query("user"), c.Query("domain"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.Success(entries))
}
