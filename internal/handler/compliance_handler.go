package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aix-dean/mailcourier/internal/compliance"
	"github.com/gofiber/fiber/v2"
)

type ComplianceService interface {
	AuditDomain(ctx context.Context, domainName string) (*compliance.Report, error)
}

type ComplianceHandler struct {
	service ComplianceService
}

func NewComplianceHandler(service ComplianceService) (*ComplianceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("compliance service is required")
	}
	return &ComplianceHandler{service: service}, nil
}

func RegisterComplianceRoutes(router fiber.Router, service ComplianceService) error {
	h, err := NewComplianceHandler(service)
	if err != nil {
		return err
	}

	router.Group("/v1").Get("/compliance/:domain", h.AuditDomain)
	return nil
}

func (h *ComplianceHandler) AuditDomain(c *fiber.Ctx) error {
	domainName := strings.TrimSpace(c.Params("domain"))
	report, err := h.service.AuditDomain(c.UserContext(), domainName)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(report)
}
