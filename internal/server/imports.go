package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/geoatlas/internal/importledger/domain"
	obslogger "github.com/smallbiznis/geoatlas/internal/observability/logger"
	placedomain "github.com/smallbiznis/geoatlas/internal/place/domain"
	"github.com/smallbiznis/geoatlas/pkg/db/pagination"
)

func (s *Server) ListImports(c *gin.Context) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil || pageSize < 0 {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a positive integer"))
		return
	}
	startAt, err := parseOptionalTime(c.Query("start_at"), false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "start_at must be RFC3339 or YYYY-MM-DD"))
		return
	}
	endAt, err := parseOptionalTime(c.Query("end_at"), true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "end_at must be RFC3339 or YYYY-MM-DD"))
		return
	}
	country, present := c.GetQuery("country")

	resp, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: c.Query("page_token"),
			PageSize:  pageSize,
		},
		Category:   c.Query("category"),
		Country:    parseOptionalString(country, present),
		SourceFile: c.Query("source_file"),
		Status:     c.Query("status"),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obslogger.ResultCountKey, len(resp.Entries))
	c.JSON(http.StatusOK, resp)
}

// CheckImported reports whether a category/country pair has completed
// imports, letting operators skip a re-run.
func (s *Server) CheckImported(c *gin.Context) {
	category, err := placedomain.ParseCategory(c.Query("category"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	country := c.Query("country")

	imported, err := s.ledgerSvc.HasImported(c.Request.Context(), category, country)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"category": category,
		"country":  country,
		"imported": imported,
	})
}
