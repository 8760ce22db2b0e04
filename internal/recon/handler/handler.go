package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/harborline/merchops/internal/recon/service"
)

// Handlers is the reconciliation handler set.
type Handlers struct {
	Vendor     *VendorHandler
	Projection *ProjectionHandler
	Match      *MatchHandler
	Report     *ReportHandler
}

// NewHandlers creates the reconciliation handler set.
func NewHandlers(
	vendorSvc *service.VendorService,
	lifecycleSvc *service.LifecycleService,
	matchingSvc *service.MatchingService,
	importSvc *service.ImportService,
	archivalSvc *service.ArchivalService,
	reportingSvc *service.ReportingService,
	projections ProjectionReader,
	history HistoryReader,
	expired ExpiredReader,
) *Handlers {
	return &Handlers{
		Vendor:     NewVendorHandler(vendorSvc),
		Projection: NewProjectionHandler(lifecycleSvc, projections, history, expired),
		Match:      NewMatchHandler(matchingSvc, importSvc, archivalSvc),
		Report:     NewReportHandler(reportingSvc),
	}
}

// === Response helpers ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 200 {
		pageSize = v
	}
	return page, pageSize
}

func listResponse(items interface{}, page, pageSize int, total int64) ListResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	}
}
