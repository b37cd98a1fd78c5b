package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bizreport/api/internal/response"
	"bizreport/api/internal/service"
)

// Form parts beyond this are spooled to temporary files.
const multipartMemory = 8 << 20

func reportListQuery(c *gin.Context) service.ReportListQuery {
	return service.ReportListQuery{
		Page:       service.ParseInt(c.Query("page")),
		Limit:      service.ParseInt(c.Query("limit")),
		BusinessID: c.Query("businessId"),
		ReportType: c.Query("reportType"),
		Search:     c.Query("search"),
		FromDate:   c.Query("fromDate"),
		ToDate:     c.Query("toDate"),
	}
}

// CreateReport accepts multipart/form-data with optional photo and video
// parts. A urlencoded body is accepted for reports without attachments.
func (h HandlerSet) CreateReport(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Upload is too large", "PAYLOAD_TOO_LARGE")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Upload is too large", "PAYLOAD_TOO_LARGE")
			return
		}
		response.Fail(c, http.StatusBadRequest, "Invalid form body", "VALIDATION_BODY_INVALID")
		return
	}
	if form := c.Request.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	photo, closePhoto, err := openAttachment(c, "photo")
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closePhoto()
	video, closeVideo, err := openAttachment(c, "video")
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeVideo()

	detail, err := h.reports.Create(c.Request.Context(), service.CreateReportInput{
		OwnerUserID: identity(c).UserID,
		BusinessID:  c.Request.FormValue("businessId"),
		ReportType:  c.Request.FormValue("reportType"),
		Data:        c.Request.FormValue("data"),
		Notes:       c.Request.FormValue("notes"),
		Photo:       photo,
		Video:       video,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "report_created", gin.H{"report": newReportResponse(detail)})
}

func noop() {}

func openAttachment(c *gin.Context, field string) (*service.Attachment, func(), error) {
	form := c.Request.MultipartForm
	if form == nil || len(form.File[field]) == 0 {
		return nil, noop, nil
	}
	header := form.File[field][0]
	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.Attachment{
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}, func() { _ = file.Close() }, nil
}

func (h HandlerSet) MyReports(c *gin.Context) {
	list, err := h.reports.ListMine(c.Request.Context(), identity(c).UserID, reportListQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	sendReportList(c, "reports_list", list)
}

func (h HandlerSet) MyReportStats(c *gin.Context) {
	stats, err := h.reports.StatsMine(c.Request.Context(), identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "reports_stats", stats)
}

func (h HandlerSet) MyReport(c *gin.Context) {
	detail, err := h.reports.GetMine(c.Request.Context(), identity(c).UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "report_details", gin.H{"report": newReportResponse(detail)})
}

func (h HandlerSet) AdminListReports(c *gin.Context) {
	list, err := h.reports.List(c.Request.Context(), reportListQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	sendReportList(c, "admin_reports_list", list)
}

func (h HandlerSet) AdminGetReport(c *gin.Context) {
	detail, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, "admin_report_details", gin.H{"report": newReportResponse(detail)})
}

func sendReportList(c *gin.Context, message string, list service.ReportList) {
	response.OK(c, http.StatusOK, message, gin.H{
		"reports":        newReportResponses(list.Reports),
		"pagination":     list.Pagination,
		"appliedFilters": list.Filters,
	})
}
