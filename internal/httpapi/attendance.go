package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventdesk/internal/attendance"
)

type scanRequest struct {
	Scan string `json:"scan" binding:"required"`
}

// Scan records attendance for a raw scanned payload. Repeat scans on the same
// day return 200 with already_recorded instead of an error.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.attendance.Record(c.Request.Context(), req.Scan, time.Now())
	if err != nil {
		if errors.Is(err, attendance.ErrParticipantNotFound) {
			h.fail(c, http.StatusNotFound, "scan_not_found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	key := "scan_recorded"
	status := http.StatusCreated
	data := map[string]any{"Name": res.Participant.Name}
	if res.AlreadyRecorded {
		key = "scan_already_recorded"
		status = http.StatusOK
		data = map[string]any{"Time": res.Record.AttendanceTime.Format("15:04")}
	}
	c.JSON(status, gin.H{
		"message":          h.tr.T(locale(c), key, data),
		"participant":      res.Participant,
		"record":           res.Record,
		"already_recorded": res.AlreadyRecorded,
	})
}

// ListAttendance returns attendance rows for a date or inclusive range.
// Defaults to today when no filter is given.
func (h *Handler) ListAttendance(c *gin.Context) {
	rows, err := h.attendanceRows(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": rows})
}

// ExportAttendanceCSV streams the selected rows as CSV.
func (h *Handler) ExportAttendanceCSV(c *gin.Context) {
	rows, err := h.attendanceRows(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := attendance.WriteCSV(c.Writer, rows); err != nil {
		_ = c.Error(err)
	}
}

// ExportAttendanceXLSX streams the selected rows as a styled workbook.
func (h *Handler) ExportAttendanceXLSX(c *gin.Context) {
	rows, err := h.attendanceRows(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := attendance.BuildXLSX(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (h *Handler) attendanceRows(c *gin.Context) ([]attendance.ExportRow, error) {
	ctx := c.Request.Context()
	if date := c.Query("date"); date != "" {
		if err := validDay(date); err != nil {
			return nil, err
		}
		return h.attExports.ListByDate(ctx, date)
	}
	from, to := c.Query("from"), c.Query("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			return nil, fmt.Errorf("from and to must be given together")
		}
		if err := validDay(from); err != nil {
			return nil, err
		}
		if err := validDay(to); err != nil {
			return nil, err
		}
		return h.attExports.ListRange(ctx, from, to)
	}
	return h.attExports.ListByDate(ctx, attendance.DayKey(time.Now()))
}

func validDay(s string) error {
	if _, err := time.Parse(attendance.DayFormat, s); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return nil
}
