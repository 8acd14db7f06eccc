// Package httpapi exposes the domain operations over REST and maps the
// error taxonomy to status codes: validation 400, not found 404,
// everything else 500.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"classtrack/internal/apperr"
	"classtrack/internal/attendance"
	"classtrack/internal/entries"
	"classtrack/internal/store"
	"classtrack/internal/students"
	"classtrack/internal/ws"
)

// Handler carries the wired services.
type Handler struct {
	students   *students.Service
	attendance *attendance.Service
	entries    *entries.Service
	gateway    *ws.Gateway
	db         *store.DB
}

// New creates a handler.
func New(st *students.Service, att *attendance.Service, en *entries.Service, gw *ws.Gateway, db *store.DB) *Handler {
	return &Handler{students: st, attendance: att, entries: en, gateway: gw, db: db}
}

// Register mounts all API routes on the router group.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/health", h.Health)

	api.GET("/students", h.ListStudents)
	api.POST("/students", h.CreateStudent)
	api.DELETE("/students/:id", h.DeleteStudent)
	api.POST("/students/batch", h.BatchCreateStudents)

	api.GET("/attendance", h.GetAttendance)
	api.POST("/attendance", h.RecordAttendance)

	api.GET("/entries", h.ListEntries)
	api.POST("/entries", h.CreateEntry)
	api.PUT("/entries/:id", h.UpdateEntry)
	api.DELETE("/entries/:id", h.DeleteEntry)

	r.GET("/ws", h.gateway.Handle)
}

// writeError maps a domain error onto a status code with a JSON body.
func writeError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		return
	}
	var nferr *apperr.NotFoundError
	if errors.As(err, &nferr) {
		c.JSON(http.StatusNotFound, gin.H{"error": nferr.Error()})
		return
	}
	log.Printf("httpapi: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// ---------- Health ----------

// Health reports service status and a database probe.
func (h *Handler) Health(c *gin.Context) {
	db := "ok"
	if !h.db.Healthy(c.Request.Context()) {
		db = "unreachable"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  db,
	})
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	list, err := h.students.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type createStudentRequest struct {
	Name   string `json:"name"`
	Group  string `json:"group"`
	Course *int   `json:"course"`
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	st, err := h.students.Create(c.Request.Context(), req.Name, req.Group, req.Course)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": id, "message": "student deleted"})
}

func (h *Handler) BatchCreateStudents(c *gin.Context) {
	var items []students.NewStudent
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected an array of students"})
		return
	}
	c.JSON(http.StatusOK, h.students.BatchCreate(c.Request.Context(), items))
}

// ---------- Attendance ----------

func (h *Handler) GetAttendance(c *gin.Context) {
	snap, err := h.attendance.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type recordAttendanceRequest struct {
	StudentID int64  `json:"studentId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Hour      *int   `json:"hour"`
}

func (h *Handler) RecordAttendance(c *gin.Context) {
	var req recordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rec, err := h.attendance.Record(c.Request.Context(), req.StudentID, req.Date, req.Status, req.Hour)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ---------- Legacy entries ----------

type entryRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Note string `json:"note"`
}

func (h *Handler) ListEntries(c *gin.Context) {
	list, err := h.entries.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateEntry(c *gin.Context) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.entries.Create(c.Request.Context(), req.Name, req.Date, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	e, err := h.entries.Update(c.Request.Context(), id, req.Name, req.Date, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.entries.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": id})
}
