package handler

import (
	"errors"
	"io"
	"net/http"

	"roomresq/backend/internal/complaint"
	"roomresq/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type assignRequest struct {
	StaffID string `json:"staff_id"`
}

// list writes complaints as a JSON array, never null.
func list(c *gin.Context, items []models.Complaint, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []models.Complaint{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req complaint.NewComplaintDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badBody(err))
		return
	}
	created, err := h.Complaints.Submit(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) MyComplaints(c *gin.Context) {
	items, err := h.Complaints.ListBySubmitter(c.Request.Context(), currentUser(c), "")
	list(c, items, err)
}

func (h *Handler) TrackComplaints(c *gin.Context) {
	items, err := h.Complaints.ListBySubmitter(c.Request.Context(), currentUser(c), c.Param("studentId"))
	list(c, items, err)
}

func (h *Handler) UnassignedComplaints(c *gin.Context) {
	items, err := h.Complaints.ListUnassigned(c.Request.Context(), currentUser(c))
	list(c, items, err)
}

func (h *Handler) AssignedComplaints(c *gin.Context) {
	staffID := c.Param("staffId")
	if staffID == "me" {
		staffID = ""
	}
	items, err := h.Complaints.ListAssignedTo(c.Request.Context(), currentUser(c), staffID)
	list(c, items, err)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	found, err := h.Complaints.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// AssignComplaint accepts an empty body, meaning "assign to me".
func (h *Handler) AssignComplaint(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, badBody(err))
		return
	}
	staffID := c.Query("staffId")
	if req.StaffID != "" {
		staffID = req.StaffID
	}
	updated, err := h.Complaints.Assign(c.Request.Context(), currentUser(c), c.Param("id"), staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req complaint.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badBody(err))
		return
	}
	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ComplaintHistory(c *gin.Context) {
	entries, err := h.Complaints.GetHistory(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.ComplaintHistory{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListStaff(c *gin.Context) {
	staff, err := h.Complaints.ListStaff(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if staff == nil {
		staff = []models.User{}
	}
	c.JSON(http.StatusOK, staff)
}
