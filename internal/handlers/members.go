package handlers

import (
	"net/http"

	"taskie/backend/internal/recon"
	"taskie/backend/internal/store"

	"github.com/gin-gonic/gin"
)

type MemberHandler struct {
	svc     *recon.Service
	members *store.MemberStore
}

func NewMemberHandler(svc *recon.Service, members *store.MemberStore) *MemberHandler {
	return &MemberHandler{svc: svc, members: members}
}

func (h *MemberHandler) GetMembers(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	members, err := h.svc.LoadMembers(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": members,
		"mode":    h.svc.Mode().String(),
	})
}

func (h *MemberHandler) CreateMember(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var memberInput struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required"`
		Role  string `json:"role"`
	}
	if err := c.ShouldBindJSON(&memberInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.svc.CreateMember(c.Request.Context(), recon.MemberInput{
		Name:  memberInput.Name,
		Email: memberInput.Email,
		Role:  memberInput.Role,
	}, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *MemberHandler) UpdateMember(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var memberInput struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Role  *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&memberInput); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.svc.UpdateMember(c.Request.Context(), c.Param("id"), userID, recon.MemberChanges{
		Name:  memberInput.Name,
		Email: memberInput.Email,
		Role:  memberInput.Role,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if member.ID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) DeleteMember(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteMember(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
