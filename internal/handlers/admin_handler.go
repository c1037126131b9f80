package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"metallvector_backend/internal/services"
	"metallvector_backend/internal/services/dto"
)

type AdminHandler struct {
	*BaseHandler
	adminService services.AdminService
}

func NewAdminHandler(base *BaseHandler, adminService services.AdminService) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  base,
		adminService: adminService,
	}
}

// RegisterRoutes регистрирует маршруты админки. Группа уже защищена
// JWT и проверкой роли admin на уровне роутера.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.POST("/users/:id/action", h.ApplyUserAction)
	rg.DELETE("/users/:id", h.DeleteUser)
	rg.POST("/users/:id/impersonate", h.Impersonate)
	rg.GET("/stats", h.DashboardStats)
	rg.GET("/users/export", h.ExportUsers)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var req dto.AdminUserListRequest
	if !h.BindAndValidate_Query(c, &req) {
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	db := h.GetDB(c)

	response, err := h.adminService.ListUsers(db, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AdminHandler) ApplyUserAction(c *gin.Context) {
	var req dto.AdminUserActionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.adminService.ApplyUserAction(db, c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	db := h.GetDB(c)

	if err := h.adminService.DeleteUser(db, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Пользователь удален"})
}

func (h *AdminHandler) Impersonate(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	response, err := h.adminService.Impersonate(db, adminID, c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	db := h.GetDB(c)

	response, err := h.adminService.DashboardStats(db)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AdminHandler) ExportUsers(c *gin.Context) {
	db := h.GetDB(c)

	data, err := h.adminService.ExportUsersXLSX(db)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
