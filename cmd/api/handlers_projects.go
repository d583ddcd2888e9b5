package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/timeline/internal/middleware"
	"github.com/therealutkarshpriyadarshi/timeline/internal/storage"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Create project endpoint
func (api *API) createProject(c *gin.Context) {
	var req struct {
		Name        string                  `json:"name" binding:"required"`
		Description string                  `json:"description"`
		Settings    *models.ProjectSettings `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &models.Project{
		UserID:      userID(c),
		CompanyID:   middleware.GetCompanyID(c),
		Name:        req.Name,
		Description: req.Description,
		Data:        models.ProjectData{Settings: req.Settings},
	}
	if err := api.projects.Create(c.Request.Context(), p); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List projects endpoint
func (api *API) listProjects(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	opts := models.ProjectListOptions{
		Status:    c.Query("status"),
		SortBy:    c.Query("sort"),
		Ascending: c.Query("order") == "asc",
		Limit:     limit,
		Offset:    offset,
	}

	projects, err := api.projects.List(c.Request.Context(), userID(c), opts)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get project endpoint
func (api *API) getProject(c *gin.Context) {
	p, err := api.projects.Get(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// Update project details endpoint
func (api *API) updateProject(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.projects.UpdateDetails(c.Request.Context(), c.Param("id"), userID(c), req.Name, req.Description); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project updated"})
}

// Delete project endpoint. An open session on the project is closed first so
// a pending autosave cannot recreate it.
func (api *API) deleteProject(c *gin.Context) {
	id := c.Param("id")
	uid := userID(c)

	if err := api.sessions.CloseProject(c.Request.Context(), id, uid); err != nil {
		api.respondError(c, err)
		return
	}
	if err := api.projects.Delete(c.Request.Context(), id, uid); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// Duplicate project endpoint
func (api *API) duplicateProject(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := api.projects.Duplicate(c.Request.Context(), c.Param("id"), userID(c), req.Name)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// Archive project endpoint
func (api *API) archiveProject(c *gin.Context) {
	id := c.Param("id")
	uid := userID(c)

	if err := api.sessions.CloseProject(c.Request.Context(), id, uid); err != nil {
		api.respondError(c, err)
		return
	}
	if err := api.projects.Archive(c.Request.Context(), id, uid); err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project archived"})
}

// List a project's export jobs
func (api *API) listProjectExports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	jobs, err := api.projects.ListExportJobs(c.Request.Context(), c.Param("id"), userID(c), limit)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// List the user's media library with playable URLs
func (api *API) listMedia(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := api.media.ListMedia(ctx, storage.UserMediaPrefix(userID(c)))
	if err != nil {
		api.respondError(c, err)
		return
	}
	items, err = api.media.ResolveMediaSources(ctx, items)
	if err != nil {
		api.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"media": items})
}
