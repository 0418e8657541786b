package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/jobs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/middleware"
	"github.com/yeisme/staticmd/pkg/rule"
	"github.com/yeisme/staticmd/pkg/scheduler"
)

// TagsRequest 手工打标请求.
type TagsRequest struct {
	Tags []string `json:"tags" rule:"required,min=1,max=50,dive,min=1,max=64"`
}

// ApplyTags POST /api/admin/photos/:code/tags
//
// code 可以是图片的任一链接码. 已完成打标的图片保持不变.
func (h *Handlers) ApplyTags(c *gin.Context) {
	var req TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	link, err := h.svc.Links.Resolve(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	if link.TargetType != model.TargetPhoto {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}

	tags, err := h.svc.Photos.ApplyTags(ctx, link.TargetID, req.Tags, "admin:"+c.GetString(middleware.AdminKey))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fingerprint": link.TargetID, "tags": tags})
}

// ListJobs GET /api/admin/jobs
func (h *Handlers) ListJobs(c *gin.Context) {
	infos := []scheduler.JobInfo{}
	if sched := ctxPkg.GetScheduler(c.Request.Context()); sched != nil {
		infos = sched.GetJobInfos()
	}

	c.JSON(http.StatusOK, gin.H{"jobs": infos})
}

// RunJob POST /api/admin/jobs/:name/run 同步执行一次任务.
func (h *Handlers) RunJob(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "jobs not configured"})
		return
	}

	name := c.Param("name")

	err := h.runner.Run(c.Request.Context(), name)
	if errors.Is(err, jobs.ErrUnknownJob) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": name, "status": "completed"})
}
