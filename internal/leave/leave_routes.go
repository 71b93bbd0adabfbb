package leave

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the leave request endpoints and the per-employee
// history and report views. Extra handlers run before Submit only.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, submitMiddleware ...gin.HandlerFunc) {
	leaves := r.Group("/leave-requests")
	{
		leaves.GET("", handler.GetAll)
		leaves.GET("/:id", handler.GetByID)
		leaves.POST("", append(submitMiddleware, handler.Submit)...)
		leaves.POST("/:id/approve", handler.Approve)
		leaves.POST("/:id/reject", handler.Reject)
		leaves.POST("/:id/decision", handler.Decide)
	}

	employees := r.Group("/employees")
	{
		employees.GET("/:id/leave-history", handler.History)
		employees.GET("/:id/leave-report", handler.Report)
	}
}
