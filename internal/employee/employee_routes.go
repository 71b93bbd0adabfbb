package employee

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	employees := r.Group("/employees")
	{
		employees.GET("", handler.GetAll)
		employees.GET("/:id", handler.GetByID)
		employees.GET("/:id/balance", handler.GetBalance)
		employees.POST("", handler.Create)
		employees.DELETE("/:id", handler.Delete)
	}
}
