package main

import (
	"github.com/isnaaziz/working-permit-dc-sub000/internal/httpapi"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, scans httpapi.ScanLimiter) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	v1.POST("/auth/login", h.Login)

	// protected API group
	authed := v1.Group("")
	authed.Use(authMW)
	{
		// PERMIT routes
		permits := authed.Group("/permits")
		{
			permits.POST("", rbac.RequireAnyRole(rbac.RoleVisitor), h.SubmitPermit)
			permits.GET("", h.ListPermits)
			permits.GET("/:permit_id", h.GetPermit)

			permits.POST("/:permit_id/pic-review", rbac.RequireAnyRole(rbac.RolePIC), h.PICReview)
			permits.POST("/:permit_id/manager-review", rbac.RequireAnyRole(rbac.RoleManager), h.ManagerReview)
			permits.POST("/:permit_id/cancel", rbac.RequireAnyRole(rbac.RoleVisitor, rbac.RolePIC, rbac.RoleManager), h.CancelPermit)
			permits.POST("/:permit_id/credential", rbac.RequireAnyRole(rbac.RolePIC, rbac.RoleManager), h.RegenerateCredential)

			permits.GET("/:permit_id/approvals", h.ListApprovals)
			permits.GET("/:permit_id/access-log", rbac.RequireAnyRole(rbac.RolePIC, rbac.RoleManager, rbac.RoleSecurity), h.ListAccessLog)
		}

		// GATE routes (security terminals)
		gate := authed.Group("/gate")
		gate.Use(rbac.RequireAnyRole(rbac.RoleSecurity))
		gate.Use(scans.LimitGateScans())
		{
			gate.POST("/verify", h.VerifyCredential)
			gate.POST("/check-in", h.CheckIn)
			gate.POST("/check-out", h.CheckOut)
		}

		// REPORT routes
		reports := authed.Group("/reports")
		{
			reports.GET("/permits", rbac.RequireAnyRole(rbac.RoleManager), h.PermitReport)
			reports.GET("/access", rbac.RequireAnyRole(rbac.RoleManager, rbac.RoleSecurity), h.AccessReport)
		}
	}
}
