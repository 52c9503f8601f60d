package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionName is the New Relic transaction name of a request:
// the method and the matched route template, so every event id shares one name
func TransactionName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return c.Request.Method + " " + route
}

// TransactionAttributes names the transaction started by nrgin.Middleware
// and records the request id and, once authenticated, the principal.
// It must run after nrgin.Middleware.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		txn.SetName(TransactionName(c))
		txn.AddAttribute(RequestIDKey, c.GetString(RequestIDKey))
		if procID := c.Param("procID"); procID != "" {
			txn.AddAttribute("project_id", procID)
		}

		c.Next()

		if principal := Principal(c); principal != "" {
			txn.AddAttribute(PrincipalKey, principal)
		}
	}
}
