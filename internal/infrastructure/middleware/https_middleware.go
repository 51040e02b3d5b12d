package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler redirects plain HTTP to host:port over HTTPS. In dev mode the
// redirect and HSTS are skipped.
func TlsHandler(host string, port int, dev bool) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:        true,
		SSLHost:            host + ":" + strconv.Itoa(port),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:         31536000,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		IsDevelopment:      dev,
	})

	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// never Fatal here; one bad request must not stop the server
			zap.L().Error("TLS redirection failed", zap.Error(err))
			c.Abort()
			return
		}
		// secure already answered the redirect
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
