package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serveSwagger(cfg SwaggerConfig, remoteAddr string) int {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/swagger/*any", SwaggerProtection(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SwaggerConfig
		remote string
		want   int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "10.0.0.1:5000", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "203.0.113.9:5000", http.StatusOK},
		{"single ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:5000", http.StatusOK},
		{"single ip denied", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.2:5000", http.StatusForbidden},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}}, "192.168.4.20:5000", http.StatusOK},
		{"cidr denied", SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16"}}, "172.16.0.1:5000", http.StatusForbidden},
		{"garbage entries ignored", SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip"}}, "10.0.0.1:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serveSwagger(tt.cfg, tt.remote))
		})
	}
}

func TestIPAllowed(t *testing.T) {
	_, n, _ := net.ParseCIDR("2001:db8::/32")
	assert.True(t, ipAllowed(net.ParseIP("2001:db8::1"), []*net.IPNet{n}))
	assert.False(t, ipAllowed(nil, []*net.IPNet{n}))
}
