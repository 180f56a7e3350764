package security

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS 中间件 仅允许白名单中的Origin，支持Credentials
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && originSet[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 中间件
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止MIME嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		// 防止点击劫持
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		c.Next()
	}
}

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 按IP限流，限额可在配置热更新时调整
type Limiter struct {
	mu     sync.Mutex
	store  map[string]*visitor
	limit  rate.Limit
	burst  int
	expiry time.Duration
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	l := &Limiter{store: make(map[string]*visitor)}
	l.Update(maxRequests, window)
	return l
}

// Update 修改限额，已有访客的限流器同步更新
func (l *Limiter) Update(maxRequests int, window time.Duration) {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = rate.Every(window / time.Duration(maxRequests))
	l.burst = maxRequests
	l.expiry = window * 3
	if l.expiry < time.Minute {
		l.expiry = time.Minute
	}
	for _, v := range l.store {
		v.limiter.SetLimit(l.limit)
		v.limiter.SetBurst(l.burst)
	}
}

func (l *Limiter) allow(key string) bool {
	l.mu.Lock()
	v, exists := l.store[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.store[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.store {
		if time.Since(v.lastSeen) > l.expiry {
			delete(l.store, ip)
		}
	}
}

// Middleware 启动后台清理并返回 gin 中间件
func (l *Limiter) Middleware() gin.HandlerFunc {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			l.cleanup()
		}
	}()

	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": http.StatusTooManyRequests, "message": "too many requests"})
			return
		}
		c.Next()
	}
}

// RateLimiter 固定限额的限流中间件
func RateLimiter(maxRequests int, window time.Duration) gin.HandlerFunc {
	return NewLimiter(maxRequests, window).Middleware()
}
