package server

import (
	"Formpay/config"
	"Formpay/middleware"
	"Formpay/pkg/log"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider struct {
	Config *config.Config
	Engine *gin.Engine
}

// instanceID 日志里区分实例，格式 192.168.1.10:8080
func instanceID(port int) string {
	ip, err := getLocalIP()
	if err != nil {
		ip, _ = os.Hostname()
	}
	return fmt.Sprintf("%s:%d", ip, port)
}

func getLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		// 排除回环地址
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "", errors.New("no ip address found")
}

func NewGinEngine(cfg *config.Config, h *Handlers) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(CORSMiddleware())
	r.Use(middleware.GinZap(), gin.Recovery(), middleware.PrometheusMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	h.Auth.RegisterRouter(api)
	h.Pay.RegisterRouter(api)
	h.Wechat.RegisterRouter(api)
	return r
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Content-Length, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-New-Access-Token")

		// 预检请求直接返回 204
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func Run(ctx *cli.Context, app *AppProvider) error {
	eg, groupCtx := errgroup.WithContext(ctx.Context)
	c := make(chan os.Signal, 1)
	// 终止的信号 服务要停止了
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

	sid := instanceID(app.Config.Server.Http)
	log.L.Info("server starting", zap.String("serverId", sid),
		zap.Int("port", app.Config.Server.Http),
		zap.String("env", app.Config.App.Env),
	)

	return run(c, eg, groupCtx, app, sid)
}

func run(c chan os.Signal, eg *errgroup.Group, ctx context.Context, app *AppProvider, sid string) error {
	serv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Config.Server.Http),
		Handler:           app.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		err := serv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		defer func() {
			log.L.Info("server stopping", zap.String("serverId", sid))

			// 留出时间处理完进行中的回调
			timeCtx, timeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer timeCancel()

			if err := serv.Shutdown(timeCtx); err != nil {
				log.L.Warn("server shutdown", zap.String("serverId", sid), zap.Error(err))
			}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c:
			return nil
		}
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.L.Error("server exited", zap.Error(err))
		return err
	}

	log.L.Info("server stopped", zap.String("serverId", sid))
	return nil
}
