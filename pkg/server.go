package main

import (
	"classroom/take-a-number/queue-server/pkg/config"
	"classroom/take-a-number/queue-server/pkg/infra"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	application   *Application
	echo          *echo.Echo
	server        *http.Server
	loggerFactory *infra.LoggerFactory
	logger        *zap.SugaredLogger
}

func ProvideServer(config *config.Config, application *Application, loggerFactory *infra.LoggerFactory) *Server {
	logger := loggerFactory.Create("Server").Sugar()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debugf("%v %v id[%v] status[%v] latency[%vms]", v.Method, v.URI, v.RequestID, v.Status, v.Latency.Milliseconds())
			return nil
		},
	}))

	if config.PublicDir != "" {
		e.Static("/", config.PublicDir)
	} else {
		e.GET("/", func(c echo.Context) error {
			return c.String(http.StatusOK, "Take-a-number queue is running\n")
		})
	}

	e.PUT("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.DebugLevel)
		logger.Info("debug logging enabled")
		return c.NoContent(http.StatusOK)
	})

	e.DELETE("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.InfoLevel)
		logger.Info("debug logging disabled")
		return c.NoContent(http.StatusOK)
	})

	student := e.Group("/student")
	student.POST("/join", application.HandleStudentJoin)
	student.POST("/verify-session", application.HandleStudentVerify)
	student.POST("/get-number", application.HandleGetNumber)
	student.POST("/remove-number", application.HandleRemoveNumber)
	student.POST("/heartbeat", application.HandleHeartbeat)
	student.POST("/lost-focus", application.HandleLostFocus)
	student.POST("/beacon/lost-focus", application.HandleLostFocusBeacon)
	student.POST("/regain-focus", application.HandleRegainFocus)
	student.GET("/dashboard-data", application.HandleDashboard)
	student.POST("/logout", application.HandleStudentLogout)

	teacher := e.Group("/teacher")
	teacher.POST("/signup", application.HandleTeacherSignup)
	teacher.POST("/login", application.HandleTeacherLogin)
	teacher.POST("/verify-session", application.HandleTeacherVerify)
	teacher.GET("/list", application.HandleTeacherList)
	teacher.POST("/next", application.HandleNext)
	teacher.GET("/waiting-list", application.HandleWaitingList)
	teacher.GET("/joined-students", application.HandleJoinedStudents)
	teacher.POST("/logout", application.HandleTeacherLogout)

	return &Server{
		application: application,
		echo:        e,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%v", config.ServerPort),
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
		loggerFactory: loggerFactory,
		logger:        logger,
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and
// stops the queue worker.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer s.loggerFactory.Sync()

	s.logger.Infof("server running application")
	s.application.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("server starts listening on addr[%v]", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Errorf("server failed err[%v]", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorf("server shutdown failed err[%v]", err)
		return err
	}
	return nil
}
