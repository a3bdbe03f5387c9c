package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"todo-notes/internal/app"
	"todo-notes/internal/model"
	"todo-notes/internal/service"
)

// Services are the read-side services exposed over HTTP.
type Services struct {
	Tasks  *service.TaskService
	Notes  *service.NoteService
	Themes *service.ThemeService
	Export *service.ExportService
}

// New builds an Echo instance with all routes registered.
func New(svc Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	Register(e, svc)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Services) {
	e.GET("/healthz", healthz(svc.Themes))
	e.GET("/api/tasks", getTasks(svc.Tasks))
	e.GET("/api/notes", getNotes(svc.Notes))
	e.GET("/api/theme", getTheme(svc.Themes))
	e.GET("/api/export", getExport(svc.Export))
}

type tasksResponse struct {
	Tasks []model.Task `json:"tasks"`
	Stats statsBody    `json:"stats"`
}

type statsBody struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Progress  int `json:"progress"`
}

type notesResponse struct {
	Notes []model.Note `json:"notes"`
}

type themeResponse struct {
	Theme model.Theme `json:"theme"`
	Auto  bool        `json:"auto"`
}

// healthz reads the theme key to check that storage answers.
func healthz(themes *service.ThemeService) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := themes.Get(c.Request().Context()); err != nil {
			log.WithError(err).Warn("health check failed")
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(tasks *service.TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := app.TaskFilter{Search: strings.TrimSpace(c.QueryParam("q"))}
		if raw := strings.TrimSpace(c.QueryParam("category")); raw != "" && !strings.EqualFold(raw, "all") {
			category, ok := model.ParseCategory(raw)
			if !ok {
				return c.String(http.StatusBadRequest, fmt.Sprintf("unknown category %q", raw))
			}
			filter.Category = category
		}

		all, err := tasks.List(c.Request().Context())
		if err != nil {
			log.WithError(err).Error("list tasks")
			return c.String(http.StatusInternalServerError, "storage error")
		}
		stats := app.ComputeStats(all)
		return c.JSON(http.StatusOK, tasksResponse{
			Tasks: filter.Apply(all),
			Stats: statsBody{Total: stats.Total, Completed: stats.Completed, Progress: stats.Progress},
		})
	}
}

func getNotes(notes *service.NoteService) echo.HandlerFunc {
	return func(c echo.Context) error {
		all, err := notes.List(c.Request().Context())
		if err != nil {
			log.WithError(err).Error("list notes")
			return c.String(http.StatusInternalServerError, "storage error")
		}
		filter := app.NoteFilter{Search: strings.TrimSpace(c.QueryParam("q"))}
		return c.JSON(http.StatusOK, notesResponse{Notes: filter.Apply(all)})
	}
}

func getTheme(themes *service.ThemeService) echo.HandlerFunc {
	return func(c echo.Context) error {
		theme, err := themes.Get(c.Request().Context())
		if err != nil {
			log.WithError(err).Error("load theme")
			return c.String(http.StatusInternalServerError, "storage error")
		}
		return c.JSON(http.StatusOK, themeResponse{Theme: theme, Auto: themes.Auto()})
	}
}

func getExport(exporter *service.ExportService) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap, err := exporter.Export(c.Request().Context())
		if err != nil {
			log.WithError(err).Error("export")
			return c.String(http.StatusInternalServerError, "storage error")
		}
		data, err := service.EncodeSnapshot(snap)
		if err != nil {
			return c.String(http.StatusInternalServerError, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+service.ExportFileName)
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}
