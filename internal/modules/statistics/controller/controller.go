package controller

import (
	"net/http"

	"mesostats/internal/modules/statistics/repository"
)

type StatisticsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type statisticsControllerImpl struct {
	repository repository.StatisticsRepository
}

func NewStatisticsController(repository repository.StatisticsRepository) StatisticsController {
	return &statisticsControllerImpl{repository: repository}
}

func (c *statisticsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/runs", c.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{time}/statistics", c.handleStatistics)
	mux.HandleFunc("GET /api/v1/runs/{time}/report", c.handleReport)
}
