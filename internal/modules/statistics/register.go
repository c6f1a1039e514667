package statistics

import (
	"database/sql"
	"net/http"

	"mesostats/internal/modules/statistics/controller"
	"mesostats/internal/modules/statistics/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB) {
	statisticsRepository := repository.NewRepository(db)
	statisticsController := controller.NewStatisticsController(statisticsRepository)
	statisticsController.RegisterRoutes(mux)
}
