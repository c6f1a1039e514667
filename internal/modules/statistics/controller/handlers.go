package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"mesostats/internal/modules/statistics/repository"
	"mesostats/internal/modules/statistics/types"
	"mesostats/internal/report"
	"mesostats/internal/utils"
)

func (c *statisticsControllerImpl) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := c.repository.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("runs: list failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}
	utils.WriteJSON(w, http.StatusOK, runs)
}

func (c *statisticsControllerImpl) handleStatistics(w http.ResponseWriter, r *http.Request) {
	observedAt, err := parseRunTime(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := c.repository.GetRun(r.Context(), observedAt)
	if err != nil {
		c.writeLookupError(w, "statistics", err)
		return
	}
	stats, err := c.repository.GetStatistics(r.Context(), observedAt)
	if err != nil {
		c.writeLookupError(w, "statistics", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.RunStatistics{Run: run, Statistics: stats})
}

func (c *statisticsControllerImpl) handleReport(w http.ResponseWriter, r *http.Request) {
	observedAt, err := parseRunTime(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := c.repository.LoadSummary(r.Context(), observedAt)
	if err != nil {
		c.writeLookupError(w, "report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, summary); err != nil {
		slog.Error("report render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	utils.WriteText(w, http.StatusOK, buf.Bytes())
}

func (c *statisticsControllerImpl) writeLookupError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	slog.Error(op+": lookup failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to load run")
}
