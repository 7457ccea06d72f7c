package controller

import (
	"log/slog"
	"net/http"

	"github.com/Ushasricpu/paper/internal/telemetry"
	"github.com/Ushasricpu/paper/internal/utils"
)

func (c *feedControllerImpl) handleTemperatureData(w http.ResponseWriter, r *http.Request) {
	q, err := parseTemperatureQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.repository.GetReadings(q)
	if err != nil {
		slog.Error("temperature data: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, telemetry.Response{Data: readings})
}
