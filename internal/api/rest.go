// Package api exposes a read-only REST surface over the control loop
// snapshot. Mutation stays on the serial command protocol.
package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/adstech/opensink/internal/statistics"
)

const indentationChar = "  "

type snapshotResponse struct {
	VinV        float64 `json:"vin_v"`
	TempC       float64 `json:"temp_c"`
	FanStep     int     `json:"fan_step"`
	FanDuty     float64 `json:"fan_duty"`
	FanRPM      float64 `json:"fan_rpm"`
	LoadEnabled bool    `json:"load_enabled"`
	PowerGood   bool    `json:"power_good"`
	ManualMode  bool    `json:"manual_mode"`
}

func CreateRestService(source statistics.SnapshotSource) *echo.Echo {
	echoRest := echo.New()
	echoRest.HideBanner = true

	// Root level middleware
	echoRest.Pre(middleware.AddTrailingSlash())

	echoRest.Use(middleware.Secure())
	echoRest.Use(middleware.Logger())
	echoRest.Use(middleware.Recover())
	echoRest.Use(echoprometheus.NewMiddleware("opensink_api"))

	echoRest.GET("/alive/", isAlive)
	echoRest.GET("/metrics/", echoprometheus.NewHandler())
	registerSnapshotEndpoint(echoRest, source)

	return echoRest
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func registerSnapshotEndpoint(echoRest *echo.Echo, source statistics.SnapshotSource) {
	echoRest.GET("/snapshot/", func(c echo.Context) error {
		snap := source.Snapshot()
		return c.JSONPretty(http.StatusOK, &snapshotResponse{
			VinV:        snap.VinV,
			TempC:       snap.TempC,
			FanStep:     snap.FanStep,
			FanDuty:     snap.DutyCmd,
			FanRPM:      source.FanRPM(),
			LoadEnabled: snap.LoadEnabled,
			PowerGood:   snap.PowerGood,
			ManualMode:  snap.Manual,
		}, indentationChar)
	})
}
