package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"robot-gateway/backend/app/controllers"
	"robot-gateway/backend/app/middleware"
)

func NewRouter(httpCtrl *controllers.HTTPController, cmdCtrl *controllers.CommandController, cfgCtrl *controllers.ConfigController, statsCtrl *controllers.StatsController, socketCtrl *controllers.SocketController, mw *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("/ping", httpCtrl.Ping)
	mux.Handle("/metrics", promhttp.Handler())

	// robot transport; the login frame inside the connection authenticates
	mux.HandleFunc("/ws/robot", socketCtrl.Serve)

	// robot-facing config endpoints
	mux.Handle("/robot/config", mw.RequireAuth(http.HandlerFunc(cfgCtrl.Get)))
	mux.Handle("/robot/config/all", mw.RequireAuth(http.HandlerFunc(cfgCtrl.GetAll)))
	mux.Handle("/robot/config/synced", mw.RequireAuth(http.HandlerFunc(cfgCtrl.ReportSynced)))

	// admin endpoints
	mux.Handle("/admin/command", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.Push)))
	mux.Handle("/admin/command/cancel", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.Cancel)))
	mux.Handle("/admin/command/queue", mw.RequireAdmin(http.HandlerFunc(cmdCtrl.Queue)))
	mux.Handle("/admin/queue/stats", mw.RequireAdmin(http.HandlerFunc(statsCtrl.QueueStats)))
	mux.Handle("/admin/online", mw.RequireAdmin(http.HandlerFunc(statsCtrl.Online)))
	mux.Handle("/admin/connections", mw.RequireAdmin(http.HandlerFunc(statsCtrl.Connections)))
	mux.Handle("/admin/config", mw.RequireAdmin(http.HandlerFunc(cfgCtrl.Set)))

	return mux
}
