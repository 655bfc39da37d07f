package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/world_streamer/status"
	"github.com/mogaika/world_streamer/stream"
)

type server struct {
	engine *stream.Engine
	hub    *status.Hub
}

// StartServer exposes the diagnostics surface: statistics json, live state
// dumps, cell exports and the websocket stats feed. Blocks.
func StartServer(addr string, engine *stream.Engine, hub *status.Hub, webPath string) error {
	s := &server{engine: engine, hub: hub}

	r := mux.NewRouter()
	r.HandleFunc("/json/stats", s.handlerStats)
	r.HandleFunc("/json/cells", s.handlerCells)
	r.HandleFunc("/json/pool", s.handlerPool)
	r.HandleFunc("/json/cache", s.handlerCache)
	r.HandleFunc("/json/lod", s.handlerLod)
	r.HandleFunc("/json/encodings", s.handlerEncodings)
	r.HandleFunc("/dump/cell/{cell}", s.handlerDumpCell)
	r.HandleFunc("/export/gltf/cell/{cell}", s.handlerExportCell)
	r.HandleFunc("/ws/status", s.handlerStatusWs)

	r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
