package web

import (
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/world_streamer/config"
	"github.com/mogaika/world_streamer/export"
	"github.com/mogaika/world_streamer/lod"
	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/webutils"
	"github.com/mogaika/world_streamer/world"
)

func (s *server) handlerStats(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.engine.Stats())
}

func (s *server) handlerCells(w http.ResponseWriter, r *http.Request) {
	keys := s.engine.LoadedCells()
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = key.String()
	}
	sort.Strings(out)
	webutils.WriteJson(w, out)
}

func (s *server) handlerPool(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	webutils.WriteJson(w, stats.Pool)
}

func (s *server) handlerCache(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	webutils.WriteJson(w, map[string]interface{}{
		"textures":  stats.Textures,
		"materials": stats.Materials,
	})
}

func (s *server) handlerLod(w http.ResponseWriter, r *http.Request) {
	var counts map[string]int
	s.engine.View(func() {
		counts = make(map[string]int, lod.TierCount)
		for tier, count := range s.engine.LOD().TierCounts() {
			counts[lod.Tier(tier).String()] = count
		}
	})
	webutils.WriteJson(w, counts)
}

func (s *server) handlerEncodings(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, map[string]interface{}{
		"current":   config.GetEncoding().String(),
		"available": config.ListEncodings(),
	})
}

func (s *server) handlerDumpCell(w http.ResponseWriter, r *http.Request) {
	key, err := world.ParseCellKey(mux.Vars(r)["cell"])
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var dump string
	s.engine.View(func() {
		insts := s.engine.CellInstances(key)
		type objectDump struct {
			Asset  string
			Node   string
			Albedo string
			Radius float32
		}
		objects := make([]objectDump, len(insts))
		for i, inst := range insts {
			objects[i] = objectDump{
				Asset:  inst.AssetID,
				Node:   s.engine.Graph().Name(inst.Node),
				Albedo: inst.Albedo(),
				Radius: inst.Radius(),
			}
		}
		dump = utils.SDump(objects)
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	webutils.WriteResult(w, []byte(dump))
}

func (s *server) handlerExportCell(w http.ResponseWriter, r *http.Request) {
	key, err := world.ParseCellKey(mux.Vars(r)["cell"])
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	doc, err := export.CellToGLTF(s.engine, key)
	if err != nil {
		log.Printf("[web] cell export %v failed: %v", key, err)
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteGLTF(w, doc, export.DocumentName(key))
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *server) handlerStatusWs(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	s.hub.NewClient(conn)
}
