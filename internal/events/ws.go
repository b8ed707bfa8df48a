package events

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/phuslu/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // events are public catalog data
	},
}

func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// welcome goes out before the socket joins the hub so broadcasts
		// never interleave with it
		if err := ws.WriteMessage(websocket.TextMessage, welcome(transportWS, hub.Stats().WSClients+1)); err != nil {
			_ = ws.Close()
			return
		}
		hub.AddWS(ws)
		log.Debug().Str("remote", c.ClientIP()).Msg("ws client connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		log.Debug().Str("remote", c.ClientIP()).Msg("ws client disconnected")
	}
}
