// Command broadcastd is a small pub/sub demo on top of the streaming
// transport: every message published (via HTTP or by any subscriber) fans
// out to all connected subscribers, along with a once-a-second timestamp.
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	conc "github.com/panyam/gocurrent"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/panyam/wirekit/codec"
	"github.com/panyam/wirekit/stream"
	"github.com/panyam/wirekit/ws"
)

// broadcastHandler fans published messages out to every live connection.
type broadcastHandler struct {
	fanout *conc.FanOut[any]
	logger *zap.Logger
}

func newBroadcastHandler(logger *zap.Logger) *broadcastHandler {
	return &broadcastHandler{
		fanout: conc.NewFanOut[any](nil),
		logger: logger,
	}
}

func (h *broadcastHandler) Publish(msg any) {
	h.fanout.Send(msg)
}

func (h *broadcastHandler) Validate(w http.ResponseWriter, r *http.Request) (*ws.Session[any, any], bool) {
	// Every subscriber gets a buffered lane into its duplex so one slow
	// connection does not stall the fanout.
	lane := make(chan any, 64)

	return &ws.Session[any, any]{
		Codec: codec.JSON{},
		Name:  "subscriber",
		OnOpen: func(d *stream.Duplex[any, any]) error {
			go func() {
				for msg := range lane {
					d.Server().Write(msg)
				}
			}()
			// Anything a subscriber sends is rebroadcast to everyone.
			d.Server().On(func(msg any) { h.Publish(msg) })
			h.fanout.Add(lane, nil, false)
			h.logger.Info("subscriber joined")
			return nil
		},
		OnClose: func() {
			// Synchronous removal so a concurrent publish cannot land on
			// a closed lane.
			<-h.fanout.Remove(lane, true)
			close(lane)
			h.logger.Info("subscriber left")
		},
	}, true
}

func loadConfig() {
	viper.SetDefault("addr", ":8085")
	viper.SetDefault("ping_period", 30*time.Second)
	viper.SetDefault("pong_period", 300*time.Second)

	viper.SetConfigName("broadcastd")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("BROADCASTD")
	viper.AutomaticEnv()
	viper.ReadInConfig() // optional; defaults and env cover the rest
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loadConfig()

	handler := newBroadcastHandler(logger)
	config := &ws.Config{
		PingPeriod: viper.GetDuration("ping_period"),
		PongPeriod: viper.GetDuration("pong_period"),
		Logger:     logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/publish", func(w http.ResponseWriter, r *http.Request) {
		msg := r.URL.Query().Get("msg")
		handler.Publish(fmt.Sprintf("%s: %s", time.Now().Format(time.RFC3339), msg))
		ws.SendJSONResponse(w, map[string]any{"published": true}, nil)
	})
	r.HandleFunc("/subscribe", ws.Serve(handler, config))

	// A heartbeat publisher so subscribers always see traffic.
	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for range t.C {
			handler.Publish(time.Now().Format(time.RFC3339Nano))
		}
	}()

	addr := viper.GetString("addr")
	logger.Info("broadcastd listening", zap.String("addr", addr))
	srv := http.Server{Addr: addr, Handler: r}
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
