package router

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/paper-trading/src/eventpubsub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var streamTopics = []string{
	eventpubsub.OrderPlacedEvent,
	eventpubsub.OrderFilledEvent,
	eventpubsub.OrderClosedEvent,
	eventpubsub.StopLossEvent,
	eventpubsub.TakeProfitEvent,
	eventpubsub.OptionSettledEvent,
	eventpubsub.PortfolioResetEvent,
}

// handleEventStream upgrades the connection and forwards engine events to
// the client as JSON frames. Slow consumers drop frames rather than block
// the publisher.
func handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("eventStream: failed to upgrade connection: %v", err)
		return
	}

	defer conn.Close()

	events := make(chan eventpubsub.OrderEvent, 64)

	callback := func(event eventpubsub.OrderEvent) {
		select {
		case events <- event:
		default:
			log.Warnf("eventStream: dropping %s event for slow consumer", event.Topic)
		}
	}

	for _, topic := range streamTopics {
		if err := eventpubsub.Subscribe(topic, callback); err != nil {
			log.Errorf("eventStream: failed to subscribe to %s: %v", topic, err)
			return
		}
	}

	defer func() {
		for _, topic := range streamTopics {
			if err := eventpubsub.Unsubscribe(topic, callback); err != nil {
				log.Errorf("eventStream: failed to unsubscribe from %s: %v", topic, err)
			}
		}
	}()

	// drain client frames so pings and close messages are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pinger := time.NewTicker(30 * time.Second)
	defer pinger.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event := <-events:
			conn.SetWriteDeadline(time.Now().UTC().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				log.Errorf("eventStream: failed to write event: %v", err)
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().UTC().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
