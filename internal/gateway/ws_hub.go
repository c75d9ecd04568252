package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/yourorg/stocksim/internal/domain"
	redisRepo "github.com/yourorg/stocksim/internal/repository/redis"
)

type streamRequest struct {
	client *Client
	symbol string
}

// Hub fans live price ticks out to websocket clients. Each symbol with at
// least one watcher gets a goroutine draining its redis channel; the
// goroutine is cancelled when the last watcher leaves.
type Hub struct {
	clients     map[*Client]bool
	watchers    map[string]map[*Client]bool
	feedCancels map[string]context.CancelFunc

	register chan *Client
	drop     chan *Client
	watch    chan streamRequest
	unwatch  chan streamRequest

	prices *redisRepo.PriceRepo
	logger *slog.Logger
}

func NewHub(prices *redisRepo.PriceRepo, logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		watchers:    make(map[string]map[*Client]bool),
		feedCancels: make(map[string]context.CancelFunc),
		register:    make(chan *Client, 64),
		drop:        make(chan *Client, 64),
		watch:       make(chan streamRequest, 64),
		unwatch:     make(chan streamRequest, 64),
		prices:      prices,
		logger:      logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.drop:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for sym, clients := range h.watchers {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							h.stopFeed(sym)
						}
					}
				}
				close(client.send)
			}
		case req := <-h.watch:
			if _, ok := h.watchers[req.symbol]; !ok {
				h.watchers[req.symbol] = make(map[*Client]bool)
				feedCtx, cancel := context.WithCancel(ctx)
				h.feedCancels[req.symbol] = cancel
				go h.pumpTicks(feedCtx, req.symbol)
			}
			h.watchers[req.symbol][req.client] = true
		case req := <-h.unwatch:
			if clients, ok := h.watchers[req.symbol]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					h.stopFeed(req.symbol)
				}
			}
		}
	}
}

func (h *Hub) stopFeed(symbol string) {
	if cancel, ok := h.feedCancels[symbol]; ok {
		cancel()
		delete(h.feedCancels, symbol)
	}
	delete(h.watchers, symbol)
}

func (h *Hub) pumpTicks(ctx context.Context, symbol string) {
	pubsub := h.prices.Subscribe(ctx, symbol)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var tick domain.PriceTick
			if err := json.Unmarshal([]byte(msg.Payload), &tick); err != nil {
				h.logger.Warn("dropping malformed tick", "symbol", symbol, "err", err)
				continue
			}
			h.fanOut(symbol, []byte(msg.Payload))
		}
	}
}

func (h *Hub) fanOut(symbol string, data []byte) {
	clients, ok := h.watchers[symbol]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
		}
	}
}
