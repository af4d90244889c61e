package server

import (
	"context"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/STTM-NSU/market-sync/internal/logger"
	"github.com/STTM-NSU/market-sync/internal/market"
	"github.com/STTM-NSU/market-sync/internal/model"
	"github.com/gin-gonic/gin"
)

// Handler exposes the market store over HTTP. Polling started through the API
// lives as long as ctx passed to NewHandler, not as long as the request.
type Handler struct {
	ctx    context.Context
	store  *market.Store
	logger logger.Logger
	engine *gin.Engine
}

func NewHandler(ctx context.Context, store *market.Store, logger logger.Logger, debug bool) *Handler {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{
		ctx:    ctx,
		store:  store,
		logger: logger,
		engine: gin.New(),
	}
	h.engine.Use(gin.Recovery(), h.logRequests)
	h.setupRoutes()

	return h
}

func (h *Handler) setupRoutes() {
	api := h.engine.Group("/api")

	api.GET("/health", h.getHealth)
	api.GET("/state", h.getState)
	api.GET("/tickers", h.getTickers)
	api.GET("/events", h.streamEvents)

	api.POST("/favorites/:instId", h.toggleFavorite)
	api.PUT("/selected/:instId", h.selectSymbol)
	api.POST("/instruments/refresh", h.refreshInstruments)

	api.POST("/polling/start", h.startPolling)
	api.POST("/polling/stop", h.stopPolling)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func (h *Handler) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debugf("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func (h *Handler) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"polling": h.store.Polling(),
	})
}

func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *Handler) getTickers(c *gin.Context) {
	favoritesOnly, _ := strconv.ParseBool(c.Query("favorites"))

	tickers := h.store.Tickers()
	if favoritesOnly {
		tickers = slices.DeleteFunc(tickers, func(t model.Ticker) bool { return !t.IsFavorite })
	}

	views := make([]map[string]any, 0, len(tickers))
	for _, t := range tickers {
		views = append(views, tickerView(t))
	}
	c.JSON(http.StatusOK, views)
}

// tickerView flattens a ticker and adds changePercent when last and open24h
// parse as decimals.
func tickerView(t model.Ticker) map[string]any {
	view := make(map[string]any, len(t.Fields)+4)
	maps.Copy(view, t.Fields)
	view["instId"] = t.InstID
	view["tag"] = t.Tag
	view["isFavorite"] = t.IsFavorite
	if change, err := t.ChangePercent(); err == nil {
		view["changePercent"] = change.StringFixed(2)
	}
	return view
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	instID := c.Param("instId")
	isFavorite := h.store.ToggleFavorite(c.Request.Context(), instID)

	c.JSON(http.StatusOK, gin.H{
		"instId":     instID,
		"isFavorite": isFavorite,
	})
}

func (h *Handler) selectSymbol(c *gin.Context) {
	instID := c.Param("instId")
	h.store.SelectSymbol(instID)

	c.JSON(http.StatusOK, gin.H{"selectedSymbol": instID})
}

func (h *Handler) refreshInstruments(c *gin.Context) {
	instType := model.InstrumentType(c.Query("instType"))
	if instType != "" && !instType.Valid() {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Detail: "unknown instType " + string(instType)})
		return
	}

	h.store.FetchInstruments(c.Request.Context(), instType)
	c.JSON(http.StatusOK, h.store.Snapshot().Instruments)
}

func (h *Handler) startPolling(c *gin.Context) {
	h.store.StartPolling(h.ctx)
	c.JSON(http.StatusOK, gin.H{"polling": h.store.Polling()})
}

func (h *Handler) stopPolling(c *gin.Context) {
	h.store.StopPolling()
	c.JSON(http.StatusOK, gin.H{"polling": h.store.Polling()})
}

// streamEvents sends the current snapshot once and then one "change" event per
// store write.
func (h *Handler) streamEvents(c *gin.Context) {
	changes, unsubscribe := h.store.Subscribe()
	defer unsubscribe()

	c.SSEvent("snapshot", h.store.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", change)
			return true
		case <-c.Request.Context().Done():
			return false
		case <-h.ctx.Done():
			return false
		}
	})
}
