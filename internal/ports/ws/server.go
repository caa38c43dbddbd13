package ws

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"snakesladders/internal/authority"
	"snakesladders/internal/voice"
	"snakesladders/internal/wire"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
)

const maxNameLength = 24

// ServerConfig holds the transport knobs of the host.
type ServerConfig struct {
	AllowedOrigins    []string // empty allows any origin
	RequestsPerSecond float64
	RequestBurst      int
}

// Server exposes rooms over HTTP and websockets.
type Server struct {
	cfg      ServerConfig
	rooms    *Manager
	voice    *voice.Service
	logger   runtime.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg ServerConfig, rooms *Manager, voiceService *voice.Service, logger runtime.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		rooms:  rooms,
		voice:  voiceService,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Handler builds the gin engine.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.AllowedOrigins
	}
	r.Use(cors.New(corsConfig))

	{
		rooms := r.Group("/rooms")
		rooms.GET("", s.listRooms)
		rooms.POST("", s.createRoom)
		rooms.POST("/:code/bots", s.addBot)
		rooms.POST("/:code/voice", s.voiceToken)
	}
	r.GET("/ws/:code", s.websocket)
	return r
}

func (s *Server) listRooms(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"rooms": s.rooms.ListRooms()})
}

func (s *Server) createRoom(ctx *gin.Context) {
	room, err := s.rooms.CreateRoom()
	if errors.Is(err, ErrTooManyRooms) {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "too-many-rooms"})
		return
	}
	if err != nil {
		s.logger.Error("Server: create room failed: %v", err)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "room-unavailable"})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"code": room.Code})
}

func (s *Server) addBot(ctx *gin.Context) {
	room, ok := s.rooms.Room(ctx.Param("code"))
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	}
	if err := room.AddBot(); err != nil {
		ctx.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

type voiceTokenRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
	Action        string `json:"action"`
}

func (s *Server) voiceToken(ctx *gin.Context) {
	code := ctx.Param("code")
	if _, ok := s.rooms.Room(code); !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	}
	var req voiceTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request"})
		return
	}
	if req.Action == "" {
		req.Action = voice.ActionJoin
	}

	channel := ""
	if req.Action == voice.ActionJoin {
		channel = voice.ChannelForMatch(code)
	}
	token, err := s.voice.GenerateToken(req.ParticipantID, req.Action, channel)
	switch {
	case errors.Is(err, voice.ErrIncompleteConfig):
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "voice-disabled"})
		return
	case err != nil:
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"token": token, "channel": channel})
}

func (s *Server) websocket(ctx *gin.Context) {
	room, ok := s.rooms.Room(ctx.Param("code"))
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "room-not-found"})
		return
	}

	socket, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		s.logger.Warn("Server: websocket upgrade failed: %v", err)
		return
	}
	conn := newSocketConn(socket)
	go conn.writePump()

	id := uuid.NewString()
	logger := s.logger.WithFields(map[string]interface{}{"room": room.Code, "participant": id})
	p, err := room.Join(id, displayName(ctx.Query("name")), conn)
	if err != nil {
		logger.Info("Server: join refused: %v", err)
		if frame, encErr := wire.EncodeErrorFrame(authority.ErrorCode(err), err.Error()); encErr == nil {
			_ = conn.Send(frame)
		}
		_ = conn.Close()
		return
	}
	logger.Info("Server: joined as index %d", p.Index)

	s.readPump(room, id, conn, logger)
	room.Leave(id)
}

// readPump forwards decoded requests to the room until the socket fails.
func (s *Server) readPump(room *Room, id string, conn *socketConn, logger runtime.Logger) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.RequestBurst)
	for {
		data, err := conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Server: read failed: %v", err)
			}
			return
		}
		if !limiter.Allow() {
			logger.Debug("Server: request dropped by rate limit")
			continue
		}
		req, err := wire.DecodeRequestFrame(data)
		if err != nil {
			logger.Debug("Server: malformed frame: %v", err)
			if frame, encErr := wire.EncodeErrorFrame(authority.CodeBadRequest, err.Error()); encErr == nil {
				_ = conn.Send(frame)
			}
			continue
		}
		room.Submit(id, req)
	}
}

func displayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "Player"
	}
	if len([]rune(name)) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}
