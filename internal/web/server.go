/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package web serves the control API over HTTP and streams state changes
// over a websocket.
package web

import (
	"errors"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"hdxloop/internal/codec"
	"hdxloop/internal/control"
	"hdxloop/internal/index"
	hlog "hdxloop/internal/log"
	"hdxloop/internal/playback"
	"hdxloop/internal/source"
	"hdxloop/internal/statesync"
	"hdxloop/pkg/spec"
)

// Server is the HTTP front of a control.Service.
type Server struct {
	app *fiber.App
	svc *control.Service
	hub *statesync.Hub
	log *slog.Logger
}

func NewServer(svc *control.Service, hub *statesync.Hub, logger *slog.Logger) *Server {
	s := &Server{
		svc: svc,
		hub: hub,
		log: hlog.Or(logger).With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               spec.ServerName,
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tracks", s.handleTracks)
	api.Post("/tracks", s.handleAddTrack)
	api.Post("/play", s.handlePlay)
	api.Post("/pause", s.handlePause)
	api.Post("/toggle", s.handleToggle)
	api.Post("/refresh", s.handleRefresh)
	api.Post("/open", s.handleOpen)
	api.Post("/seek", s.handleSeek)
	api.Post("/volume", s.handleVolume)

	api.Get("/clips/:id", s.handleGetClip)
	api.Put("/clips/:id/loop", s.handleSetLoop)
	api.Put("/clips/:id/loop-frames", s.handleSetLoopFrames)
	api.Delete("/clips/:id/loop", s.handleClearLoop)
	api.Get("/clips/:id/transitions", s.handleTransitions)

	api.Get("/audio", s.handleAudioData)
	api.Get("/beats", s.handleBeats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("http listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// ======================================================
// Helpers
// ======================================================

func fail(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, control.ErrArgument),
		errors.Is(err, source.ErrInvalidLoop),
		errors.Is(err, source.ErrSeek),
		errors.Is(err, playback.ErrBeatOutOfRange):
		return fiber.StatusBadRequest
	case errors.Is(err, control.ErrNoTrack),
		errors.Is(err, playback.ErrNotReady),
		errors.Is(err, index.ErrIndex):
		return fiber.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		return fiber.StatusNotFound
	case errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, codec.ErrInvalidFile):
		return fiber.StatusUnsupportedMediaType
	}
	return fiber.StatusInternalServerError
}

func clipID(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

var errClipNotFound = errors.New("clip not found")

// ======================================================
// Handlers
// ======================================================

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.svc.Status())
}

func (s *Server) handleTracks(c *fiber.Ctx) error {
	return c.JSON(s.svc.Tracks())
}

func (s *Server) handleAddTrack(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(s.svc.AddTrack())
}

func (s *Server) handlePlay(c *fiber.Ctx) error {
	s.svc.Play()
	return c.JSON(s.svc.Status())
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	s.svc.Pause()
	return c.JSON(s.svc.Status())
}

func (s *Server) handleToggle(c *fiber.Ctx) error {
	s.svc.TogglePlayback()
	return c.JSON(s.svc.Status())
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	s.svc.Refresh()
	return c.SendStatus(fiber.StatusNoContent)
}

type openRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpen(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return fail(c, fiber.StatusBadRequest, errors.New("path is required"))
	}

	clip, err := s.svc.OpenFile(req.Path)
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(clip)
}

type seekRequest struct {
	Seconds float64 `json:"seconds"`
}

func (s *Server) handleSeek(c *fiber.Ctx) error {
	var req seekRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	if err := s.svc.TrySeek(req.Seconds); err != nil {
		return fail(c, statusFor(err), err)
	}
	return c.JSON(s.svc.Status())
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

func (s *Server) handleVolume(c *fiber.Ctx) error {
	var req volumeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	s.svc.SetVolume(req.Volume)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetClip(c *fiber.Ctx) error {
	id, err := clipID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	clip, ok := s.svc.GetClip(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, errClipNotFound)
	}
	return c.JSON(clip)
}

type loopRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (s *Server) handleSetLoop(c *fiber.Ctx) error {
	id, err := clipID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	var req loopRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	found, err := s.svc.SetClipLoop(id, req.Start, req.End)
	return s.clipResult(c, id, found, err)
}

type loopFramesRequest struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

func (s *Server) handleSetLoopFrames(c *fiber.Ctx) error {
	id, err := clipID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	var req loopFramesRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	found, err := s.svc.SetClipLoopFrames(id, req.Start, req.End)
	return s.clipResult(c, id, found, err)
}

func (s *Server) handleClearLoop(c *fiber.Ctx) error {
	id, err := clipID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}
	return s.clipResult(c, id, s.svc.ClearClipLoop(id), nil)
}

// clipResult answers a clip mutation with the updated clip.
func (s *Server) clipResult(c *fiber.Ctx, id uint64, found bool, err error) error {
	if !found {
		return fail(c, fiber.StatusNotFound, errClipNotFound)
	}
	if err != nil {
		return fail(c, statusFor(err), err)
	}
	clip, _ := s.svc.GetClip(id)
	return c.JSON(clip)
}

type transition struct {
	Beat     uint64  `json:"beat"`
	Distance float32 `json:"distance"`
}

func (s *Server) handleTransitions(c *fiber.Ctx) error {
	id, err := clipID(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err)
	}

	m, found, err := s.svc.GetClipPreferredTransitionBeats(id, c.QueryInt("beat", 0), c.QueryInt("count", spec.SeedNeighbors))
	if !found {
		return fail(c, fiber.StatusNotFound, errClipNotFound)
	}
	if err != nil {
		return fail(c, statusFor(err), err)
	}

	out := make([]transition, 0, len(m))
	for k, d := range m {
		out = append(out, transition{Beat: k, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Beat < out[j].Beat
	})
	return c.JSON(out)
}

func (s *Server) handleAudioData(c *fiber.Ctx) error {
	data, ok := s.svc.GetAudioData(c.Query("path"))
	if !ok {
		return fail(c, fiber.StatusNotFound, errors.New("audio not loaded"))
	}
	return c.JSON(data)
}

func (s *Server) handleBeats(c *fiber.Ctx) error {
	beats, ok := s.svc.GetBeats(c.Query("path"))
	if !ok {
		return fail(c, fiber.StatusNotFound, errors.New("beats not available"))
	}
	return c.JSON(beats)
}

// handleStateWS replays the latest tracks and playback state, then streams
// every change until either side closes.
func (s *Server) handleStateWS(c *websocket.Conn) {
	id, ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(id)

	for _, key := range []string{spec.KeyTracks, spec.KeyPlayback} {
		if p, ok := s.hub.Last(key); ok {
			if err := c.WriteJSON(p.Event()); err != nil {
				return
			}
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteJSON(p.Event()); err != nil {
				s.log.Debug("state socket write failed", "subscriber", id, "err", err)
				return
			}
		case <-closed:
			return
		}
	}
}
