/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

// Package ipc serves the HDX line protocol on a unix socket.
//
// Each request is one line, "VERB args". Replies are one line: OK, a JSON
// document, or "ERR <CODE>". Read-only verbs are open to every connection.
// The first connection to send a control verb becomes the owner and keeps
// control until it disconnects; it also receives "EVENT <json>" lines for
// every state change.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"hdxloop/internal/codec"
	"hdxloop/internal/control"
	"hdxloop/internal/index"
	hlog "hdxloop/internal/log"
	"hdxloop/internal/playback"
	"hdxloop/internal/source"
	"hdxloop/internal/statesync"
	"hdxloop/pkg/spec"
)

// conn serializes writes from the reply path and the event forwarder.
type conn struct {
	net.Conn
	wmu   sync.Mutex
	subID string
}

func (c *conn) writeLine(s string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.Write([]byte(s + "\n"))
	return err
}

type Server struct {
	svc *control.Service
	hub *statesync.Hub
	log *slog.Logger

	mtx   sync.Mutex
	owner *conn
	ln    net.Listener
	conns map[*conn]struct{}
}

func NewServer(svc *control.Service, hub *statesync.Hub, logger *slog.Logger) *Server {
	return &Server{
		svc:   svc,
		hub:   hub,
		log:   hlog.Or(logger).With("component", "ipc"),
		conns: make(map[*conn]struct{}),
	}
}

// Listen replaces any stale socket file at path and serves on it until
// Close.
func (s *Server) Listen(path string) error {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return err
	}
	s.log.Info("ipc listening", "socket", path)
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	s.mtx.Lock()
	s.ln = ln
	s.mtx.Unlock()

	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}
		go s.handleConn(c)
	}
}

// Close stops accepting and drops every connection.
func (s *Server) Close() error {
	s.mtx.Lock()
	ln := s.ln
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mtx.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if ln != nil {
		return ln.Close()
	}
	return nil
}

// ===============================
// Ownership
// ===============================

func (s *Server) isOwner(c *conn) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.owner == c
}

// claimOwner makes c the owner if nobody is. A new owner starts receiving
// state events.
func (s *Server) claimOwner(c *conn) bool {
	s.mtx.Lock()
	if s.owner != nil {
		ok := s.owner == c
		s.mtx.Unlock()
		return ok
	}
	s.owner = c
	s.mtx.Unlock()

	id, ch := s.hub.Subscribe()
	c.subID = id
	go func() {
		for p := range ch {
			b, err := json.Marshal(p)
			if err != nil {
				continue
			}
			if err := c.writeLine("EVENT " + string(b)); err != nil {
				s.releaseOwner(c)
				return
			}
		}
	}()

	s.log.Info("control claimed", "remote", c.RemoteAddr())
	return true
}

// releaseOwner gives up control. Playback pauses when its owner leaves.
func (s *Server) releaseOwner(c *conn) {
	s.mtx.Lock()
	if s.owner != c {
		s.mtx.Unlock()
		return
	}
	s.owner = nil
	s.mtx.Unlock()

	s.hub.Unsubscribe(c.subID)
	s.svc.Pause()
	s.log.Info("control released")
}

// ===============================
// Connection loop
// ===============================

func (s *Server) handleConn(nc net.Conn) {
	c := &conn{Conn: nc}

	s.mtx.Lock()
	s.conns[c] = struct{}{}
	s.mtx.Unlock()

	defer func() {
		s.releaseOwner(c)
		s.mtx.Lock()
		delete(s.conns, c)
		s.mtx.Unlock()
		c.Close()
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// verb + raw argument, paths may contain spaces
		parts := strings.SplitN(line, " ", 2)
		verb := strings.ToUpper(parts[0])
		arg := ""
		if len(parts) == 2 {
			arg = strings.TrimSpace(parts[1])
		}

		if err := c.writeLine(s.dispatch(c, verb, arg)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(c *conn, verb, arg string) string {
	if reply, ok := s.readOnly(c, verb, arg); ok {
		return reply
	}

	if !s.claimOwner(c) {
		return "ERR CONTROL_LOCKED"
	}
	return s.control(c, verb, arg)
}

// ===============================
// Read-only commands
// ===============================

func (s *Server) readOnly(c *conn, verb, arg string) (string, bool) {
	switch verb {
	case "ABOUT":
		return fmt.Sprintf("%s V.%d.%d", spec.ServerName, spec.VersionMajor, spec.VersionMinor), true

	case "PING":
		return "Pong", true

	case "WHOAMI":
		if s.isOwner(c) {
			return "OWNER", true
		}
		return "OBSERVER", true

	case "STATUS":
		return jsonLine(s.svc.Status()), true

	case "TRACKS":
		return jsonLine(s.svc.Tracks()), true

	case "CLIP":
		id, ok := argUint(strings.Fields(arg), 0)
		if !ok {
			return "ERR ARG", true
		}
		clip, found := s.svc.GetClip(id)
		if !found {
			return "ERR NOT_FOUND", true
		}
		return jsonLine(clip), true

	case "AUDIO-DATA":
		if arg == "" {
			return "ERR ARG", true
		}
		data, found := s.svc.GetAudioData(arg)
		if !found {
			return "ERR NOT_FOUND", true
		}
		return jsonLine(data), true

	case "BEATS":
		if arg == "" {
			return "ERR ARG", true
		}
		beats, found := s.svc.GetBeats(arg)
		if !found {
			return "ERR NOT_FOUND", true
		}
		return jsonLine(beats), true

	case "TRANSITIONS":
		args := strings.Fields(arg)
		id, ok1 := argUint(args, 0)
		beat, ok2 := argInt(args, 1)
		if !ok1 || !ok2 {
			return "ERR ARG", true
		}
		count, ok := argInt(args, 2)
		if !ok {
			count = spec.SeedNeighbors
		}
		m, found, err := s.svc.GetClipPreferredTransitionBeats(id, beat, count)
		if !found {
			return "ERR NOT_FOUND", true
		}
		if err != nil {
			return errLine(err), true
		}
		// json object keys must be strings
		out := make(map[string]float32, len(m))
		for k, v := range m {
			out[strconv.FormatUint(k, 10)] = v
		}
		return jsonLine(out), true
	}
	return "", false
}

// ===============================
// Control commands (owner only)
// ===============================

func (s *Server) control(c *conn, verb, arg string) string {
	args := strings.Fields(arg)

	switch verb {
	case "PLAY":
		s.svc.Play()
		return "OK"

	case "PAUSE":
		s.svc.Pause()
		return "OK"

	case "TOGGLE":
		s.svc.TogglePlayback()
		return "OK"

	case "REFRESH":
		s.svc.Refresh()
		return "OK"

	case "ADD-TRACK":
		return jsonLine(s.svc.AddTrack())

	case "OPEN":
		if arg == "" {
			return "ERR ARG"
		}
		clip, err := s.svc.OpenFile(arg)
		if err != nil {
			return errLine(err)
		}
		return jsonLine(clip)

	case "SEEK":
		sec, ok := argFloat(args, 0)
		if !ok {
			return "ERR ARG"
		}
		if err := s.svc.TrySeek(sec); err != nil {
			return errLine(err)
		}
		return "OK"

	case "VOLUME":
		v, ok := argFloat(args, 0)
		if !ok {
			return "ERR ARG"
		}
		s.svc.SetVolume(v)
		return "OK"

	case "LOOP":
		id, ok1 := argUint(args, 0)
		start, ok2 := argFloat(args, 1)
		end, ok3 := argFloat(args, 2)
		if !ok1 || !ok2 || !ok3 {
			return "ERR ARG"
		}
		found, err := s.svc.SetClipLoop(id, start, end)
		return clipReply(found, err)

	case "LOOP-FRAMES":
		id, ok1 := argUint(args, 0)
		start, ok2 := argUint(args, 1)
		end, ok3 := argUint(args, 2)
		if !ok1 || !ok2 || !ok3 || start > 1<<32-1 || end > 1<<32-1 {
			return "ERR ARG"
		}
		found, err := s.svc.SetClipLoopFrames(id, uint32(start), uint32(end))
		return clipReply(found, err)

	case "CLEAR-LOOP":
		id, ok := argUint(args, 0)
		if !ok {
			return "ERR ARG"
		}
		return clipReply(s.svc.ClearClipLoop(id), nil)

	case "RELEASE":
		s.releaseOwner(c)
		return "OK"
	}
	return "ERR UNKNOWN"
}

// ===============================
// Helpers
// ===============================

func argInt(parts []string, idx int) (int, bool) {
	if len(parts) <= idx {
		return 0, false
	}
	v, err := strconv.Atoi(parts[idx])
	if err != nil {
		return 0, false
	}
	return v, true
}

func argUint(parts []string, idx int) (uint64, bool) {
	if len(parts) <= idx {
		return 0, false
	}
	v, err := strconv.ParseUint(parts[idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func argFloat(parts []string, idx int) (float64, bool) {
	if len(parts) <= idx {
		return 0, false
	}
	v, err := strconv.ParseFloat(parts[idx], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func jsonLine(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "ERR INTERNAL"
	}
	return string(b)
}

func clipReply(found bool, err error) string {
	if !found {
		return "ERR NOT_FOUND"
	}
	if err != nil {
		return errLine(err)
	}
	return "OK"
}

// errLine maps an error onto a protocol code.
func errLine(err error) string {
	switch {
	case errors.Is(err, control.ErrArgument):
		return "ERR ARG"
	case errors.Is(err, control.ErrNoTrack):
		return "ERR NO_TRACK"
	case errors.Is(err, source.ErrInvalidLoop):
		return "ERR INVALID_LOOP"
	case errors.Is(err, source.ErrSeek):
		return "ERR SEEK_RANGE"
	case errors.Is(err, playback.ErrNotReady):
		return "ERR NOT_READY"
	case errors.Is(err, playback.ErrBeatOutOfRange):
		return "ERR BEAT_RANGE"
	case errors.Is(err, index.ErrIndex):
		return "ERR INDEX"
	case errors.Is(err, os.ErrNotExist):
		return "ERR FILE_NOT_FOUND"
	case errors.Is(err, codec.ErrUnknownFormat), errors.Is(err, codec.ErrInvalidFile):
		return "ERR FORMAT"
	}
	return "ERR INTERNAL"
}
