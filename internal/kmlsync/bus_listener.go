package kmlsync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
)

// maxBusLine bounds one newline-delimited bus message.
const maxBusLine = 1 << 20

// ServeBus accepts newline-delimited JSON bus messages on ln until ctx ends.
func (s *Service) ServeBus(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("bus listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleBusConn(conn)
	}
}

// handleBusConn decodes one message per line. Replies for messages naming a
// reply channel are written back on the same connection, one JSON per line.
func (s *Service) handleBusConn(conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.busClientCount.Add(1)
	s.logger.Info().Str("remote", remote).Int64("active_clients", active).Msg("bus client connected")
	defer func() {
		remaining := s.busClientCount.Add(-1)
		s.logger.Info().Str("remote", remote).Int64("active_clients", remaining).Msg("bus client disconnected")
	}()

	pub := &linePublisher{w: conn}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBusLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			s.logger.Warn().Err(err).Str("remote", remote).Msg("bus message malformed")
			if err := pub.Publish(Reply{ID: uuid.NewString(), Text: fmt.Sprintf("Malformed bus message: %v\nWarning", err), Warning: true}); err != nil {
				return
			}
			continue
		}
		res, err := s.bus.Dispatch(msg, pub)
		for _, line := range res.Log {
			s.logger.Info().Str("source", "bus").Msg("command result: " + line)
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("remote", remote).Msg("bus reply failed")
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn().Err(err).Str("remote", remote).Msg("bus read")
	}
}

// linePublisher writes replies as JSON lines to one connection.
type linePublisher struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *linePublisher) Publish(reply Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.w.Write(payload)
	return err
}
