// Package mpv implements player.Handle over mpv's JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/strandmedia/strand/internal/player"
)

const commandTimeout = 5 * time.Second

// Property observation IDs registered at connect time.
const (
	obsTimePos = 1 + iota
	obsPause
	obsDuration
)

// Player drives an mpv instance over its JSON IPC socket and adapts its
// events to the player.Handle contract.
type Player struct {
	conn   net.Conn
	logger *slog.Logger

	mu       sync.Mutex
	released bool
	pending  map[int64]chan ipcResponse
	nextReq  int64

	listeners map[int64]player.Listener
	nextSub   int64

	// Cached engine state, refreshed by property observers. Reads are
	// served from here so they never block on a socket round-trip.
	position float64
	duration float64
	playing  bool
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type ipcResponse struct {
	Event     string          `json:"event,omitempty"`
	RequestID int64           `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	ID        int64           `json:"id,omitempty"`     // observation id
	Name      string          `json:"name,omitempty"`   // property name
	Reason    string          `json:"reason,omitempty"` // end-file reason
}

// Connect dials an mpv IPC socket and applies the buffer profile. The mpv
// process must have been started with --input-ipc-server pointing at the
// same path.
func Connect(socketPath string, cfg player.BufferConfig, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := net.DialTimeout("unix", socketPath, commandTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mpv socket: %w", err)
	}

	p := &Player{
		conn:      conn,
		logger:    logger,
		pending:   make(map[int64]chan ipcResponse),
		listeners: make(map[int64]player.Listener),
	}

	go p.readLoop()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	setup := [][]any{
		{"set_property", "demuxer-readahead-secs", cfg.ForwardBufferSeconds},
		{"set_property", "cache-secs", cfg.MinBufferForPlayback},
		{"set_property", "demuxer-max-bytes", cfg.MaxBufferBytes},
		{"observe_property", obsTimePos, "time-pos"},
		{"observe_property", obsPause, "pause"},
		{"observe_property", obsDuration, "duration"},
	}
	for _, cmd := range setup {
		if _, err := p.command(ctx, cmd...); err != nil {
			p.Release()
			return nil, fmt.Errorf("mpv setup command failed: %w", err)
		}
	}

	logger.Debug("connected to mpv", "socket", socketPath)
	return p, nil
}

// readLoop decodes IPC lines and routes them to pending commands or the
// event dispatcher. Exits when the connection closes.
func (p *Player) readLoop() {
	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			p.logger.Debug("ignoring malformed mpv line", "error", err)
			continue
		}

		if resp.Event == "" && resp.RequestID != 0 {
			p.mu.Lock()
			ch, ok := p.pending[resp.RequestID]
			delete(p.pending, resp.RequestID)
			p.mu.Unlock()
			if ok {
				ch <- resp
			}
			continue
		}

		p.handleEvent(resp)
	}

	// Socket gone: fail everything still waiting and mark released so
	// subsequent reads report ErrHandleReleased.
	p.teardown()
}

func (p *Player) handleEvent(resp ipcResponse) {
	switch resp.Event {
	case "property-change":
		p.handlePropertyChange(resp)

	case "start-file":
		p.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusLoading})
		p.emit(player.Event{Kind: player.EventSourceChange})

	case "file-loaded":
		p.emit(player.Event{Kind: player.EventStatusChange, Status: player.StatusReadyToPlay})

	case "end-file":
		if resp.Reason == "error" {
			p.emit(player.Event{
				Kind:   player.EventStatusChange,
				Status: player.StatusError,
				Err:    fmt.Errorf("mpv playback failed"),
			})
		}
	}
}

func (p *Player) handlePropertyChange(resp ipcResponse) {
	switch resp.ID {
	case obsTimePos:
		var pos float64
		if json.Unmarshal(resp.Data, &pos) != nil {
			return
		}
		p.mu.Lock()
		p.position = pos
		p.mu.Unlock()
		p.emit(player.Event{Kind: player.EventTimeUpdate, Position: pos})

	case obsPause:
		var paused bool
		if json.Unmarshal(resp.Data, &paused) != nil {
			return
		}
		p.mu.Lock()
		p.playing = !paused
		p.mu.Unlock()
		p.emit(player.Event{Kind: player.EventPlayingChange, IsPlaying: !paused})

	case obsDuration:
		var dur float64
		if json.Unmarshal(resp.Data, &dur) != nil {
			return
		}
		p.mu.Lock()
		p.duration = dur
		p.mu.Unlock()
	}
}

func (p *Player) emit(ev player.Event) {
	p.mu.Lock()
	listeners := make([]player.Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

// command sends one IPC command and waits for its response.
func (p *Player) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return nil, player.ErrHandleReleased
	}
	p.nextReq++
	id := p.nextReq
	ch := make(chan ipcResponse, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	payload, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	if _, err := p.conn.Write(payload); err != nil {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, player.ErrHandleReleased
	}

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (p *Player) commandBackground(args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	_, err := p.command(ctx, args...)
	return err
}

// --- player.Handle ---

func (p *Player) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return 0, player.ErrHandleReleased
	}
	return p.position, nil
}

func (p *Player) Duration() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return 0, player.ErrHandleReleased
	}
	return p.duration, nil
}

func (p *Player) Playing() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return false, player.ErrHandleReleased
	}
	return p.playing, nil
}

func (p *Player) Play() error {
	return p.commandBackground("set_property", "pause", false)
}

func (p *Player) Pause() error {
	return p.commandBackground("set_property", "pause", true)
}

func (p *Player) SeekBy(seconds float64) error {
	return p.commandBackground("seek", seconds, "relative")
}

func (p *Player) SeekTo(seconds float64) error {
	return p.commandBackground("seek", seconds, "absolute")
}

// Replace swaps the loaded media in place. mpv keeps the same process and
// window, so bound listeners survive the swap.
func (p *Player) Replace(ctx context.Context, src player.Source) error {
	_, err := p.command(ctx, "loadfile", src.URI, "replace")
	if err != nil {
		return err
	}
	if src.Title != "" {
		_ = p.commandBackground("set_property", "force-media-title", src.Title)
	}
	return nil
}

func (p *Player) Bind(l player.Listener) player.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSub++
	id := p.nextSub
	p.listeners[id] = l
	return &subscription{player: p, id: id}
}

// Release closes the IPC connection. Idempotent; pending commands fail
// with ErrHandleReleased.
func (p *Player) Release() {
	p.teardown()
}

func (p *Player) teardown() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	pending := p.pending
	p.pending = make(map[int64]chan ipcResponse)
	p.listeners = make(map[int64]player.Listener)
	conn := p.conn
	p.mu.Unlock()

	for _, ch := range pending {
		ch <- ipcResponse{Error: "connection closed"}
	}
	conn.Close()
	p.logger.Debug("mpv handle released")
}

type subscription struct {
	player *Player
	id     int64
	once   sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.player.mu.Lock()
		delete(s.player.listeners, s.id)
		s.player.mu.Unlock()
	})
}
