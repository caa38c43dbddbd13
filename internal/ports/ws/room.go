package ws

import (
	"errors"
	"sync/atomic"
	"time"

	"snakesladders/internal/authority"
	"snakesladders/internal/domain"
	"snakesladders/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

var ErrRoomClosed = errors.New("room closed")

// Room owns one authority session. Every join, leave, request and clock tick
// runs on the room goroutine, so the session itself needs no locking.
type Room struct {
	Code    string
	OnEmpty func(code string) // called on the room goroutine when the last human leaves or the room idles out
	// IdleTimeout closes a room that has had no human for this long. Zero disables it.
	IdleTimeout time.Duration

	inbox   chan any
	quit    chan struct{}
	stopped atomic.Bool
	tick    time.Duration
	now     func() time.Time
	session *authority.Session
	conns   map[string]Conn
	logger  runtime.Logger

	idleSince time.Time

	players atomic.Int32
	phase   atomic.Value // domain.Phase
}

func NewRoom(code string, session *authority.Session, tick time.Duration, logger runtime.Logger) *Room {
	r := &Room{
		Code:    code,
		inbox:   make(chan any, 256),
		quit:    make(chan struct{}),
		tick:    tick,
		now:     time.Now,
		session: session,
		conns:   make(map[string]Conn),
		logger:  logger.WithField("room", code),
	}
	r.publishInfo()
	return r
}

// Run processes commands until Stop. It closes the session on exit.
func (r *Room) Run() {
	ticker := time.NewTicker(r.tick)
	defer func() {
		ticker.Stop()
		r.session.Close()
		for id, c := range r.conns {
			_ = c.Close()
			delete(r.conns, id)
		}
	}()

	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			r.handleCommand(cmd)
		case <-ticker.C:
			now := r.now()
			r.session.Advance(now)
			r.deliver()
			r.checkIdle(now)
		}
		r.publishInfo()
	}
}

// Stop ends Run. It is safe to call more than once.
func (r *Room) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.quit)
	}
}

// Join seats a connection and blocks until the room answers.
func (r *Room) Join(id, name string, conn Conn) (authority.Participant, error) {
	reply := make(chan joinResult, 1)
	if !r.post(joinCmd{ID: id, Name: name, Conn: conn, Reply: reply}) {
		return authority.Participant{}, ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res.Participant, res.Err
	case <-r.quit:
		return authority.Participant{}, ErrRoomClosed
	}
}

// Submit queues a request from a seated participant.
func (r *Room) Submit(id string, req wire.Request) {
	r.post(requestCmd{ID: id, Request: req})
}

// Leave queues a departure.
func (r *Room) Leave(id string) {
	r.post(leaveCmd{ID: id})
}

// AddBot seats an AI participant.
func (r *Room) AddBot() error {
	reply := make(chan error, 1)
	if !r.post(addBotCmd{Reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.quit:
		return ErrRoomClosed
	}
}

func (r *Room) post(cmd any) bool {
	if r.stopped.Load() {
		return false
	}
	select {
	case r.inbox <- cmd:
		return true
	case <-r.quit:
		return false
	}
}

// NumPlayers returns the seated participant count, AI included.
func (r *Room) NumPlayers() int { return int(r.players.Load()) }

func (r *Room) Phase() domain.Phase {
	phase, _ := r.phase.Load().(domain.Phase)
	return phase
}

func (r *Room) publishInfo() {
	r.players.Store(int32(r.session.Count()))
	r.phase.Store(r.session.Phase())
}

// checkIdle closes the room once it has had no human for IdleTimeout. A room
// nobody joins and a room holding only AI both count as idle.
func (r *Room) checkIdle(now time.Time) {
	if r.IdleTimeout <= 0 || r.session.HumanCount() > 0 {
		r.idleSince = time.Time{}
		return
	}
	if r.idleSince.IsZero() {
		r.idleSince = now
		return
	}
	if now.Sub(r.idleSince) >= r.IdleTimeout {
		r.logger.Info("Room: no human for %s, closing", r.IdleTimeout)
		r.idleSince = time.Time{}
		if r.OnEmpty != nil {
			r.OnEmpty(r.Code)
		} else {
			r.Stop()
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		p, err := r.session.Join(c.ID, c.Name)
		if err == nil {
			r.conns[c.ID] = c.Conn
		}
		r.deliver()
		c.Reply <- joinResult{Participant: p, Err: err}
	case requestCmd:
		r.handleRequest(c)
		r.deliver()
	case leaveCmd:
		r.handleLeave(c.ID)
	case addBotCmd:
		_, err := r.session.AddBot()
		r.deliver()
		c.Reply <- err
	}
}

func (r *Room) handleRequest(c requestCmd) {
	var err error
	switch c.Request.Op {
	case wire.OpRequestRoll:
		err = r.session.RequestRoll(c.ID, c.Request.Forced)
	case wire.OpRequestReady:
		err = r.session.RequestReady(c.ID, c.Request.Ready)
	case wire.OpRequestStartGame:
		err = r.session.RequestStartGame(c.ID)
	}
	if err != nil {
		r.logger.Debug("Room: request %d from %s rejected: %v", c.Request.Op, c.ID, err)
		r.sendError(c.ID, authority.ErrorCode(err), err.Error())
	}
}

func (r *Room) handleLeave(id string) {
	if c, ok := r.conns[id]; ok {
		_ = c.Close()
		delete(r.conns, id)
	}
	if err := r.session.Leave(id); err != nil {
		r.logger.Debug("Room: leave %s: %v", id, err)
		return
	}
	r.deliver()
	if r.session.HumanCount() == 0 && r.OnEmpty != nil {
		r.OnEmpty(r.Code)
	}
}

// deliver drains the session outbox. An event with recipients goes only to
// those that are connected; AI recipients have no connection and are skipped.
func (r *Room) deliver() {
	var failed []string
	for _, out := range r.session.Flush() {
		frame, err := wire.EncodeEventFrame(out.Event)
		if err != nil {
			r.logger.Error("Room: failed to encode %s: %v", out.Event.Kind(), err)
			continue
		}
		if len(out.Recipients) == 0 {
			for id, c := range r.conns {
				if err := c.Send(frame); err != nil {
					failed = append(failed, id)
				}
			}
			continue
		}
		for _, id := range out.Recipients {
			if c, ok := r.conns[id]; ok {
				if err := c.Send(frame); err != nil {
					failed = append(failed, id)
				}
			}
		}
	}
	for _, id := range failed {
		if _, still := r.conns[id]; still {
			r.logger.Warn("Room: dropping %s after failed send", id)
			r.handleLeave(id)
		}
	}
}

func (r *Room) sendError(id string, code int, message string) {
	c, ok := r.conns[id]
	if !ok {
		return
	}
	frame, err := wire.EncodeErrorFrame(code, message)
	if err != nil {
		r.logger.Error("Room: failed to encode error: %v", err)
		return
	}
	_ = c.Send(frame)
}
