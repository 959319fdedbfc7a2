package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tubul-npx/internal/firmware"
	"github.com/coreman2200/tubul-npx/internal/led"
)

// State fans completed engine transfers out to websocket clients and serves
// a health snapshot of the rig.
type State struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	fw        *firmware.Firmware
	leds      int
	frameID   uint64
	startTime time.Time
}

func NewState(leds int) *State {
	return &State{
		clients:   map[*websocket.Conn]bool{},
		leds:      leds,
		startTime: time.Now(),
	}
}

// Attach hands the firmware over once it exists; the sinks are created
// before the firmware, so this comes last in the bring-up order.
func (s *State) Attach(fw *firmware.Firmware) {
	s.mu.Lock()
	s.fw = fw
	s.mu.Unlock()
}

// Sink wraps an engine's output so every completed transfer is broadcast.
// next may be nil (broadcast only) or a hardware sink to chain to.
func (s *State) Sink(id int, next led.Driver) led.Driver {
	return &sink{s: s, id: id, next: next}
}

type sink struct {
	s    *State
	id   int
	next led.Driver
}

func (k *sink) Write(grb []byte) error {
	k.s.broadcastFrame(k.id, grb)
	if k.next != nil {
		return k.next.Write(grb)
	}
	return nil
}

func (k *sink) Close() error {
	if k.next != nil {
		return k.next.Close()
	}
	return nil
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	type engineInfo struct {
		ID   int    `json:"id"`
		Addr uint32 `json:"addr"`
		LEDs int    `json:"leds"`
		IRQ  bool   `json:"irq"`
		Busy bool   `json:"busy"`
	}
	s.mu.RLock()
	fw := s.fw
	frameID := s.frameID
	s.mu.RUnlock()
	if fw == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	var engines []engineInfo
	for _, e := range fw.Engines() {
		engines = append(engines, engineInfo{
			ID:   e.ID(),
			Addr: e.ReadADR(),
			LEDs: e.Length(),
			IRQ:  e.InterruptEnabled(),
			Busy: e.Busy(),
		})
	}
	resp := map[string]any{
		"frames_started": fw.Frames(),
		"frames_sent":    frameID,
		"uptime_s":       time.Since(s.startTime).Seconds(),
		"mode":           fw.Mode().String(),
		"leds":           s.leds,
		"engines":        engines,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) broadcastFrame(engine int, grb []byte) {
	// Full lock: engine completion contexts can land concurrently, and the
	// websocket conns only tolerate one writer at a time.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++

	type msg struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		Engine  int    `json:"engine"`
		GRB     []byte `json:"grb"`
	}
	b, _ := json.Marshal(msg{T: time.Now().UnixNano(), FrameID: s.frameID, Engine: engine, GRB: grb})

	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Int("engine", engine).Msg("write frame")
		}
	}
}
