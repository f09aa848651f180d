package rtpmon

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// static payload types, RFC 3551
var payloadNames = map[uint8]string{
	0:  "PCMU",
	8:  "PCMA",
	9:  "G722",
	10: "L16/2",
	11: "L16/1",
	14: "MPA",
}

func PayloadName(pt uint8) string {
	if name, ok := payloadNames[pt]; ok {
		return name
	}
	return "dynamic"
}

type Stats struct {
	Source       string    `json:"source"`
	SSRC         uint32    `json:"ssrc"`
	PayloadType  uint8     `json:"payloadType"`
	Packets      uint64    `json:"packets"`
	Bytes        uint64    `json:"bytes"`
	Lost         uint64    `json:"lost"`
	Invalid      uint64    `json:"invalid"`
	LastSequence uint16    `json:"lastSequence"`
	LastPacket   time.Time `json:"lastPacket"`
}

// Tracker accumulates statistics of a single RTP stream.
type Tracker struct {
	mu      sync.Mutex
	stats   Stats
	started bool
}

func (t *Tracker) Add(source string, pkt *rtp.Packet, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// a new SSRC is a new stream, e.g. the encoder was restarted
	forward := true
	if !t.started || pkt.SSRC != t.stats.SSRC {
		t.stats = Stats{
			Invalid: t.stats.Invalid,
			SSRC:    pkt.SSRC,
		}
		t.started = true
	} else {
		gap := pkt.SequenceNumber - t.stats.LastSequence - 1
		// reordered or duplicated packets wrap to a huge gap, they are
		// neither losses nor the new highest sequence
		forward = gap < 0x8000
		if forward {
			t.stats.Lost += uint64(gap)
		}
	}

	t.stats.Source = source
	t.stats.PayloadType = pkt.PayloadType
	t.stats.Packets++
	t.stats.Bytes += uint64(size)
	if forward {
		t.stats.LastSequence = pkt.SequenceNumber
	}
	t.stats.LastPacket = time.Now()
}

func (t *Tracker) Invalid() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Invalid++
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stats
}

type MonitorCtx struct {
	logger   zerolog.Logger
	addr     string
	interval time.Duration
	tracker  *Tracker
}

func New(addr string, interval time.Duration) *MonitorCtx {
	if interval <= 0 {
		interval = time.Second
	}

	return &MonitorCtx{
		logger:   log.With().Str("module", "rtpmon").Logger(),
		addr:     addr,
		interval: interval,
		tracker:  &Tracker{},
	}
}

func (m *MonitorCtx) Stats() Stats {
	return m.tracker.Stats()
}

// Run listens on the configured UDP address until ctx is done.
func (m *MonitorCtx) Run(ctx context.Context, report func(Stats)) error {
	conn, err := net.ListenPacket("udp", m.addr)
	if err != nil {
		return err
	}

	m.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("listening for RTP packets")
	return m.Serve(ctx, conn, report)
}

// Serve reads RTP packets from conn and calls report every interval.
// It closes conn when done.
func (m *MonitorCtx) Serve(ctx context.Context, conn net.PacketConn, report func(Stats)) error {
	defer conn.Close()

	buf := make([]byte, 65535)
	lastReport := time.Now()

	for {
		if ctx.Err() != nil {
			if report != nil {
				report(m.tracker.Stats())
			}
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(m.interval)); err != nil {
			return err
		}

		n, addr, err := conn.ReadFrom(buf)
		if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
			return err
		}

		if n > 0 {
			pkt := &rtp.Packet{}
			if err := pkt.Unmarshal(buf[:n]); err != nil {
				m.tracker.Invalid()
				m.logger.Debug().Err(err).Str("source", addr.String()).Msg("dropping non RTP datagram")
			} else {
				m.tracker.Add(addr.String(), pkt, n)
			}
		}

		if report != nil && time.Since(lastReport) >= m.interval {
			report(m.tracker.Stats())
			lastReport = time.Now()
		}
	}
}
