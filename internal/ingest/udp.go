// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// UDPListener is the datagram ingest entry point, wrapped as a
// suture.Service so a panic or transient bind failure is restarted with
// backoff rather than taking down the process.
type UDPListener struct {
	addr   string
	router *Router
	rawLog *RawLog
	logger zerolog.Logger
	now    func() time.Time
}

// NewUDPListener constructs a listener bound to addr (":port"). rawLog
// may be nil when the legacy flat raw log is not configured.
func NewUDPListener(addr string, router *Router, rawLog *RawLog, now func() time.Time, logger zerolog.Logger) *UDPListener {
	if now == nil {
		now = time.Now
	}
	return &UDPListener{addr: addr, router: router, rawLog: rawLog, logger: logger, now: now}
}

// Serve implements suture.Service. It blocks on kernel recv until ctx is
// canceled, decoding, sanitizing and dispatching every inbound datagram.
func (l *UDPListener) Serve(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return fmt.Errorf("ingest: resolve udp addr %s: %w", l.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("ingest: bind udp %s: %w", l.addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65535)
	for {
		n, srcAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			l.logger.Warn().Err(err).Msg("ingest: udp read error")
			continue
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		srcIP := srcAddr.IP.String()
		recvTS := l.now()

		if l.rawLog != nil {
			l.rawLog.Append(packet, srcAddr, recvTS)
		}

		l.handleDatagram(conn, packet, srcAddr, srcIP)
	}
}

func (l *UDPListener) handleDatagram(conn *net.UDPConn, packet []byte, srcAddr *net.UDPAddr, srcIP string) {
	var raw wireReport
	if err := json.Unmarshal(packet, &raw); err != nil {
		l.logger.Debug().Err(err).Str("src_ip", srcIP).Msg("ingest: dropping malformed udp packet")
		return
	}
	report := Sanitize(raw)

	result, routeErr := l.router.HandleReport(report, srcIP, "udp")
	if routeErr != nil {
		l.logger.Debug().Err(routeErr).Str("tracker_id", report.TrackerID).Str("src_ip", srcIP).
			Msg("ingest: udp report rejected")
	}

	ackBytes, err := json.Marshal(result.Ack)
	if err != nil {
		l.logger.Warn().Err(err).Msg("ingest: failed to marshal udp ack")
		return
	}
	if _, err := conn.WriteToUDP(ackBytes, srcAddr); err != nil {
		l.logger.Debug().Err(err).Str("src_ip", srcIP).Msg("ingest: failed to send udp ack")
	}
}
