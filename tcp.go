package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	mbapHeaderSize = 7
	// the length field counts the unit id and the PDU, which is at most 253 bytes
	maxMBAPLength = 254
	minMBAPLength = 2
)

// session serves the requests of one client connection.
type session struct {
	id     string
	conn   net.Conn
	server *Server
	log    logrus.FieldLogger
}

func newSession(conn net.Conn, server *Server, logger logrus.FieldLogger) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		conn:   conn,
		server: server,
		log: logger.WithFields(logrus.Fields{
			"session": id,
			"remote":  conn.RemoteAddr().String(),
		}),
	}
}

// serve reads frames and answers them until the client goes away, a frame cannot be decoded,
// or ctx is done. A frame being dispatched when ctx is done is still answered.
func (s *session) serve(ctx context.Context) {
	s.log.Info("connection accepted")
	defer func() {
		s.conn.Close()
		s.log.Info("connection closed")
	}()

	header := make([]byte, mbapHeaderSize)
	for {
		req, err := s.readFrame(header)
		if err != nil {
			s.readFailed(ctx, err)
			return
		}
		if !s.dispatch(req) {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// interrupt unblocks a pending read so an idle session notices shutdown.
func (s *session) interrupt() {
	s.conn.SetReadDeadline(time.Now())
}

func (s *session) readFrame(header []byte) (adu, error) {
	if _, err := io.ReadFull(s.conn, header); err != nil {
		return adu{}, err
	}
	if proto := getWord(header, 2); proto != 0 {
		s.server.diag.commError()
		return adu{}, fmt.Errorf("%w: expect Modbus protocol 0, not 0x%04x", ErrMalformedHeader, proto)
	}
	length := int(getWord(header, 4))
	if length < minMBAPLength {
		s.server.diag.commError()
		return adu{}, fmt.Errorf("%w: length %v leaves no room for a function code", ErrMalformedHeader, length)
	}
	if length > maxMBAPLength {
		s.server.diag.overrun()
		return adu{}, fmt.Errorf("%w: length %v exceeds %v", ErrMalformedHeader, length, maxMBAPLength)
	}
	body := make([]byte, length-1)
	if _, err := io.ReadFull(s.conn, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return adu{}, err
	}
	return decodeTCPFrame(header, body), nil
}

func (s *session) readFailed(ctx context.Context, err error) {
	switch {
	case errors.Is(err, io.EOF):
		s.log.Debug("client disconnected")
	case ctx.Err() != nil && errors.Is(err, os.ErrDeadlineExceeded):
		s.log.Debug("interrupted by shutdown")
	case errors.Is(err, ErrMalformedHeader):
		s.log.WithError(err).Warn("dropping connection after malformed frame")
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.log.WithError(err).Warn("connection closed mid-frame")
	default:
		s.log.WithError(err).Warn("read failed")
	}
}

// dispatch answers one request and reports whether the session can carry on.
func (s *session) dispatch(req adu) bool {
	log := s.log.WithFields(logrus.Fields{
		"txid":     req.txid,
		"unit":     req.unit,
		"function": fmt.Sprintf("0x%02x", req.pdu.function),
	})
	data, err := s.server.request(req.unit, req.pdu.function, req.pdu.data)
	if errors.Is(err, ErrTruncatedPDU) {
		s.server.diag.commError()
		log.WithError(err).Warn("dropping connection after truncated request")
		return false
	}
	if err != nil {
		log.WithError(err).Info("request failed")
	} else {
		log.Debug("request handled")
	}

	rep := adu{req.txid, req.unit, s.server.respond(req.pdu.function, data, err)}
	if _, err := s.conn.Write(buildTCPFrame(rep)); err != nil {
		log.WithError(err).Warn("unable to send response")
		return false
	}
	return true
}

func decodeTCPFrame(header []byte, body []byte) adu {
	p := pdu{body[0], body[1:]}
	return adu{getWord(header, 0), header[6], p}
}

func buildTCPFrame(td adu) []byte {
	payload := 1 + len(td.pdu.data)
	data := make([]byte, mbapHeaderSize+payload)
	setWord(data, 0, td.txid)
	setWord(data, 2, 0) // protocol identifier - always 0 for Modbus
	setWord(data, 4, uint16(1+payload))
	data[6] = td.unit
	data[7] = td.pdu.function
	copy(data[8:], td.pdu.data)
	return data
}
