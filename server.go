package modbus

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ServerConfig provides configuration parameters to NewServer.
type ServerConfig struct {
	// UnitID is the single slave id the server answers for (1..247).
	UnitID int
	// Bank holds the holding registers served to clients. Required.
	Bank *RegisterBank
	// ServerID is returned by Report Server ID (0x11).
	ServerID string
	// Identity is returned by Read Device Identification (0x2B/0x0E).
	Identity Identity
	// Logger reports handler failures. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

type requestHandler func(request *dataReader, response *dataBuilder) error

type requestHandlerMeta struct {
	function byte
	minSize  int
	handler  requestHandler
	event    bool
}

// Server handles decoded requests for one simulated unit. It is safe for concurrent use by
// any number of sessions; the only shared state is the register bank and the diagnostics.
type Server struct {
	unit       byte
	bank       *RegisterBank
	id         []byte
	deviceInfo []string
	rhandlers  map[byte]requestHandlerMeta
	diag       *serverDiagnosticManager
	log        logrus.FieldLogger
}

// NewServer creates a Server answering for cfg.UnitID from cfg.Bank.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Bank == nil {
		return nil, errors.New("server requires a register bank")
	}
	if cfg.UnitID < 1 || cfg.UnitID > 247 {
		return nil, fmt.Errorf("unit id %v outside 1..247", cfg.UnitID)
	}
	if err := checkServerID(cfg.ServerID); err != nil {
		return nil, err
	}
	if err := cfg.Identity.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	s := &Server{
		unit:       byte(cfg.UnitID),
		bank:       cfg.Bank,
		id:         []byte(cfg.ServerID),
		deviceInfo: cfg.Identity.objects(),
		rhandlers:  make(map[byte]requestHandlerMeta),
		diag:       newServerDiagnosticManager(),
		log:        cfg.Logger,
	}

	// Set up the holding register handlers
	s.addRequestHandler(0x03, 4, true, s.x03ReadHoldingRegisters)
	s.addRequestHandler(0x06, 4, true, s.x06WriteSingleHoldingRegister)
	s.addRequestHandler(0x10, 5, true, s.x10WriteHoldingRegisters)
	s.addRequestHandler(0x16, 6, true, s.x16MaskWriteHoldingRegister)
	s.addRequestHandler(0x17, 9, true, s.x17WriteReadHoldingRegisters)

	// Set up the diagnostic handlers
	s.addRequestHandler(0x07, 0, false, s.x07ReadExceptionStatus)
	s.addRequestHandler(0x08, 2, false, s.x08Diagnostic)
	s.addRequestHandler(0x0b, 0, false, s.x0bCommEventCounter)
	s.addRequestHandler(0x11, 0, false, s.x11ReportServerID)
	s.addRequestHandler(0x2b, 3, false, s.x2bDeviceIdentification)

	return s, nil
}

func (s *Server) addRequestHandler(function byte, minsize int, event bool, handler requestHandler) {
	s.rhandlers[function] = requestHandlerMeta{function, minsize, handler, event}
}

// UnitID returns the slave id this server answers for.
func (s *Server) UnitID() int {
	return int(s.unit)
}

// Bank returns the register bank served to clients.
func (s *Server) Bank() *RegisterBank {
	return s.bank
}

// Diagnostics returns the current diagnostic counts of the server instance
func (s *Server) Diagnostics() ServerDiagnostics {
	return s.diag.getDiagnostics()
}

// request handles one request PDU and returns the response payload. A *Error result is answered
// in-band as an exception; an error wrapping ErrTruncatedPDU means the frame could not be decoded.
func (s *Server) request(unit byte, function byte, request []byte) ([]byte, error) {
	s.diag.message()
	if unit != s.unit {
		return nil, GatewayTargetErrorF("Unit 0x%02x is not served here (unit 0x%02x)", unit, s.unit)
	}
	s.diag.serverMessage()

	h, ok := s.rhandlers[function]
	if !ok {
		return nil, IllegalFunctionErrorF("Function code 0x%02x not implemented", function)
	}

	req := getReader(request)
	res := dataBuilder{}

	err := req.canRead(h.minSize)
	if err != nil {
		return nil, err
	}

	err = h.handler(&req, &res)
	if err != nil {
		return nil, err
	}

	err = req.remaining()
	if err != nil {
		return nil, err
	}

	if h.event {
		// a successful recorded event increments the successful event counter
		s.diag.eventCounter()
	}

	return res.payload(), nil
}

// respond turns the outcome of request into the PDU sent back to the client.
func (s *Server) respond(function byte, data []byte, err error) pdu {
	if err == nil {
		return pdu{function, data}
	}
	var mError *Error
	if !errors.As(err, &mError) {
		s.log.WithError(err).WithField("function", fmt.Sprintf("0x%02x", function)).Error("request handler failed")
		mError = ServerFailureErrorF("%v", err)
	}
	s.diag.exception()
	return mError.asPDU(function)
}
