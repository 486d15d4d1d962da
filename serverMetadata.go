package modbus

import "fmt"

const (
	// function, byte count and run indicator leave 250 of the 253 PDU bytes for the server id
	MaxServerIDLength = 250
	// the device identification header and one object id/length pair leave 244 bytes for an object
	MaxIdentityObjectLength = 244
)

// Identity is the device identification served by function 0x2B / MEI type 0x0E.
// Fields are listed in object id order.
type Identity struct {
	VendorName          string `yaml:"vendor_name"`
	ProductCode         string `yaml:"product_code"`
	MajorMinorRevision  string `yaml:"major_minor_revision"`
	VendorURL           string `yaml:"vendor_url"`
	ProductName         string `yaml:"product_name"`
	ModelName           string `yaml:"model_name"`
	UserApplicationName string `yaml:"user_application_name"`
}

// DefaultIdentity describes the simulated AC unit.
func DefaultIdentity() Identity {
	return Identity{
		VendorName:         "My Generic Python Simulator",
		ProductCode:        "ESP32-TESTER",
		MajorMinorRevision: "1.0",
		VendorURL:          "http://localhost",
		ProductName:        "AC Unit Simulator",
		ModelName:          "Simulated AC",
	}
}

// objects returns the identity as object values 0x00.. with trailing empty objects dropped.
// The three basic objects are always present.
func (id Identity) objects() []string {
	objs := []string{
		id.VendorName,
		id.ProductCode,
		id.MajorMinorRevision,
		id.VendorURL,
		id.ProductName,
		id.ModelName,
		id.UserApplicationName,
	}
	n := len(objs)
	for n > 3 && objs[n-1] == "" {
		n--
	}
	return objs[:n]
}

// Validate checks that every object fits in a single device identification response.
func (id Identity) Validate() error {
	for oid, obj := range id.objects() {
		if len(obj) > MaxIdentityObjectLength {
			return fmt.Errorf("identity object 0x%02x is %v bytes, limit is %v", oid, len(obj), MaxIdentityObjectLength)
		}
	}
	return nil
}

func checkServerID(id string) error {
	if len(id) > MaxServerIDLength {
		return fmt.Errorf("server id is %v bytes, limit is %v", len(id), MaxServerIDLength)
	}
	return nil
}

func (s *Server) x07ReadExceptionStatus(request *dataReader, response *dataBuilder) error {
	response.byte(0)
	return nil
}

func (s *Server) x11ReportServerID(request *dataReader, response *dataBuilder) error {
	tosend := make([]int, 0, len(s.id)+1)
	for _, b := range s.id {
		tosend = append(tosend, int(b))
	}
	// run indicator status: ON
	tosend = append(tosend, 0xff)
	response.nbytes(tosend...)
	return nil
}

func (s *Server) x2bDeviceIdentification(request *dataReader, response *dataBuilder) error {
	sfn, _ := request.byte()
	if sfn != 0x0e {
		return IllegalFunctionErrorF("Do not support MEI type 0x%02x. Only Device Identification 0x0e", sfn)
	}
	code, _ := request.byte()
	oid, _ := request.byte()
	if code < 1 || code > 4 {
		return IllegalValueErrorF("No such code %v for Device Identification", code)
	}
	if oid >= len(s.deviceInfo) {
		if code == 4 {
			return IllegalAddressErrorF("No such ObjectId %v for Device Identification", oid)
		}
		// streaming access restarts from the first object of the category
		oid = 0
	}

	limits := []int{0, 3, 7, len(s.deviceInfo), oid + 1}
	max := limits[code]
	if max > len(s.deviceInfo) {
		max = len(s.deviceInfo)
	}
	if code == 1 && oid > 2 {
		oid = 0
	}

	conf := 1
	if len(s.deviceInfo) > 3 {
		conf = 2
	}
	if code == 4 {
		conf |= 0x80
	}

	tosend := s.deviceInfo[oid:max]
	remaining := 253 - 7
	sent := make([]string, 0, len(tosend))
	for _, di := range tosend {
		diz := len(di) + 2
		if remaining < diz {
			break
		}
		remaining -= diz
		sent = append(sent, di)
	}

	more := 0
	next := 0
	if len(tosend) > len(sent) {
		more = 0xff
		next = oid + len(sent)
	}
	response.byte(0x0e)
	response.byte(code)
	response.byte(conf)
	response.byte(more)
	response.byte(next)
	response.byte(len(sent))
	for i, di := range sent {
		response.byte(oid + i)
		b := make([]int, len(di))
		for j := 0; j < len(di); j++ {
			b[j] = int(di[j])
		}
		response.nbytes(b...)
	}
	return nil
}

func (s *Server) x08Diagnostic(request *dataReader, response *dataBuilder) error {
	subfn, _ := request.word()
	response.word(subfn)
	switch subfn {
	case 0x00:
		return s.diagEcho(request, response)
	case 0x0a:
		return s.diagClearCounters(request, response)
	case 0x0b:
		return s.diagGenericCount("Bus Messages", s.diag.getDiagnostics().Messages, request, response)
	case 0x0c:
		return s.diagGenericCount("Bus Errors", s.diag.getDiagnostics().CommErrors, request, response)
	case 0x0d:
		return s.diagGenericCount("Bus Exceptions", s.diag.getDiagnostics().Exceptions, request, response)
	case 0x0e:
		return s.diagGenericCount("Server Messages", s.diag.getDiagnostics().ServerMessages, request, response)
	case 0x12:
		return s.diagGenericCount("Bus Overruns", s.diag.getDiagnostics().Overruns, request, response)
	case 0x14:
		return s.diagClearOverrunCounter(request, response)
	}
	request.rest()
	return IllegalFunctionErrorF("Unsupported diagnostic sub function %v", subfn)
}

func (s *Server) diagEcho(request *dataReader, response *dataBuilder) error {
	for _, b := range request.rest() {
		response.byte(int(b))
	}
	return nil
}

// diagZeroData reads the 0x0000 data field most diagnostic sub functions require.
func diagZeroData(name string, request *dataReader) error {
	check, err := request.word()
	if err != nil {
		return err
	}
	if check != 0 {
		return IllegalValueErrorF("%v requires 0x0000 input", name)
	}
	return nil
}

func (s *Server) diagClearCounters(request *dataReader, response *dataBuilder) error {
	if err := diagZeroData("Clear Counters", request); err != nil {
		return err
	}
	s.diag.clear()
	response.word(0)
	return nil
}

func (s *Server) diagClearOverrunCounter(request *dataReader, response *dataBuilder) error {
	if err := diagZeroData("Clear Overrun Counter", request); err != nil {
		return err
	}
	s.diag.clearOverrun()
	response.word(0)
	return nil
}

func (s *Server) diagGenericCount(name string, val int, request *dataReader, response *dataBuilder) error {
	if err := diagZeroData(name, request); err != nil {
		return err
	}
	response.word(wordClamp(val))
	return nil
}

func (s *Server) x0bCommEventCounter(request *dataReader, response *dataBuilder) error {
	// requests are handled as they arrive, the server is never busy
	response.word(0x0000)
	response.word(wordClamp(s.diag.getDiagnostics().EventCounter))
	return nil
}
