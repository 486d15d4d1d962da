package modbus

const (
	maxReadRegisters      = 125
	maxWriteRegisters     = 123
	maxReadWriteRegisters = 121
)

func (s *Server) x03ReadHoldingRegisters(request *dataReader, response *dataBuilder) error {
	addr, _ := request.word()
	count, _ := request.word()
	if err := checkQuantity("Read Holding", count, maxReadRegisters); err != nil {
		return err
	}

	registers, err := s.bank.ReadHoldingsAtomic(addr, count)
	if err != nil {
		return err
	}

	response.registers(registers)
	return nil
}

func (s *Server) x06WriteSingleHoldingRegister(request *dataReader, response *dataBuilder) error {
	addr, _ := request.word()
	value, _ := request.word()
	if err := request.remaining(); err != nil {
		return err
	}

	err := s.bank.WriteHoldingsAtomic(addr, []uint16{uint16(value)})
	if err != nil {
		return err
	}

	response.words(addr, value)
	return nil
}

// readWriteBlock reads the quantity, byte count and values of a multiple register write.
func readWriteBlock(name string, request *dataReader, max int) ([]uint16, error) {
	count, _ := request.word()
	bcnt, err := request.byte()
	if err != nil {
		return nil, err
	}
	if err := checkQuantity(name, count, max); err != nil {
		return nil, err
	}
	if bcnt != count*2 {
		return nil, IllegalValueErrorF("Expected %v bytes for %v registers, but got %v", count*2, count, bcnt)
	}
	words, err := request.words(count)
	if err != nil {
		return nil, err
	}
	return intsToWords(words), nil
}

func (s *Server) x10WriteHoldingRegisters(request *dataReader, response *dataBuilder) error {
	addr, _ := request.word()
	values, err := readWriteBlock("Write Holdings", request, maxWriteRegisters)
	if err != nil {
		return err
	}
	if err := request.remaining(); err != nil {
		return err
	}

	err = s.bank.WriteHoldingsAtomic(addr, values)
	if err != nil {
		return err
	}

	response.words(addr, len(values))
	return nil
}

func (s *Server) x16MaskWriteHoldingRegister(request *dataReader, response *dataBuilder) error {
	addr, _ := request.word()
	andMask, _ := request.word()
	orMask, _ := request.word()
	if err := request.remaining(); err != nil {
		return err
	}

	atomic := s.bank.StartAtomic()
	defer atomic.Complete()

	value, err := s.bank.ReadHoldings(atomic, addr, 1)
	if err != nil {
		return err
	}
	current := int(value[0])

	// The function’s algorithm is:
	// Result = (Current Contents AND And_Mask) OR (Or_Mask AND (NOT And_Mask))
	result := (current & andMask) | (orMask &^ andMask)

	err = s.bank.WriteHoldings(atomic, addr, []uint16{uint16(result)})
	if err != nil {
		return err
	}

	response.words(addr, andMask, orMask)
	return nil
}

func (s *Server) x17WriteReadHoldingRegisters(request *dataReader, response *dataBuilder) error {
	raddr, _ := request.word()
	rcount, _ := request.word()
	waddr, _ := request.word()
	if err := checkQuantity("Read/Write Holdings", rcount, maxReadRegisters); err != nil {
		return err
	}
	values, err := readWriteBlock("Read/Write Holdings", request, maxReadWriteRegisters)
	if err != nil {
		return err
	}
	if err := request.remaining(); err != nil {
		return err
	}

	atomic := s.bank.StartAtomic()
	defer atomic.Complete()

	// validate the read range up front so a failing read leaves the write unapplied
	if err := checkAddress("Holding", raddr, rcount, s.bank.Len()); err != nil {
		return err
	}

	err = s.bank.WriteHoldings(atomic, waddr, values)
	if err != nil {
		return err
	}

	registers, err := s.bank.ReadHoldings(atomic, raddr, rcount)
	if err != nil {
		return err
	}

	response.registers(registers)
	return nil
}
