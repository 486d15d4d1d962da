package modbus

/*
This file contains the routines for reading from and writing to PDU frames
*/

import "fmt"

// dataBuilder is used to build outgoing frames we send to a remote system
type dataBuilder struct {
	data []byte
}

func (p *dataBuilder) payload() []byte {
	return p.data
}

func (p *dataBuilder) byte(b int) {
	p.data = append(p.data, bytePanic(b))
}

func (p *dataBuilder) bytes(s ...int) {
	for _, b := range s {
		p.byte(b)
	}
}

func (p *dataBuilder) nbytes(s ...int) {
	p.byte(len(s))
	p.bytes(s...)
}

func (p *dataBuilder) word(w int) {
	wordPanic(w)
	p.data = append(p.data, byte(w>>8), byte(w&0xff))
}

func (p *dataBuilder) words(wds ...int) {
	for _, w := range wds {
		p.word(w)
	}
}

// registers appends the byte count followed by the register values.
func (p *dataBuilder) registers(values []uint16) {
	p.byte(2 * len(values))
	p.words(wordsToInts(values)...)
}

type dataReader struct {
	cursor int
	data   []byte
}

func getReader(payload []byte) dataReader {
	return dataReader{0, payload}
}

func (p *dataReader) canRead(count int) error {
	over := p.cursor + count - len(p.data)
	if over > 0 {
		os := ""
		if over > 1 {
			os = "s"
		}
		cs := ""
		if count > 1 {
			cs = "s"
		}
		return fmt.Errorf("%w: unable to read %v byte%v beyond end of data. Request %v byte%v from %v in %v size slice", ErrTruncatedPDU, over, os, count, cs, p.cursor, len(p.data))
	}
	return nil
}

func (p *dataReader) byte() (int, error) {
	if err := p.canRead(1); err != nil {
		return 0, err
	}
	b := p.data[p.cursor]
	p.cursor++
	return int(b), nil
}

func (p *dataReader) word() (int, error) {
	if err := p.canRead(2); err != nil {
		return 0, err
	}
	w := getWord(p.data, p.cursor)
	p.cursor += 2
	return int(w), nil
}

func (p *dataReader) words(count int) ([]int, error) {
	if err := p.canRead(count * 2); err != nil {
		return nil, err
	}
	wds := make([]int, 0, count)
	for i := 0; i < count; i++ {
		w, _ := p.word()
		wds = append(wds, w)
	}
	return wds, nil
}

// rest consumes and returns everything left in the payload.
func (p *dataReader) rest() []byte {
	ret := p.data[p.cursor:]
	p.cursor = len(p.data)
	return ret
}

func (p *dataReader) remaining() error {
	left := len(p.data) - p.cursor
	if left != 0 {
		ls := ""
		if left != 1 {
			ls = "s"
		}
		return IllegalValueErrorF("Expected to read all the payload data, but %v byte%v remain", left, ls)
	}
	return nil
}
