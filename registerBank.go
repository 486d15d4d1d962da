package modbus

import "fmt"

const (
	// MinRegisters is the smallest holding register bank the simulator will serve.
	MinRegisters = 120
	// MaxRegisters covers the full 16-bit Modbus address space.
	MaxRegisters = 65536
)

/*
Atomic allows locked access to the register bank. An Atomic instance is created by calling
StartAtomic() on the RegisterBank, and only one Atomic is live at a time.

Do not Complete an atomic unless you started it. It's normal to `defer a.Complete()` immediately after starting it

	atomic := bank.StartAtomic()
	defer atomic.Complete()

	// do stuff using the atomic...

*/
type Atomic interface {
	// Complete indicates that all operations in the atomic set are queued. It returns when all operations have completed.
	Complete()

	execute(func())
}

// HoldingObserver is told about every holding register changed by a write, after the
// write has been applied.
type HoldingObserver interface {
	OnWrite(address int, value uint16)
}

// HoldingObserverFunc adapts a plain function to a HoldingObserver.
type HoldingObserverFunc func(address int, value uint16)

// OnWrite calls f(address, value).
func (f HoldingObserverFunc) OnWrite(address int, value uint16) {
	f(address, value)
}

// RegisterBank is the holding register store of a simulated unit. All access goes through
// a single goroutine, so reads and writes from concurrent sessions never interleave.
type RegisterBank struct {
	holdings []uint16
	observer HoldingObserver
	atomics  chan Atomic
}

type atomic struct {
	todo chan func()
	done chan bool
}

func (a *atomic) execute(fn func()) {
	a.todo <- fn
}

func (a *atomic) Complete() {
	close(a.todo)
	<-a.done
}

// NewRegisterBank creates a zero-initialised bank of count holding registers. observer may be nil.
func NewRegisterBank(count int, observer HoldingObserver) (*RegisterBank, error) {
	if count < MinRegisters || count > MaxRegisters {
		return nil, fmt.Errorf("register count %v outside %v..%v", count, MinRegisters, MaxRegisters)
	}
	b := &RegisterBank{
		holdings: make([]uint16, count),
		observer: observer,
		atomics:  make(chan Atomic),
	}
	go b.manageCache()
	return b, nil
}

// Len returns the number of holding registers in the bank.
func (b *RegisterBank) Len() int {
	return len(b.holdings)
}

// StartAtomic requests exclusive access to the bank. Only 1 transaction is active at a time,
// and is active until it is Completed.
func (b *RegisterBank) StartAtomic() Atomic {
	return <-b.atomics
}

// manageCache is run as a go-routine, it's the only one that accesses the holding registers
func (b *RegisterBank) manageCache() {
	for {
		// seed the channel with a new atomic operation.
		a := &atomic{make(chan func(), 5), make(chan bool)}
		b.atomics <- a

		for fn := range a.todo {
			fn()
		}
		close(a.done)
	}
}

// ReadHoldings returns a copy of count registers from address as part of an existing atomic operation.
func (b *RegisterBank) ReadHoldings(atomic Atomic, address, count int) ([]uint16, error) {
	var ret []uint16
	var err error
	done := make(chan bool)
	atomic.execute(func() {
		defer close(done)
		err = checkAddress("Holding", address, count, len(b.holdings))
		if err == nil {
			ret = append(make([]uint16, 0, count), b.holdings[address:address+count]...)
		}
	})
	<-done
	return ret, err
}

// ReadHoldingsAtomic performs an atomic ReadHoldings
func (b *RegisterBank) ReadHoldingsAtomic(address, count int) ([]uint16, error) {
	atomic := b.StartAtomic()
	defer atomic.Complete()
	return b.ReadHoldings(atomic, address, count)
}

// WriteHoldings stores values from address as part of an existing atomic operation. Nothing is
// written unless the whole range fits. The observer sees each written address in ascending order
// before WriteHoldings returns.
func (b *RegisterBank) WriteHoldings(atomic Atomic, address int, values []uint16) error {
	var err error
	done := make(chan bool)
	atomic.execute(func() {
		defer close(done)
		err = checkAddress("Holding", address, len(values), len(b.holdings))
		if err != nil {
			return
		}
		copy(b.holdings[address:], values)
		for i, v := range values {
			b.notify(address+i, v)
		}
	})
	<-done
	return err
}

// WriteHoldingsAtomic performs an atomic WriteHoldings
func (b *RegisterBank) WriteHoldingsAtomic(address int, values []uint16) error {
	atomic := b.StartAtomic()
	defer atomic.Complete()
	return b.WriteHoldings(atomic, address, values)
}

// notify runs the observer for one address. A failing observer must not break the write path.
func (b *RegisterBank) notify(address int, value uint16) {
	if b.observer == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	b.observer.OnWrite(address, value)
}
