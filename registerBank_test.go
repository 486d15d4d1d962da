package modbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedWrite struct {
	address int
	value   uint16
}

type writeRecorder struct {
	mu     sync.Mutex
	writes []recordedWrite
}

func (r *writeRecorder) OnWrite(address int, value uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, recordedWrite{address, value})
}

func (r *writeRecorder) recorded() []recordedWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedWrite(nil), r.writes...)
}

func TestNewRegisterBankSize(t *testing.T) {
	_, err := NewRegisterBank(MinRegisters-1, nil)
	assert.Error(t, err)
	_, err = NewRegisterBank(MaxRegisters+1, nil)
	assert.Error(t, err)

	bank, err := NewRegisterBank(MinRegisters, nil)
	require.NoError(t, err)
	assert.Equal(t, MinRegisters, bank.Len())

	values, err := bank.ReadHoldingsAtomic(0, MinRegisters)
	require.NoError(t, err)
	assert.Equal(t, make([]uint16, MinRegisters), values)
}

func TestRegisterBankRoundTrip(t *testing.T) {
	bank, err := NewRegisterBank(120, nil)
	require.NoError(t, err)

	require.NoError(t, bank.WriteHoldingsAtomic(10, []uint16{1, 2, 3, 0xffff}))
	got, err := bank.ReadHoldingsAtomic(10, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3, 0xffff}, got)

	// reads return a copy
	got[0] = 99
	again, err := bank.ReadHoldingsAtomic(10, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1}, again)

	// the last register is addressable
	require.NoError(t, bank.WriteHoldingsAtomic(119, []uint16{7}))
	got, err = bank.ReadHoldingsAtomic(119, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{7}, got)
}

func TestRegisterBankRangeChecks(t *testing.T) {
	rec := &writeRecorder{}
	bank, err := NewRegisterBank(120, rec)
	require.NoError(t, err)
	require.NoError(t, bank.WriteHoldingsAtomic(0, make([]uint16, 120)))
	before, err := bank.ReadHoldingsAtomic(0, 120)
	require.NoError(t, err)
	notified := len(rec.recorded())

	cases := []struct {
		name    string
		address int
		count   int
	}{
		{"negative start", -1, 2},
		{"past the end", 119, 2},
		{"start beyond bank", 130, 1},
		{"whole bank plus one", 0, 121},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bank.ReadHoldingsAtomic(tc.address, tc.count)
			assert.True(t, IsException(err, ExceptionIllegalDataAddress), "read: %v", err)

			err = bank.WriteHoldingsAtomic(tc.address, make([]uint16, tc.count))
			assert.True(t, IsException(err, ExceptionIllegalDataAddress), "write: %v", err)

			after, err := bank.ReadHoldingsAtomic(0, 120)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
	assert.Len(t, rec.recorded(), notified, "failed writes must not notify")
}

func TestRegisterBankObserverOrder(t *testing.T) {
	rec := &writeRecorder{}
	bank, err := NewRegisterBank(120, rec)
	require.NoError(t, err)

	require.NoError(t, bank.WriteHoldingsAtomic(5, []uint16{50, 60, 70}))
	assert.Equal(t, []recordedWrite{{5, 50}, {6, 60}, {7, 70}}, rec.recorded())
}

func TestRegisterBankObserverPanic(t *testing.T) {
	calls := 0
	bank, err := NewRegisterBank(120, HoldingObserverFunc(func(address int, value uint16) {
		calls++
		panic("observer failure")
	}))
	require.NoError(t, err)

	require.NoError(t, bank.WriteHoldingsAtomic(0, []uint16{1, 2}))
	assert.Equal(t, 2, calls)
	got, err := bank.ReadHoldingsAtomic(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, got)
}

func TestRegisterBankAtomicTransaction(t *testing.T) {
	bank, err := NewRegisterBank(120, nil)
	require.NoError(t, err)

	atomic := bank.StartAtomic()
	require.NoError(t, bank.WriteHoldings(atomic, 4, []uint16{21}))
	got, err := bank.ReadHoldings(atomic, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{21}, got)
	atomic.Complete()

	got, err = bank.ReadHoldingsAtomic(4, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{21}, got)
}

func TestRegisterBankNoTornReads(t *testing.T) {
	bank, err := NewRegisterBank(120, nil)
	require.NoError(t, err)

	// every write stores the same value in all 10 registers, so a reader must never see a mix
	const writes = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= writes; i++ {
			block := make([]uint16, 10)
			for j := range block {
				block[j] = uint16(i)
			}
			assert.NoError(t, bank.WriteHoldingsAtomic(0, block))
		}
	}()
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				got, err := bank.ReadHoldingsAtomic(0, 10)
				if !assert.NoError(t, err) {
					return
				}
				for _, v := range got {
					assert.Equal(t, got[0], v)
				}
			}
		}()
	}
	wg.Wait()

	final, err := bank.ReadHoldingsAtomic(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint16{writes}, final)
}
