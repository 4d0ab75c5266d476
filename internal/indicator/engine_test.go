package indicator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMAWarmupAndValues(t *testing.T) {
	eng := New(2, 3, 14)

	ind := eng.Update("600000", 10)
	assert.Nil(t, ind.MAShort)
	assert.Nil(t, ind.MALong)

	ind = eng.Update("600000", 10)
	require.NotNil(t, ind.MAShort)
	assert.InDelta(t, 10.0, *ind.MAShort, 1e-9)
	assert.Nil(t, ind.MALong)

	ind = eng.Update("600000", 10)
	require.NotNil(t, ind.MALong)
	assert.InDelta(t, 10.0, *ind.MALong, 1e-9)

	ind = eng.Update("600000", 12)
	assert.InDelta(t, 11.0, *ind.MAShort, 1e-9)
	assert.InDelta(t, (10.0+10+12)/3, *ind.MALong, 1e-9)

	ind = eng.Update("600000", 14)
	assert.InDelta(t, 13.0, *ind.MAShort, 1e-9)
	assert.InDelta(t, 12.0, *ind.MALong, 1e-9)
}

func TestRSIWarmupBoundary(t *testing.T) {
	period := 5
	eng := New(2, 3, period)

	// First sample plus `period` deltas are needed; RSI must appear exactly
	// on sample period+1.
	for i := 0; i <= period; i++ {
		ind := eng.Update("600000", 100+float64(i))
		if i < period {
			assert.Nil(t, ind.RSI, "sample %d", i)
		} else {
			require.NotNil(t, ind.RSI)
			// Monotonic gains with zero losses pin RSI at 100.
			assert.InDelta(t, 100.0, *ind.RSI, 1e-9)
		}
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	eng := New(2, 3, 2)
	eng.Update("s", 100)
	eng.Update("s", 110) // gain 10
	ind := eng.Update("s", 105)
	// Seed: avgGain=(10+0)/2=5, avgLoss=(0+5)/2=2.5 -> RS=2 -> RSI=66.67.
	require.NotNil(t, ind.RSI)
	assert.InDelta(t, 100-100.0/3, *ind.RSI, 1e-9)

	ind = eng.Update("s", 105) // flat delta, Wilder smoothing from here on
	// avgGain=(5*1+0)/2=2.5, avgLoss=(2.5*1+0)/2=1.25 -> RS=2 again.
	require.NotNil(t, ind.RSI)
	assert.InDelta(t, 100-100.0/3, *ind.RSI, 1e-9)
}

func TestRSIStaysBounded(t *testing.T) {
	eng := New(2, 3, 14)
	rng := rand.New(rand.NewSource(7))
	price := 100.0
	for i := 0; i < 500; i++ {
		price *= 1 + (rng.Float64()-0.5)*0.04
		ind := eng.Update("600519", price)
		if ind.RSI != nil {
			assert.GreaterOrEqual(t, *ind.RSI, 0.0)
			assert.LessOrEqual(t, *ind.RSI, 100.0)
		}
	}
}

func TestHistoryEviction(t *testing.T) {
	eng := New(2, 3, 3)
	for i := 0; i < 50; i++ {
		eng.Update("600000", float64(i))
	}
	st := eng.state["600000"]
	require.NotNil(t, st)
	assert.Equal(t, eng.capacity, len(st.prices))
	assert.InDelta(t, 49.0, st.prices[len(st.prices)-1], 1e-9)
}

func TestSymbolsAreIndependent(t *testing.T) {
	eng := New(2, 3, 14)
	eng.Update("A", 10)
	eng.Update("A", 20)
	ind := eng.Update("B", 50)
	assert.Nil(t, ind.MAShort, "symbol B must warm up on its own")

	eng.Forget("A")
	ind = eng.Update("A", 30)
	assert.Nil(t, ind.MAShort, "forgotten symbol restarts cold")
}
