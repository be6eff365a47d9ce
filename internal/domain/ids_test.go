package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestBucketStart_DayBoundary(t *testing.T) {
	a := BucketStart(86399, BucketDay)
	b := BucketStart(86400, BucketDay)

	if a != 0 {
		t.Errorf("expected bucket 0 for ts 86399, got %d", a)
	}
	if b != 86400 {
		t.Errorf("expected bucket 86400 for ts 86400, got %d", b)
	}
	if a == b {
		t.Error("timestamps on either side of midnight must land in different buckets")
	}
}

func TestBucketStart_Hour(t *testing.T) {
	tests := []struct {
		ts   int64
		want int64
	}{
		{0, 0},
		{3599, 0},
		{3600, 3600},
		{7201, 7200},
	}

	for _, tt := range tests {
		if got := BucketStart(tt.ts, BucketHour); got != tt.want {
			t.Errorf("BucketStart(%d) = %d, want %d", tt.ts, got, tt.want)
		}
	}
}

func TestCanonicalPair_OrdersByNumericValue(t *testing.T) {
	low := common.HexToAddress("0x0000000000000000000000000000000000000002")
	high := common.HexToAddress("0x1000000000000000000000000000000000000001")

	t0, t1 := CanonicalPair(high, low)
	if t0 != low || t1 != high {
		t.Errorf("expected (%s, %s), got (%s, %s)", low.Hex(), high.Hex(), t0.Hex(), t1.Hex())
	}

	if PairID(low, high) != PairID(high, low) {
		t.Error("pair id must not depend on argument order")
	}
}

func TestAddrID_Lowercase(t *testing.T) {
	a := common.HexToAddress("0xABCDEFabcdef0000000000000000000000000001")
	if got := AddrID(a); got != "0xabcdefabcdef0000000000000000000000000001" {
		t.Errorf("unexpected id %s", got)
	}
}

func TestOrdinal_Compare(t *testing.T) {
	base := Ordinal{Block: 10, TxIndex: 2, LogIndex: 5}

	if base.Compare(base) != 0 {
		t.Error("ordinal must equal itself")
	}
	if base.Compare(Ordinal{Block: 11}) != -1 {
		t.Error("lower block must sort first")
	}
	if base.Compare(Ordinal{Block: 10, TxIndex: 1, LogIndex: 9}) != 1 {
		t.Error("higher tx index must sort later")
	}
	if base.Compare(Ordinal{Block: 10, TxIndex: 2, LogIndex: 6}) != -1 {
		t.Error("lower log index must sort first")
	}
}
