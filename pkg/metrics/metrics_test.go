package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreAppend(t *testing.T) {
	okBefore := testutil.ToFloat64(StoreAppendsTotal.WithLabelValues("user", "success"))
	errBefore := testutil.ToFloat64(StoreAppendsTotal.WithLabelValues("assistant", "error"))

	RecordStoreAppend("user", nil, time.Millisecond)
	RecordStoreAppend("assistant", errors.New("down"), time.Millisecond)

	if got := testutil.ToFloat64(StoreAppendsTotal.WithLabelValues("user", "success")); got != okBefore+1 {
		t.Fatalf("success counter = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(StoreAppendsTotal.WithLabelValues("assistant", "error")); got != errBefore+1 {
		t.Fatalf("error counter = %v, want %v", got, errBefore+1)
	}
}

func TestRecordLLMStreamSkipsZeroTokens(t *testing.T) {
	before := testutil.CollectAndCount(LLMTokensTotal)
	RecordLLMStream(LLMStream{Provider: "fake", Model: "zero", Status: "error", Duration: time.Second})
	if after := testutil.CollectAndCount(LLMTokensTotal); after != before {
		t.Fatalf("failed stream created %d token series", after-before)
	}

	RecordLLMStream(LLMStream{Provider: "fake", Model: "m", Status: "success", Duration: time.Second, Steps: 2, TokensIn: 10, TokensOut: 4})
	if v := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("fake", "m", "out")); v != 4 {
		t.Fatalf("tokens out = %v, want 4", v)
	}
}

func TestStreamOpened(t *testing.T) {
	before := testutil.ToFloat64(SSEStreamsActive)
	closed := StreamOpened()
	if got := testutil.ToFloat64(SSEStreamsActive); got != before+1 {
		t.Fatalf("active = %v, want %v", got, before+1)
	}
	closed()
	if got := testutil.ToFloat64(SSEStreamsActive); got != before {
		t.Fatalf("active = %v after close, want %v", got, before)
	}
}

func TestSetStreamState(t *testing.T) {
	SetStreamState("CHAT_TURNS", 12, 2048)
	if v := testutil.ToFloat64(JetStreamMessages.WithLabelValues("CHAT_TURNS")); v != 12 {
		t.Fatalf("messages = %v", v)
	}
	if v := testutil.ToFloat64(JetStreamBytes.WithLabelValues("CHAT_TURNS")); v != 2048 {
		t.Fatalf("bytes = %v", v)
	}
}
