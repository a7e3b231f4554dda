package peer

import (
	"bytes"
	"net"
	"testing"

	"github.com/MartinScazzola/Bitcoin/internal/block"
)

func TestVersionMessageRoundTrip(t *testing.T) {
	v := NewVersionMessage(net.ParseIP("127.0.0.1"), 18333, 18333, 42, 70015)
	raw, err := v.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := ParseVersionMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseVersionMessage: %v", err)
	}
	if got.Nonce != v.Nonce || got.StartHeight != v.StartHeight || got.UserAgent != v.UserAgent {
		t.Fatalf("round trip mismatch: want %+v got %+v", v, got)
	}
}

func TestHeadersMessageRoundTrip(t *testing.T) {
	msg := HeadersMessage{Headers: []block.Header{
		{Version: 1, Bits: 0x1d00ffff, Nonce: 1},
		{Version: 1, Bits: 0x1d00ffff, Nonce: 2},
	}}
	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := ParseHeadersMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseHeadersMessage: %v", err)
	}
	if len(got.Headers) != 2 {
		t.Fatalf("want 2 headers got %d", len(got.Headers))
	}
}

func TestInvMessageRoundTrip(t *testing.T) {
	msg := InvMessage{Items: []InvVect{
		{Type: InvBlock, Hash: [32]byte{1}},
		{Type: InvTx, Hash: [32]byte{2}},
	}}
	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := ParseInvMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseInvMessage: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].Type != InvBlock {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestPingPongRoundTrip(t *testing.T) {
	ping := PingMessage{Nonce: 0xdeadbeef}
	raw, _ := ping.Serialize()
	got, err := ParsePingMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParsePingMessage: %v", err)
	}
	if got.Nonce != ping.Nonce {
		t.Fatalf("nonce mismatch: want %x got %x", ping.Nonce, got.Nonce)
	}
}
