package tx

import (
	"bytes"
	"testing"
)

func sampleCoinbase() Transaction {
	return Transaction{
		Version: 1,
		TxIn: []TxIn{{
			PreviousOutput:  OutPoint{Index: 0xffffffff},
			SignatureScript: []byte{0x03, 0xd1, 0x02, 0x00},
			Sequence:        0xffffffff,
		}},
		TxOut: []TxOut{{
			Value:    5000000000,
			PkScript: []byte{0x76, 0xa9, 0x14},
		}},
		LockTime: 0,
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	txn := sampleCoinbase()
	raw := txn.Serialize()

	got, err := ParseTransaction(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseTransaction: %v", err)
	}
	if len(got.TxIn) != 1 || len(got.TxOut) != 1 {
		t.Fatalf("shape mismatch: %+v", got)
	}
	if got.TxOut[0].Value != txn.TxOut[0].Value {
		t.Fatalf("value mismatch: want %d got %d", txn.TxOut[0].Value, got.TxOut[0].Value)
	}
	if !bytes.Equal(got.Serialize(), raw) {
		t.Fatal("re-serialization does not match original bytes")
	}
}

func TestIsCoinbase(t *testing.T) {
	txn := sampleCoinbase()
	if !txn.IsCoinbase() {
		t.Fatal("expected coinbase transaction")
	}
	height, ok := txn.CoinbaseHeight()
	if !ok {
		t.Fatal("expected a BIP34 height to decode")
	}
	if height != 0x02d1 {
		t.Fatalf("height mismatch: want %d got %d", 0x02d1, height)
	}
}

func TestNonCoinbase(t *testing.T) {
	txn := Transaction{
		Version: 1,
		TxIn: []TxIn{{
			PreviousOutput: OutPoint{Hash: [32]byte{1}, Index: 0},
			Sequence:       0xffffffff,
		}},
		TxOut: []TxOut{{Value: 100}},
	}
	if txn.IsCoinbase() {
		t.Fatal("spending a real outpoint must not be treated as coinbase")
	}
}
