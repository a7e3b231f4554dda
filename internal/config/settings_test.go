package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "node.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const validConf = `protocol_version=70015
services=1
port=18333
ip=127.0.0.1
user_agent=/full-validating-node:0.1/
start_height=0
relay=false
start_string=0b110907
date_limit=2023-01-01
wallet_connection_addr=127.0.0.1:9000
headers_path=headers.dat
server_addr=0.0.0.0:18333
blocks_path=blocks.dat
`

func TestLoadValidSettings(t *testing.T) {
	path := writeTemp(t, validConf)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 18333 || s.ProtocolVersion != 70015 || s.Relay {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.StartString != 0x0b110907 {
		t.Fatalf("start_string mismatch: got %x", s.StartString)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	path := writeTemp(t, "protocol_version=70015\n")
	if _, err := Load(path); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestLoadUnknownToken(t *testing.T) {
	path := writeTemp(t, validConf+"bogus_field=1\n")
	if _, err := Load(path); !errors.Is(err, ErrTokenUnknown) {
		t.Fatalf("expected ErrTokenUnknown, got %v", err)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/path/node.conf"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}
