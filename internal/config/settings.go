// Package config loads the node's settings file: a flat key=value
// grammar, grounded verbatim on original_source's
// node/src/settings_mod/settings.rs, which this node's non-goals
// still require an ambient config layer for (SPEC_FULL.md §2). No
// pack example ships a key=value config parser matching this exact
// grammar, so it stays hand-rolled rather than reached for a library
// built around a different format (TOML/YAML/flags).
package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/MartinScazzola/Bitcoin/internal/wire"
)

// Field names, the exact tokens settings.rs matches against.
const (
	fieldDNSSeed         = "dns_seed"
	fieldIPsToConnect    = "ips_to_connect"
	fieldProtocolVersion = "protocol_version"
	fieldServices        = "services"
	fieldPort            = "port"
	fieldIP              = "ip"
	fieldUserAgent       = "user_agent"
	fieldStartHeight     = "start_height"
	fieldRelay           = "relay"
	fieldStartString     = "start_string"
	fieldDateLimit       = "date_limit"
	fieldWalletAddr      = "wallet_connection_addr"
	fieldHeadersPath     = "headers_path"
	fieldServerAddr      = "server_addr"
	fieldBlocksPath      = "blocks_path"
)

var requiredFields = []string{
	fieldProtocolVersion, fieldServices, fieldPort, fieldIP, fieldUserAgent,
	fieldStartHeight, fieldRelay, fieldStartString, fieldDateLimit,
	fieldWalletAddr, fieldHeadersPath, fieldServerAddr, fieldBlocksPath,
}

var knownFields = append(append([]string{}, requiredFields...), fieldDNSSeed, fieldIPsToConnect)

// Settings is the fully parsed, typed configuration a node runs with.
type Settings struct {
	DNSSeed              string
	IPsToConnect         []net.IP
	ProtocolVersion      int32
	Services             uint64
	Port                 uint16
	IP                   net.IP
	UserAgent            string
	StartHeight          int32
	Relay                bool
	StartString          wire.Magic
	DateLimit            string
	WalletConnectionAddr string
	HeadersPath          string
	ServerAddr           string
	BlocksPath           string
}

// Load reads and parses a settings file (spec.md §6's node config).
func Load(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	defer f.Close()

	raw := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return Settings{}, fmt.Errorf("%w: %q", ErrParseError, line)
		}
		key := parts[0]
		if !known(key) {
			return Settings{}, fmt.Errorf("%w: %q", ErrTokenUnknown, key)
		}
		raw[key] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrParseError, err)
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return Settings{}, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
		}
	}

	var s Settings
	s.DNSSeed = raw[fieldDNSSeed]
	if ipsRaw, ok := raw[fieldIPsToConnect]; ok {
		for _, ipStr := range strings.Split(ipsRaw, ",") {
			if ip := net.ParseIP(ipStr); ip != nil {
				s.IPsToConnect = append(s.IPsToConnect, ip)
			}
		}
	}

	var err2 error
	if s.ProtocolVersion, err2 = parseInt32(raw[fieldProtocolVersion]); err2 != nil {
		return Settings{}, err2
	}
	if s.Services, err2 = parseUint64(raw[fieldServices]); err2 != nil {
		return Settings{}, err2
	}
	port, err2 := parseUint64(raw[fieldPort])
	if err2 != nil {
		return Settings{}, err2
	}
	s.Port = uint16(port)

	s.IP = net.ParseIP(raw[fieldIP])
	if s.IP == nil {
		return Settings{}, fmt.Errorf("%w: ip %q", ErrParseError, raw[fieldIP])
	}

	s.UserAgent = raw[fieldUserAgent]

	if s.StartHeight, err2 = parseInt32(raw[fieldStartHeight]); err2 != nil {
		return Settings{}, err2
	}

	relay, err2 := strconv.ParseBool(raw[fieldRelay])
	if err2 != nil {
		return Settings{}, fmt.Errorf("%w: relay %q", ErrParseError, raw[fieldRelay])
	}
	s.Relay = relay

	magic, err2 := parseHexMagic(raw[fieldStartString])
	if err2 != nil {
		return Settings{}, err2
	}
	s.StartString = magic

	s.DateLimit = raw[fieldDateLimit]
	s.WalletConnectionAddr = raw[fieldWalletAddr]
	s.HeadersPath = raw[fieldHeadersPath]
	s.ServerAddr = raw[fieldServerAddr]
	s.BlocksPath = raw[fieldBlocksPath]

	return s, nil
}

func known(key string) bool {
	for _, f := range knownFields {
		if f == key {
			return true
		}
	}
	return false
}

func parseInt32(v string) (int32, error) {
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParseError, v, err)
	}
	return int32(n), nil
}

func parseUint64(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrParseError, v, err)
	}
	return n, nil
}

func parseHexMagic(v string) (wire.Magic, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: start_string %q: %v", ErrParseError, v, err)
	}
	return wire.Magic(n), nil
}
