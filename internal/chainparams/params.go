// Package chainparams bundles the per-network constants (magic,
// genesis header, default port, DNS seeds) that the teacher scattered
// as free-standing package constants across internal/block and
// internal/network. Structuring them into one Params value per network
// is the idiom _examples/Abirdcfly-dcrd/chaincfg uses for the same
// purpose; no dcrd package is imported, only the shape is borrowed.
package chainparams

import "github.com/MartinScazzola/Bitcoin/internal/wire"

// Params describes one network's wire-level identity.
type Params struct {
	Name        string
	Magic       wire.Magic
	DefaultPort int
	DNSSeed     string
	LowestBits  uint32

	GenesisVersion    int32
	GenesisPrevBlock  [32]byte
	GenesisMerkleRoot [32]byte
	GenesisTime       uint32
	GenesisBits       uint32
	GenesisNonce      uint32
}

var testnetMerkleRoot = [32]byte{
	0x3b, 0xa3, 0xed, 0xfd, 0x7a, 0x7b, 0x12, 0xb2,
	0x7a, 0xc7, 0x2c, 0x3e, 0x67, 0x76, 0x8f, 0x61,
	0x7f, 0xc8, 0x1b, 0xc3, 0x88, 0x8a, 0x51, 0x32,
	0x3a, 0x9f, 0xb8, 0xaa, 0x4b, 0x1e, 0x5e, 0x4a,
}

var mainnetMerkleRoot = testnetMerkleRoot

// Testnet3 is the standard Bitcoin testnet3 network, the one this node
// joins by default per spec.md §1.
var Testnet3 = Params{
	Name:              "testnet3",
	Magic:             wire.TestnetMagic,
	DefaultPort:       18333,
	DNSSeed:           "testnet-seed.bitcoin.jonasschnelli.ch",
	LowestBits:        0x1d00ffff,
	GenesisVersion:    1,
	GenesisPrevBlock:  [32]byte{},
	GenesisMerkleRoot: testnetMerkleRoot,
	GenesisTime:       1296688602,
	GenesisBits:       0x1d00ffff,
	GenesisNonce:      414098458,
}

// Mainnet is carried for completeness; the node only joins it if
// configured to (spec.md §6's start_string is configurable).
var Mainnet = Params{
	Name:              "mainnet",
	Magic:             wire.MainnetMagic,
	DefaultPort:       8333,
	DNSSeed:           "seed.bitcoin.sipa.be",
	LowestBits:        0x1d00ffff,
	GenesisVersion:    1,
	GenesisPrevBlock:  [32]byte{},
	GenesisMerkleRoot: mainnetMerkleRoot,
	GenesisTime:       1231006505,
	GenesisBits:       0x1d00ffff,
	GenesisNonce:      2083236893,
}

// ByMagic resolves a network from its wire magic, used when a
// configuration file supplies start_string directly (spec.md §6).
func ByMagic(m wire.Magic) (Params, bool) {
	switch m {
	case Testnet3.Magic:
		return Testnet3, true
	case Mainnet.Magic:
		return Mainnet, true
	default:
		return Params{}, false
	}
}
