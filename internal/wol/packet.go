// Package wol builds and broadcasts Wake-on-LAN magic packets.
package wol

import (
	"net"

	"git.home.luguber.info/inful/wolproxy/internal/errors"
)

// MagicPacketSize is 6 synchronization bytes plus 16 MAC repetitions.
const MagicPacketSize = 6 + 16*6

// WOL listener ports. NIC firmware traditionally listens on the discard port
// (9); some drivers only honor echo (7), so both are addressed.
var Ports = []int{9, 7}

// BuildMagicPacket returns the standard magic packet for the given MAC:
// 6 bytes of 0xFF followed by 16 repetitions of the 6-byte hardware address.
func BuildMagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return nil, errors.InvalidMAC(mac)
	}

	pkt := make([]byte, 0, MagicPacketSize)
	for range 6 {
		pkt = append(pkt, 0xFF)
	}
	for range 16 {
		pkt = append(pkt, hw...)
	}
	return pkt, nil
}
