package mcproto

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameSize caps accepted packet frames. The handshake and status request
// are tiny; anything close to this limit is hostile or not Minecraft.
const MaxFrameSize = 32 * 1024

// Handshake next-state values.
const (
	NextStateStatus = 1
	NextStateLogin  = 2
)

// Packet IDs used by the shim.
const (
	packetIDHandshake      = 0x00
	packetIDStatusRequest  = 0x00
	packetIDStatusResponse = 0x00
	packetIDPing           = 0x01
	packetIDDisconnect     = 0x00
)

// Handshake is the first packet of every Minecraft connection.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       int32
}

// ReadFrame reads one length-prefixed packet frame and returns its payload
// (packet ID included).
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > MaxFrameSize {
		return nil, fmt.Errorf("mcproto: frame length %d out of bounds", length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	frame := AppendVarInt(make([]byte, 0, len(payload)+maxVarIntBytes), int32(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

// DecodeHandshake parses a handshake packet payload.
func DecodeHandshake(payload []byte) (*Handshake, error) {
	r := bytes.NewReader(payload)

	id, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if id != packetIDHandshake {
		return nil, fmt.Errorf("mcproto: unexpected first packet id 0x%02x", id)
	}

	var h Handshake
	if h.ProtocolVersion, err = ReadVarInt(r); err != nil {
		return nil, err
	}
	if h.ServerAddress, err = ReadString(r); err != nil {
		return nil, err
	}
	var portBytes [2]byte
	if _, err = io.ReadFull(r, portBytes[:]); err != nil {
		return nil, err
	}
	h.ServerPort = uint16(portBytes[0])<<8 | uint16(portBytes[1])
	if h.NextState, err = ReadVarInt(r); err != nil {
		return nil, err
	}
	return &h, nil
}

// StatusResponse is the JSON document shown in the client's server list.
type StatusResponse struct {
	Version     StatusVersion `json:"version"`
	Players     StatusPlayers `json:"players"`
	Description ChatText      `json:"description"`
}

type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type StatusPlayers struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

// ChatText is the minimal chat component: plain text only.
type ChatText struct {
	Text string `json:"text"`
}

// NewStatusResponse builds the standby status document. The client's own
// protocol number is mirrored back so the entry never shows as incompatible.
func NewStatusResponse(motd, versionLabel string, clientProtocol int32) StatusResponse {
	return StatusResponse{
		Version:     StatusVersion{Name: versionLabel, Protocol: clientProtocol},
		Players:     StatusPlayers{Max: 0, Online: 0},
		Description: ChatText{Text: motd},
	}
}

// WriteStatusResponse frames and writes the status response packet.
func WriteStatusResponse(w io.Writer, resp StatusResponse) error {
	doc, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	payload := AppendVarInt(nil, packetIDStatusResponse)
	payload = AppendString(payload, string(doc))
	return WriteFrame(w, payload)
}

// WritePong echoes a ping payload back unchanged.
func WritePong(w io.Writer, pingPayload []byte) error {
	return WriteFrame(w, pingPayload)
}

// IsPing reports whether a frame payload is a status ping.
func IsPing(payload []byte) bool {
	return len(payload) >= 9 && payload[0] == packetIDPing
}

// WriteDisconnect frames and writes a login disconnect with a plain-text reason.
func WriteDisconnect(w io.Writer, reason string) error {
	doc, err := json.Marshal(ChatText{Text: reason})
	if err != nil {
		return err
	}
	payload := AppendVarInt(nil, packetIDDisconnect)
	payload = AppendString(payload, string(doc))
	return WriteFrame(w, payload)
}

// IsStatusRequest reports whether a frame payload is the empty status request.
func IsStatusRequest(payload []byte) bool {
	return len(payload) == 1 && payload[0] == packetIDStatusRequest
}
