package display

import "encoding/binary"

const (
	evKey = 0x01

	// Linux input-event-codes.h
	keyEsc = 1
	keyQ   = 16
	keyF4  = 62
)

// exitKeys end a kiosk session.
var exitKeys = map[uint16]bool{keyEsc: true, keyQ: true, keyF4: true}

// exitPressed scans a buffer of input_event records (timeval, u16 type,
// u16 code, s32 value) for a key-down of one of the exit keys.
func exitPressed(buf []byte, timevalSize int) bool {
	eventSize := timevalSize + 8
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		typ := binary.LittleEndian.Uint16(rec[timevalSize : timevalSize+2])
		code := binary.LittleEndian.Uint16(rec[timevalSize+2 : timevalSize+4])
		value := int32(binary.LittleEndian.Uint32(rec[timevalSize+4 : timevalSize+8]))
		if typ == evKey && value == 1 && exitKeys[code] {
			return true
		}
	}
	return false
}
