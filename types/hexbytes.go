package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

func HexToBytes(hexStr string) ([]byte, error) {
	if strings.HasPrefix(hexStr, "0x") {
		hexStr = hexStr[2:]
	}
	return hex.DecodeString(hexStr)
}

// HexBytes marshals as a 0x-prefixed lower-case hex string.
type HexBytes []byte

func (hb HexBytes) String() string {
	return hex.EncodeToString(hb)
}

func (hb HexBytes) MarshalJSON() ([]byte, error) {
	s := "0x" + hex.EncodeToString(hb)
	jbz := make([]byte, len(s)+2)
	jbz[0] = '"'
	copy(jbz[1:], s)
	jbz[len(jbz)-1] = '"'
	return jbz, nil
}

func (hb *HexBytes) UnmarshalJSON(data []byte) error {
	bz, err := unquoteHex(data)
	if err != nil {
		return err
	}
	*hb = bz
	return nil
}

// RawHex marshals as a bare lower-case hex string, the form EIP-2335
// keystores and deposit-data files use.
type RawHex []byte

func (rh RawHex) String() string {
	return hex.EncodeToString(rh)
}

func (rh RawHex) MarshalJSON() ([]byte, error) {
	s := hex.EncodeToString(rh)
	jbz := make([]byte, len(s)+2)
	jbz[0] = '"'
	copy(jbz[1:], s)
	jbz[len(jbz)-1] = '"'
	return jbz, nil
}

func (rh *RawHex) UnmarshalJSON(data []byte) error {
	bz, err := unquoteHex(data)
	if err != nil {
		return err
	}
	*rh = bz
	return nil
}

// unquoteHex accepts both the 0x-prefixed and the bare form.
func unquoteHex(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return nil, fmt.Errorf("invalid hex string: %s", data)
	}
	val := string(data[1 : len(data)-1])
	if !isHex(val) {
		return nil, fmt.Errorf("invalid hex string: %s", val)
	}
	return hex.DecodeString(strings.TrimPrefix(val, "0x"))
}

func isHex(s string) bool {
	v := strings.TrimPrefix(s, "0x")
	if len(v)%2 != 0 {
		return false
	}
	for _, b := range []byte(v) {
		if !(b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F') {
			return false
		}
	}
	return true
}
