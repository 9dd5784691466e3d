// Package nvm persists the device configuration as a single CRC-checked
// blob: a fixed header, a CRC-16 and a JSON payload, written into a
// fixed-capacity store. The content adapts to the capacity by dropping
// tables, richest variant first.
package nvm

import (
	"encoding/binary"
	"encoding/json"
	"errors"
)

const (
	magic         = "LOSP"
	schemaVersion = 1

	// header: magic (4) + version (1) + flags (1) + length (2) + crc (2)
	headerLen = 10

	flagTempDuty = 0x01
	flagAdcTemp  = 0x02
)

// Info tokens reported by SAVE.
const (
	TokenSavedAll      = "NVM_SAVED_ALL"
	TokenSavedParamsTD = "NVM_SAVED_PARAMS_TD"
	TokenSavedParams   = "NVM_SAVED_PARAMS"
	TokenUnavailable   = "NVM_UNAVAILABLE"
	TokenTooSmall      = "NVM_TOO_SMALL"
)

var (
	// ErrNoData means the store holds no valid blob. A structural or CRC
	// failure never yields a partial result, only this.
	ErrNoData = errors.New("no valid settings blob")

	ErrUnavailable = errors.New(TokenUnavailable)
	ErrTooSmall    = errors.New(TokenTooSmall)
)

// Settings is the persisted configuration payload. The LUT fields are
// omitted from the JSON encoding when absent.
type Settings struct {
	Params     map[string]interface{} `json:"params"`
	TempToDuty [][2]float64           `json:"TEMP_TO_DUTY,omitempty"`
	AdcToTemp  [][2]float64           `json:"ADC_TO_TEMP_5C,omitempty"`
}

// Store is a fixed-capacity byte store the blob is written into.
type Store interface {
	Capacity() int
	Read() ([]byte, error)
	Write(data []byte) error
}

// Crc16 computes CRC-16/CCITT (poly 0x1021, init 0xFFFF, MSB first).
func Crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func encode(payload []byte, flags byte) []byte {
	blob := make([]byte, headerLen+len(payload))
	copy(blob, magic)
	blob[4] = schemaVersion
	blob[5] = flags
	binary.BigEndian.PutUint16(blob[6:8], uint16(len(payload)))
	binary.BigEndian.PutUint16(blob[8:10], Crc16(payload))
	copy(blob[headerLen:], payload)
	return blob
}

// Save writes the settings into the store, trying content levels richest
// first: both tables, the temp-to-duty table only, then parameters only.
// The first level whose blob fits the capacity wins; the rest of the store
// is zero-filled so stale bytes of a previously larger blob cannot survive.
// The returned token names the level that was saved.
func Save(store Store, settings Settings) (string, error) {
	capacity := store.Capacity()
	if capacity <= 0 {
		return "", ErrUnavailable
	}

	type candidate struct {
		flags byte
		token string
		body  Settings
	}
	candidates := []candidate{
		{flagTempDuty | flagAdcTemp, TokenSavedAll, settings},
		{flagTempDuty, TokenSavedParamsTD, Settings{Params: settings.Params, TempToDuty: settings.TempToDuty}},
		{0x00, TokenSavedParams, Settings{Params: settings.Params}},
	}

	for _, c := range candidates {
		payload, err := json.Marshal(c.body)
		if err != nil {
			return "", err
		}
		if len(payload) > 0xFFFF {
			continue
		}
		blob := encode(payload, c.flags)
		if len(blob) > capacity {
			continue
		}
		buf := make([]byte, capacity)
		copy(buf, blob)
		if err := store.Write(buf); err != nil {
			return "", err
		}
		return c.token, nil
	}
	return "", ErrTooSmall
}

// Load reads and validates the blob. Magic, declared length and CRC are all
// checked; any failure fails closed with ErrNoData.
func Load(store Store) (*Settings, error) {
	data, err := store.Read()
	if err != nil {
		return nil, ErrNoData
	}
	if len(data) < headerLen {
		return nil, ErrNoData
	}
	if string(data[:4]) != magic {
		return nil, ErrNoData
	}
	length := int(binary.BigEndian.Uint16(data[6:8]))
	if headerLen+length > len(data) {
		return nil, ErrNoData
	}
	storedCrc := binary.BigEndian.Uint16(data[8:10])
	payload := data[headerLen : headerLen+length]
	if Crc16(payload) != storedCrc {
		return nil, ErrNoData
	}
	var settings Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil, ErrNoData
	}
	return &settings, nil
}
