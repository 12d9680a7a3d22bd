package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/tokenmig/pkg/namespace"
)

// entryData is the persisted form of a namespace entry.
type entryData struct {
	ID     string             `json:"id"`
	Type   namespace.FileType `json:"type"`
	Mode   uint32             `json:"mode"`
	UID    uint32             `json:"uid"`
	GID    uint32             `json:"gid"`
	Parent string             `json:"parent,omitempty"`
	Name   string             `json:"name,omitempty"`
	Mtime  time.Time          `json:"mtime"`
	Ctime  time.Time          `json:"ctime"`
}

func encodeEntryData(data *entryData) ([]byte, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry data: %w", err)
	}
	return bytes, nil
}

func decodeEntryData(bytes []byte) (*entryData, error) {
	var data entryData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("failed to decode entry data: %w", err)
	}
	return &data, nil
}
