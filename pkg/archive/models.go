package archive

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Protocol names stored in capture records
const (
	ProtocolClassic = "sharp"
	ProtocolAC      = "sharp_ac"
)

// Capture sources
const (
	SourceReceiver = "receiver" // decoded off the air
	SourceAPI      = "api"      // submitted through the HTTP API
)

// Capture represents one decoded IR signal
type Capture struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Protocol   string    `gorm:"index;size:16;not null" json:"protocol"`
	Bits       uint16    `gorm:"not null" json:"bits"`
	Value      uint64    `gorm:"index" json:"value"`        // raw frame value (classic)
	Address    uint8     `json:"address"`                   // decoded address (classic)
	Command    uint8     `json:"command"`                   // decoded command (classic)
	State      string    `gorm:"size:32" json:"state"`      // state bytes as hex (A/C)
	ChecksumOK bool      `json:"checksum_ok"`               // frame passed its integrity check
	Source     string    `gorm:"index;size:16" json:"source"`
	ReceivedAt time.Time `gorm:"index;not null" json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Capture
func (Capture) TableName() string {
	return "captures"
}

// BeforeCreate hook to ensure timestamps are set
func (c *Capture) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.ReceivedAt.IsZero() {
		c.ReceivedAt = time.Now()
	}
	return nil
}

// Label returns a short human-readable description of the capture
func (c *Capture) Label() string {
	switch c.Protocol {
	case ProtocolClassic:
		return fmt.Sprintf("%s addr=0x%02X cmd=0x%02X", c.Protocol, c.Address, c.Command)
	case ProtocolAC:
		return fmt.Sprintf("%s state=%s", c.Protocol, c.State)
	default:
		return fmt.Sprintf("%s value=0x%X", c.Protocol, c.Value)
	}
}
