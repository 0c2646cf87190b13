package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSessionID generates a design session ID with a timestamp prefix
func GenerateSessionID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("design-%s-%s", timestamp, short)
}

// GenerateRecordID generates a globally unique record key
func GenerateRecordID() string {
	return uuid.NewString()
}
