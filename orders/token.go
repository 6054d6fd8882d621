package orders

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewToken returns "<prefix><yyyymmdd>-<10 hex digits>". The digits come from
// the random part of a version 4 UUID, giving 40 bits of entropy per day.
func NewToken(prefix string, now time.Time) string {
	id := uuid.New()
	return prefix + now.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(id[:5]))
}
