package feedback

import (
	"go.uber.org/zap"

	"github.com/storekit/cardpay/internal/port/outbound"
)

// logChime logs success feedback. The register UI in front of this service
// translates the event into the audible chime.
type logChime struct {
	logger *zap.Logger
}

// NewLogChime creates a feedback sink that records success chimes in the log.
func NewLogChime(logger *zap.Logger) outbound.FeedbackPort {
	return &logChime{logger: logger}
}

func (c *logChime) PlaySuccessChime() {
	c.logger.Info("payment success chime")
}
