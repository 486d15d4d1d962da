package modbus

import "github.com/sirupsen/logrus"

// ChangeLogger is a HoldingObserver that reports each register write as one log line.
type ChangeLogger struct {
	labels RegisterLabels
	log    logrus.FieldLogger
}

var _ HoldingObserver = (*ChangeLogger)(nil)

// NewChangeLogger returns a ChangeLogger naming registers from labels. A nil logger
// means the logrus standard logger.
func NewChangeLogger(labels RegisterLabels, logger logrus.FieldLogger) *ChangeLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChangeLogger{labels: labels, log: logger}
}

// OnWrite logs the new value of address. It never panics.
func (c *ChangeLogger) OnWrite(address int, value uint16) {
	defer func() {
		_ = recover()
	}()
	label := c.labels.Label(address)
	c.log.WithFields(logrus.Fields{
		"address": address,
		"label":   label,
		"value":   value,
	}).Infof("wrote to %s: %d", label, value)
}
