package mqtt

import "github.com/sweeney/tempcycle/internal/report"

// NopPublisher drops everything. Used when no broker is configured.
type NopPublisher struct{}

// PublishPass does nothing.
func (NopPublisher) PublishPass(report.Pass) error { return nil }

// PublishSystem does nothing.
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// IsConnected is always false.
func (NopPublisher) IsConnected() bool { return false }
