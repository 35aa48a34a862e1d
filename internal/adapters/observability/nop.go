package observability

import "github.com/agrovolt/fieldsync/internal/ports"

// NopObs discards all logs and metrics. Default for library embedders who
// bring their own telemetry, and for tests.
type NopObs struct{}

func NewNopObs() *NopObs { return &NopObs{} }

func (NopObs) LogInfo(string, ...ports.Field)         {}
func (NopObs) LogWarn(string, ...ports.Field)         {}
func (NopObs) LogError(string, error, ...ports.Field) {}
func (NopObs) IncCounter(string, float64)             {}
func (NopObs) ObserveLatency(string, float64)         {}
func (NopObs) SetGauge(string, float64)               {}

var _ ports.Observability = NopObs{}
