package ferr

// Named log events, used as the "event" field in structured log entries
// instead of ad-hoc string literals at each call site.
const (
	EventAssembled           = "assembled"
	EventReassembled         = "reassembled"
	EventReassembleFail      = "reassemble_failed"
	EventDisassembled        = "disassembled"
	EventRelayFault          = "relay_fault"
	EventDataSourceFault     = "datasource_fault"
	EventBeerContradict      = "beer_contradiction"
	EventManagerStopped      = "manager_stopped"
	EventManagerTimeout      = "manager_stop_timeout"
	EventStaleData           = "stale_data"
	EventMissingData         = "missing_data"
	EventSignalReceived      = "signal_received"
	EventFlightRecorderFault = "flight_recorder_fault"
)
