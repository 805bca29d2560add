package ports

// Collector streams raw batch payloads from a transport other than HTTP
// (MQTT, replay files, simulators) into the ingest service.
type Collector interface {
	Start(out chan<- []byte) error
	Stop() error
}
