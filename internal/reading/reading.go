package reading

// Sample carries the normalized sensor values accepted by the pipeline.
// Pressure is required by validation; temperature and humidity are optional.
type Sample struct {
	Pressure    int  `json:"pressure"`
	Temperature *int `json:"temperature,omitempty"`
	Humidity    *int `json:"humidity,omitempty"`
}

// Reading is one persisted, immutable sensor sample. The identifier is the
// per-patient store sequence; the timestamp is assigned at acceptance, never
// by the producer.
type Reading struct {
	ID          uint64 `json:"id"`
	PatientID   string `json:"patientId"`
	Pressure    int    `json:"pressure"`
	Temperature *int   `json:"temperature,omitempty"`
	Humidity    *int   `json:"humidity,omitempty"`
	TimestampMs int64  `json:"timestampMs"`
}
