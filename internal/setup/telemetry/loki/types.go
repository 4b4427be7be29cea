package loki

// pushRequest is the JSON payload sent to Loki.
type pushRequest struct {
	Streams []stream `json:"streams"`
}

// stream is a set of log lines sharing the same labels.
type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// entry is a log line waiting to be pushed.
type entry struct {
	timestamp int64 // Unix nanoseconds
	line      string
}
