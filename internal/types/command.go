package types

// RelayCommand is the control payload written to a device. Immutable once
// sent; never retried automatically.
type RelayCommand struct {
	Value            RelayState `json:"value"`
	RequestedBy      string     `json:"requestedBy"`
	RequestedByEmail string     `json:"requestedByEmail"`
	Timestamp        int64      `json:"timestamp"`
}
