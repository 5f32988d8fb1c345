package verify

// ScanStatus represents the state of a verification session
type ScanStatus string

const (
	StatusIdle         ScanStatus = "idle"
	StatusScanning     ScanStatus = "scanning"
	StatusSuccess      ScanStatus = "success"
	StatusError        ScanStatus = "error"
	StatusNoPermission ScanStatus = "no_permission"
)

// IsTerminal returns true if no further frame can change the status
func (s ScanStatus) IsTerminal() bool {
	return s == StatusNoPermission
}

// IsDetection returns true if the status reflects a decoded code
func (s ScanStatus) IsDetection() bool {
	return s == StatusSuccess || s == StatusError
}
