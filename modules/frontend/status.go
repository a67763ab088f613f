package frontend

//go:generate go tool github.com/dmarkham/enumer -type=WebServiceStatus -output status_enums.go

type WebServiceStatus int

const (
	Idle WebServiceStatus = iota
	Computing
	Stopping
)
