package led

// Driver abstracts an LED output sink. A transfer engine hands it the raw
// GRB byte stream of one completed transfer; len(grb) is 3*N for an N-LED
// view.
type Driver interface {
	Write(grb []byte) error
	// Close releases resources.
	Close() error
}
