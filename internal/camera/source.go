package camera

import "context"

// FrameSource produces still frames from a camera device. The source is
// exclusively owned by one capture run at a time; Close must stop the
// underlying device so it can be reacquired.
type FrameSource interface {
	// Start acquires the device. It must be called before Frame.
	Start(ctx context.Context) error
	// Frame captures the current view as an encoded JPEG.
	Frame(ctx context.Context) ([]byte, error)
	// Close releases the device. Safe to call more than once.
	Close() error
}
