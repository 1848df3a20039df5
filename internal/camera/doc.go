// Package camera provides frame acquisition for the capture loop.
//
// V4L2Source grabs single JPEG frames from a video4linux device via ffmpeg;
// Monitor watches udev for the device being unplugged or replugged. Both
// sit behind the FrameSource interface so capture runs and tests can use
// synthetic sources.
package camera
