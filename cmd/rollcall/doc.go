// Command rollcall is the operator CLI for the attendance kiosk. Most
// commands talk to a running rollcalld over its HTTP control API; `run`
// drives a capture in-process for setups without the daemon.
package main
