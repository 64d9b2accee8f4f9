// Package sim provides an in-process host adapter that implements the
// transport port. It models the USB descriptor strings, the I/O bus voltage
// and a 32 KiB I2C EEPROM, and delivers replies asynchronously with
// configurable latency and jitter so the blocking client can be exercised
// without hardware.
package sim
