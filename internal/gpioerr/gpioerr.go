// Package gpioerr defines the stable, wire-facing error vocabulary shared by
// every layer of rgpiod: chip claims, the transmission engine, the edge
// sampler, the bus adapters, the script VM and the daemon.
package gpioerr

// Code is a stable error identifier. It is a string newtype: comparable,
// allocation-free, and implements error directly.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes, per the line-management, bus and daemon contracts.
const (
	OK Code = ""

	BadHandle       Code = "bad_handle"
	BadFlags        Code = "bad_flags"
	CannotOpenChip  Code = "cannot_open_chip"
	GpioInUse       Code = "gpio_in_use"
	BadGpio         Code = "bad_gpio"
	BadPulseWidth   Code = "bad_pulse_width"
	BadPwmDuty      Code = "bad_pwm_duty"
	BadPwmFreq      Code = "bad_pwm_freq"
	BadServoFreq    Code = "bad_servo_freq"
	BadServoWidth   Code = "bad_servo_width"
	BadTxType       Code = "bad_tx_type"
	BadDebounceMics Code = "bad_debounce_mics"
	BadWatchdogMics Code = "bad_watchdog_mics"

	BadI2cAddr  Code = "bad_i2c_addr"
	BadI2cFlags Code = "bad_i2c_flags"
	BadI2cBus   Code = "bad_i2c_bus"
	BadI2cParam Code = "bad_i2c_param"

	BadSpiCount Code = "bad_spi_count"

	BadSerialSpeed Code = "bad_serial_speed"
	BadSerialFlags Code = "bad_serial_flags"
	BadSerialParam Code = "bad_serial_param"

	BadPointer    Code = "bad_pointer"
	NoFileMatch   Code = "no_file_match"
	NoFileAccess  Code = "no_file_access"
	BadFileMode   Code = "bad_file_mode"
	FileOpenFailed Code = "file_open_failed"
	BadFileSeek   Code = "bad_file_seek"
	BadFileParam  Code = "bad_file_param"

	NoPermission Code = "no_permission"

	NotInScript  Code = "not_in_script"
	ScriptFailed Code = "script_failed"
	BadScript    Code = "bad_script"

	I2cOpenFailed    Code = "i2c_open_failed"
	SpiOpenFailed    Code = "spi_open_failed"
	SerialOpenFailed Code = "serial_open_failed"

	Timeout  Code = "timeout"
	NoMemory Code = "no_memory"

	// DeviceLost marks a resource whose underlying kernel device was lost
	// (per spec.md §7: "the owning resource is... marked Faulted").
	DeviceLost Code = "device_lost"

	Error Code = "error" // generic fallback, never returned deliberately
)

// E wraps a Code with operation context and an optional underlying cause,
// the way the teacher's errcode.E does.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + string(e.C) + ": " + e.Msg
	}
	if e.Op != "" {
		return e.Op + ": " + string(e.C)
	}
	return string(e.C)
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap builds an *E for the given operation/code, carrying cause.
func Wrap(op string, c Code, err error) *E {
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error for unrecognised
// causes and OK for nil.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
