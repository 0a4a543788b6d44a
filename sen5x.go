// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verdantlabs/sen5x/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress is the I²C address the sensor ships with.
const DefaultAddress i2c.Addr = 0x69

// MassConcentration is a particulate matter concentration in µg/m³.
type MassConcentration float64

func (m MassConcentration) String() string {
	return fmt.Sprintf("%.1fµg/m³", float64(m))
}

// AQIndex is a unitless air quality index value as produced by the
// sensor's VOC and NOx algorithms. The nominal range is 1 to 500.
type AQIndex float64

func (a AQIndex) String() string {
	return fmt.Sprintf("%.1f", float64(a))
}

// Structure to simplify sending commands to the device.
type command struct {
	// The 16-bit command word.
	opcode uint16
	// Settle time between writing the command word and reading the
	// response. The device NAKs a read that arrives earlier.
	delay time.Duration
	// The fixed response length in bytes including checksums. 0, 3, 9,
	// 24, or 48.
	responseSize int
	// True if the datasheet permits this command while the sensor is in
	// measurement mode. Recorded, not enforced.
	whileSensing bool
}

// The various implemented commands.

var cmdStartMeasurement = command{
	opcode: 0x0021,
	delay:  50 * time.Millisecond,
}
var cmdReinit = command{
	opcode: 0xd304,
	delay:  100 * time.Millisecond,
}
var cmdGetDataReadyStatus = command{
	opcode:       0x0202,
	delay:        20 * time.Millisecond,
	responseSize: 3,
	whileSensing: true,
}
var cmdReadMeasurement = command{
	opcode:       0x03c4,
	delay:        20 * time.Millisecond,
	responseSize: 24,
	whileSensing: true,
}
var cmdReadProductName = command{
	opcode:       0xd014,
	delay:        20 * time.Millisecond,
	responseSize: 48,
	whileSensing: true,
}
var cmdGetSerialNumber = command{
	opcode:       0xd033,
	delay:        20 * time.Millisecond,
	responseSize: 9,
	whileSensing: true,
}
var cmdReadFirmwareVersion = command{
	opcode:       0xd100,
	delay:        20 * time.Millisecond,
	responseSize: 3,
	whileSensing: true,
}

// RawMeasurement is one unscaled measurement frame. Each word is the
// physical value multiplied by a fixed scale factor.
type RawMeasurement struct {
	// Mass concentration PM1.0 [µg/m³], ×10.
	PM1 uint16
	// Mass concentration PM2.5 [µg/m³], ×10.
	PM2p5 uint16
	// Mass concentration PM4.0 [µg/m³], ×10.
	PM4 uint16
	// Mass concentration PM10 [µg/m³], ×10.
	PM10 uint16
	// Compensated ambient humidity [%RH], ×100.
	Humidity uint16
	// Compensated ambient temperature [°C], ×200.
	Temperature uint16
	// VOC index, ×10.
	VOCIndex uint16
	// NOx index, ×10.
	NOxIndex uint16
}

// Measurement is one sensor reading converted to physical values.
type Measurement struct {
	// Mass concentration PM1.0 [µg/m³].
	PM1 float64
	// Mass concentration PM2.5 [µg/m³].
	PM2p5 float64
	// Mass concentration PM4.0 [µg/m³].
	PM4 float64
	// Mass concentration PM10 [µg/m³].
	PM10 float64
	// Compensated ambient humidity [%RH].
	Humidity float64
	// Compensated ambient temperature [°C].
	Temperature float64
	// VOC index.
	VOCIndex float64
	// NOx index.
	NOxIndex float64
}

// Return the measurement in string format.
func (m *Measurement) String() string {
	return fmt.Sprintf("PM1.0: %.1fµg/m³ PM2.5: %.1fµg/m³ PM4.0: %.1fµg/m³ PM10: %.1fµg/m³ Humidity: %.2f%%rH Temperature: %.3f°C VOC: %.1f NOx: %.1f",
		m.PM1, m.PM2p5, m.PM4, m.PM10, m.Humidity, m.Temperature, m.VOCIndex, m.NOxIndex)
}

// The sensor reading in periph units, plus the particulate and gas index
// values which have no physic representation.
type Env struct {
	physic.Env
	PM1      MassConcentration
	PM2p5    MassConcentration
	PM4      MassConcentration
	PM10     MassConcentration
	VOCIndex AQIndex
	NOxIndex AQIndex
}

// Return the sensor readings in string format.
func (e *Env) String() string {
	return fmt.Sprintf("Temperature: %s Humidity: %s PM1.0: %s PM2.5: %s PM4.0: %s PM10: %s VOC: %s NOx: %s",
		e.Temperature.String(), e.Humidity.String(), e.PM1.String(), e.PM2p5.String(), e.PM4.String(), e.PM10.String(), e.VOCIndex.String(), e.NOxIndex.String())
}

// Dev represents a SEN5x device.
type Dev struct {
	// The i2c bus device.
	d *i2c.Dev
	// Blocks for the per-command settle time. Replaced in tests.
	sleep func(time.Duration)
	// channel to halt SenseContinuous
	chHalt chan bool
	mu     sync.Mutex
	// True once measurement mode was started. There is no stop command;
	// the flag is cleared only by dropping the device.
	sensing bool
}

// New creates a SEN5x driver using the supplied bus and address. Unless the
// sensor was reconfigured, addr should be DefaultAddress. No bus traffic is
// performed; the device is first touched by the first operation called.
func New(b i2c.Bus, addr i2c.Addr) (*Dev, error) {
	return &Dev{d: &i2c.Dev{Bus: b, Addr: uint16(addr)}, sleep: time.Sleep}, nil
}

// StartMeasurement puts the sensor into continuous measurement mode. A new
// reading is produced roughly once per second; poll DataReady before
// reading.
func (d *Dev) StartMeasurement() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeCommand(cmdStartMeasurement); err != nil {
		return err
	}
	d.sensing = true
	return nil
}

// Reinit reinitializes the sensor by reloading user settings from EEPROM.
func (d *Dev) Reinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommand(cmdReinit)
}

// SerialNumber returns the 48-bit factory serial number.
func (d *Dev) SerialNumber() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readCommand(cmdGetSerialNumber)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// ProductName returns the raw 32-byte product name. The device pads the
// name with NUL bytes; interpreting it as text is left to the caller.
func (d *Dev) ProductName() ([32]byte, error) {
	var name [32]byte
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readCommand(cmdReadProductName)
	if err != nil {
		return name, err
	}
	for ix, word := range words {
		name[ix*2] = byte(word >> 8)
		name[ix*2+1] = byte(word)
	}
	return name, nil
}

// FirmwareVersion returns the major firmware version. The second byte of
// the response word is reserved; it is checksum-validated and discarded.
func (d *Dev) FirmwareVersion() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readCommand(cmdReadFirmwareVersion)
	if err != nil {
		return 0, err
	}
	return uint8(words[0] >> 8), nil
}

// DataReady reports whether a new measurement is available for read-out.
func (d *Dev) DataReady() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readCommand(cmdGetDataReadyStatus)
	if err != nil {
		return false, err
	}
	// The ready flags live in the low 11 bits. All clear means no new
	// data.
	return words[0]&(1<<11-1) != 0, nil
}

// ReadMeasurementRaw reads one measurement frame without scaling.
func (d *Dev) ReadMeasurementRaw() (RawMeasurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	words, err := d.readCommand(cmdReadMeasurement)
	if err != nil {
		return RawMeasurement{}, err
	}
	return RawMeasurement{
		PM1:         words[0],
		PM2p5:       words[1],
		PM4:         words[2],
		PM10:        words[3],
		Humidity:    words[4],
		Temperature: words[5],
		VOCIndex:    words[6],
		NOxIndex:    words[7],
	}, nil
}

// ReadMeasurement reads one measurement frame and scales it to physical
// values.
func (d *Dev) ReadMeasurement() (Measurement, error) {
	raw, err := d.ReadMeasurementRaw()
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{
		PM1:         float64(raw.PM1) / 10,
		PM2p5:       float64(raw.PM2p5) / 10,
		PM4:         float64(raw.PM4) / 10,
		PM10:        float64(raw.PM10) / 10,
		Humidity:    float64(raw.Humidity) / 100,
		Temperature: float64(raw.Temperature) / 200,
		VOCIndex:    float64(raw.VOCIndex) / 10,
		NOxIndex:    float64(raw.NOxIndex) / 10,
	}, nil
}

// Sense returns one fresh reading from the device. If measurement mode was
// not started yet it is started first; the initial reading is then
// available after roughly one second. Implements the usual periph sensor
// surface together with SenseContinuous and Halt.
func (d *Dev) Sense(env *Env) error {
	if !d.sensing {
		if err := d.StartMeasurement(); err != nil {
			return err
		}
	}
	ready := false
	tCutoff := time.Now().Add(3 * time.Second)
	for {
		var err error
		if ready, err = d.DataReady(); err != nil {
			return err
		}
		if ready || time.Now().After(tCutoff) {
			break
		}
		d.sleep(100 * time.Millisecond)
	}
	if !ready {
		return errors.New("sen5x: timeout waiting for data ready status")
	}
	m, err := d.ReadMeasurement()
	if err != nil {
		return err
	}
	env.Temperature = physic.ZeroCelsius + physic.Temperature(m.Temperature*float64(physic.Celsius))
	env.Humidity = physic.RelativeHumidity(m.Humidity * float64(physic.PercentRH))
	env.Pressure = 0
	env.PM1 = MassConcentration(m.PM1)
	env.PM2p5 = MassConcentration(m.PM2p5)
	env.PM4 = MassConcentration(m.PM4)
	env.PM10 = MassConcentration(m.PM10)
	env.VOCIndex = AQIndex(m.VOCIndex)
	env.NOxIndex = AQIndex(m.NOxIndex)
	return nil
}

// SenseContinuous reads the sensor on the specified interval and writes
// readings to the returned channel. The device produces a new value about
// once per second; a shorter interval spins on the data-ready flag. To
// terminate, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Env, error) {
	d.mu.Lock()
	if d.chHalt != nil {
		d.mu.Unlock()
		return nil, errors.New("sen5x: SenseContinuous() running already")
	}
	d.chHalt = make(chan bool)
	halt := d.chHalt
	d.mu.Unlock()

	channelSize := 16
	channel := make(chan Env, channelSize)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(channel)
		for {
			select {
			case <-halt:
				return
			case <-ticker.C:
				// do the reading and write to the channel.
				e := Env{}
				err := d.Sense(&e)
				if err == nil && len(channel) < channelSize {
					channel <- e
				}
			}
		}
	}()
	return channel, nil
}

// Halt terminates a SenseContinuous operation if one is in progress. The
// device itself keeps measuring; the SEN5x command set modeled here has no
// stop command. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chHalt != nil {
		close(d.chHalt)
		d.chHalt = nil
	}
	return nil
}

// Precision returns the sensor's resolution, or minimum value between
// steps the device can make: 0.1 µg/m³ for particulate matter, 1/200 °C
// for temperature, 0.01 %RH for humidity and 0.1 for the gas indices.
func (d *Dev) Precision(env *Env) {
	env.Temperature = 5 * physic.MilliKelvin
	env.Pressure = 0
	env.Humidity = physic.PercentRH / 100
	env.PM1 = 0.1
	env.PM2p5 = 0.1
	env.PM4 = 0.1
	env.PM10 = 0.1
	env.VOCIndex = 0.1
	env.NOxIndex = 0.1
}

func (d *Dev) String() string {
	return fmt.Sprintf("sen5x: %s", d.d.String())
}

// Writes the 16-bit command word and blocks for the command's settle time.
func (d *Dev) writeCommand(cmd command) error {
	w := []byte{byte(cmd.opcode >> 8), byte(cmd.opcode & 0xff)}
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("sen5x: cmd 0x%04x: %w", cmd.opcode, err)
	}
	d.sleep(cmd.delay)
	return nil
}

// All reading commands funnel through here: one write of the command word,
// the settle delay, one read of the command's fixed-size response, then
// checksum validation of every word. There are no retries; a checksum or
// transport failure aborts the whole operation and the caller decides
// whether to issue a fresh command cycle.
func (d *Dev) readCommand(cmd command) ([]uint16, error) {
	if err := d.writeCommand(cmd); err != nil {
		return nil, err
	}
	r := make([]byte, cmd.responseSize)
	if err := d.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("sen5x: cmd 0x%04x: %w", cmd.opcode, err)
	}
	words, err := common.DecodeWords(r, cmd.responseSize/3)
	if err != nil {
		return nil, fmt.Errorf("sen5x: cmd 0x%04x: %w", cmd.opcode, err)
	}
	return words, nil
}

var _ conn.Resource = &Dev{}
