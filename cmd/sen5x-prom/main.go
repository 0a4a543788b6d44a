// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sen5x-prom exposes SEN5x readings as Prometheus metrics.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/verdantlabs/sen5x"
)

// CLI args
var (
	listenAddr   = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	busName      = flag.String("bus", "", "I2C bus name. Empty selects the first available bus.")
	deviceAddr   = flag.Uint("addr", uint(sen5x.DefaultAddress), "I2C address of the sensor")
	readInterval = flag.Duration("read-int", 10*time.Second, "time interval between sensor reads")
)

// metrics to expose to Prometheus
var (
	gaugePm1      = newGauge("air_pm1_0", "Mass Concentration PM1.0 (units: ug/m3)")
	gaugePm2p5    = newGauge("air_pm2_5", "Mass Concentration PM2.5 (units: ug/m3)")
	gaugePm4      = newGauge("air_pm4_0", "Mass Concentration PM4.0 (units: ug/m3)")
	gaugePm10     = newGauge("air_pm10", "Mass Concentration PM10 (units: ug/m3)")
	gaugeHumidity = newGauge("air_humidity", "Compensated Humidity (units: % of relative Humidity)")
	gaugeTemp     = newGauge("air_temperature", "Compensated Air Temperature (units: degrees Celsius)")
	gaugeVoc      = newGauge("air_voc_index", "Air Volatile Organic Compounds index (unitless, 1-500)")
	gaugeNox      = newGauge("air_nox_index", "Air NOx index (unitless, 1-500)")
)

func newGauge(name string, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		[]string{"serial_number"},
	)
}

func init() {
	prometheus.MustRegister(gaugePm1)
	prometheus.MustRegister(gaugePm2p5)
	prometheus.MustRegister(gaugePm4)
	prometheus.MustRegister(gaugePm10)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(gaugeTemp)
	prometheus.MustRegister(gaugeVoc)
	prometheus.MustRegister(gaugeNox)

	// Add Go module build info.
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("failed to initialize host: %s", err)
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatalf("failed to open i2c bus: %s", err)
	}
	defer func() { _ = bus.Close() }()

	dev, err := sen5x.New(bus, i2c.Addr(*deviceAddr))
	if err != nil {
		log.Fatal(err)
	}

	serial, err := dev.SerialNumber()
	if err != nil {
		log.Fatalf("failed to read serial number: %s", err)
	}
	serialNr := fmt.Sprintf("%012x", serial)
	name, err := dev.ProductName()
	if err != nil {
		log.Fatalf("failed to read product name: %s", err)
	}
	version, err := dev.FirmwareVersion()
	if err != nil {
		log.Fatalf("failed to read firmware version: %s", err)
	}
	log.Printf("Found: %s serialNr %s firmware %d", strings.TrimRight(string(name[:]), "\x00"), serialNr, version)

	if err := dev.StartMeasurement(); err != nil {
		log.Fatalf("failed to start measurement: %s", err)
	}

	go func() {
		// Expose the registered metrics via HTTP.
		http.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{
				// Opt into OpenMetrics to support exemplars.
				EnableOpenMetrics: true,
			},
		))
		log.Panic(http.ListenAndServe(*listenAddr, nil))
	}()

	for {
		readAndPublish(dev, serialNr)
		time.Sleep(*readInterval)
	}
}

// readAndPublish performs one command/read cycle. The driver does not
// retry; a failed cycle is logged and the next tick issues a fresh one.
func readAndPublish(dev *sen5x.Dev, serialNr string) {
	ready, err := dev.DataReady()
	if err != nil {
		log.Errorf("failed to poll data ready (serialNr %s): %s", serialNr, err)
		return
	}
	if !ready {
		log.Warnf("no fresh measurement available (serialNr %s)", serialNr)
		return
	}

	m, err := dev.ReadMeasurement()
	if err != nil {
		log.Errorf("failed to read measurement (serialNr %s): %s", serialNr, err)
		return
	}
	log.Printf("Received: %s", m.String())

	gaugePm1.WithLabelValues(serialNr).Set(m.PM1)
	gaugePm2p5.WithLabelValues(serialNr).Set(m.PM2p5)
	gaugePm4.WithLabelValues(serialNr).Set(m.PM4)
	gaugePm10.WithLabelValues(serialNr).Set(m.PM10)
	gaugeHumidity.WithLabelValues(serialNr).Set(m.Humidity)
	gaugeTemp.WithLabelValues(serialNr).Set(m.Temperature)
	gaugeVoc.WithLabelValues(serialNr).Set(m.VOCIndex)
	gaugeNox.WithLabelValues(serialNr).Set(m.NOxIndex)
}
