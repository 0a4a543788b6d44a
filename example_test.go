//go:build examples

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sen5x_test

import (
	"fmt"
	"log"
	"strings"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/verdantlabs/sen5x"
)

// basic example program for SEN5x sensors using this library.
//
// To execute this as a stand-alone program:
//
// Copy the file example_test.go to a new directory.
// rename the file to main.go
// rename the Example() function to main, and the package to main
//
// execute:
//
//	go mod init mydomain.com/sen5x
//	go mod tidy
//	go build -o main main.go
//	./main
func Example() {
	fmt.Println("sen5x example program")
	if _, err := host.Init(); err != nil {
		fmt.Println(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	dev, err := sen5x.New(bus, sen5x.DefaultAddress)
	if err != nil {
		log.Fatal(err)
	}

	name, err := dev.ProductName()
	if err == nil {
		fmt.Println("product:", strings.TrimRight(string(name[:]), "\x00"))
	} else {
		fmt.Println(err)
	}
	serial, err := dev.SerialNumber()
	if err == nil {
		fmt.Printf("serial: %012x\n", serial)
	} else {
		fmt.Println(err)
	}

	env := sen5x.Env{}
	err = dev.Sense(&env)
	if err == nil {
		fmt.Println(env.String())
	} else {
		fmt.Println(err)
	}
	// Output: product: SEN55
	// serial: 00986c24a3f1
	// Temperature: 22.405°C Humidity: 55.1%rH PM1.0: 1.8µg/m³ PM2.5: 2.2µg/m³ PM4.0: 2.4µg/m³ PM10: 2.6µg/m³ VOC: 36.0 NOx: 1.0
}
