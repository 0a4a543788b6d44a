// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the Sensirion SEN5x environmental
// sensor nodes (SEN50, SEN54, SEN55). Depending on the variant, the device
// measures particulate matter mass concentrations (PM1.0, PM2.5, PM4.0 and
// PM10), relative humidity, temperature, and VOC/NOx gas index values.
//
// The device is addressed over I²C with 16-bit command words. Every data
// word in a response is followed by a CRC8 checksum byte which the driver
// validates before any value is returned.
//
// Refer to the datasheet for more information.
//
// https://sensirion.com/media/documents/6791EFA0/62A1F68F/Sensirion_Datasheet_Environmental_Node_SEN5x.pdf
package sen5x
